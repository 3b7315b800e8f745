package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Op names a protected operation. Route registration binds each endpoint to
// exactly one operation, and the policy table decides which roles may call it.
// Ownership checks (a patient may only see their own records) stay in the
// services; the table only gates by role.
type Op string

const (
	OpProfileReadOwn   Op = "profile.read_own"
	OpProfileUpdateOwn Op = "profile.update_own"
	OpDoctorList       Op = "doctor.list"
	OpDoctorRead       Op = "doctor.read"
	OpDoctorStats      Op = "doctor.stats"
	OpPatientStats     Op = "patient.stats"
	OpAvailabilityRead Op = "availability.read"
	OpAvailabilitySet  Op = "availability.set"
	OpConsultCreate    Op = "consultation.create"
	OpConsultListOwn   Op = "consultation.list_own"
	OpConsultListOpen  Op = "consultation.list_open"
	OpConsultRead      Op = "consultation.read"
	OpConsultRespond   Op = "consultation.respond"
	OpConsultClose     Op = "consultation.close"
	OpConsultMessage   Op = "consultation.message"
	OpApptCreate       Op = "appointment.create"
	OpApptListOwn      Op = "appointment.list_own"
	OpApptRead         Op = "appointment.read"
	OpApptConfirm      Op = "appointment.confirm"
	OpApptComplete     Op = "appointment.complete"
	OpApptUpdate       Op = "appointment.update"
	OpApptCancel       Op = "appointment.cancel"
	OpRxCreate         Op = "prescription.create"
	OpRxUpdate         Op = "prescription.update"
	OpRxComplete       Op = "prescription.complete"
	OpRxListOwn        Op = "prescription.list_own"
	OpRxRead           Op = "prescription.read"
	OpReviewCreate     Op = "review.create"
	OpReviewRespond    Op = "review.respond"
	OpReviewList       Op = "review.list"
	OpNotifList        Op = "notification.list"
	OpNotifMarkRead    Op = "notification.mark_read"
	OpVideoCreate      Op = "video.create"
	OpVideoJoin        Op = "video.join"
	OpAdminListUsers   Op = "admin.list_users"
	OpAdminSetStatus   Op = "admin.set_status"
	OpAdminReport      Op = "admin.report"
)

// Policy maps operations to the roles allowed to perform them.
type Policy map[Op][]string

// Allowed reports whether role may perform op. Unknown operations are denied.
func (p Policy) Allowed(op Op, role string) bool {
	for _, r := range p[op] {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultPolicy returns the role table used by the HTTP routes.
func DefaultPolicy() Policy {
	return Policy{
		OpProfileReadOwn:   {RolePatient, RoleDoctor, RoleAdmin},
		OpProfileUpdateOwn: {RolePatient, RoleDoctor, RoleAdmin},
		OpDoctorList:       {RolePatient, RoleDoctor, RoleAdmin},
		OpDoctorRead:       {RolePatient, RoleDoctor, RoleAdmin},
		OpDoctorStats:      {RoleDoctor, RoleAdmin},
		OpPatientStats:     {RolePatient, RoleAdmin},
		OpAvailabilityRead: {RolePatient, RoleDoctor, RoleAdmin},
		OpAvailabilitySet:  {RoleDoctor},
		OpConsultCreate:    {RolePatient},
		OpConsultListOwn:   {RolePatient, RoleDoctor},
		OpConsultListOpen:  {RoleDoctor},
		OpConsultRead:      {RolePatient, RoleDoctor, RoleAdmin},
		OpConsultRespond:   {RoleDoctor},
		OpConsultClose:     {RolePatient, RoleDoctor},
		OpConsultMessage:   {RolePatient, RoleDoctor},
		OpApptCreate:       {RolePatient},
		OpApptListOwn:      {RolePatient, RoleDoctor},
		OpApptRead:         {RolePatient, RoleDoctor, RoleAdmin},
		OpApptConfirm:      {RoleDoctor},
		OpApptComplete:     {RoleDoctor},
		OpApptUpdate:       {RolePatient, RoleDoctor},
		OpApptCancel:       {RolePatient, RoleDoctor},
		OpRxCreate:         {RoleDoctor},
		OpRxUpdate:         {RoleDoctor},
		OpRxComplete:       {RolePatient, RoleDoctor},
		OpRxListOwn:        {RolePatient, RoleDoctor},
		OpRxRead:           {RolePatient, RoleDoctor, RoleAdmin},
		OpReviewCreate:     {RolePatient},
		OpReviewRespond:    {RoleDoctor},
		OpReviewList:       {RolePatient, RoleDoctor, RoleAdmin},
		OpNotifList:        {RolePatient, RoleDoctor, RoleAdmin},
		OpNotifMarkRead:    {RolePatient, RoleDoctor, RoleAdmin},
		OpVideoCreate:      {RolePatient, RoleDoctor},
		OpVideoJoin:        {RolePatient, RoleDoctor},
		OpAdminListUsers:   {RoleAdmin},
		OpAdminSetStatus:   {RoleAdmin},
		OpAdminReport:      {RoleAdmin},
	}
}

// Require returns middleware enforcing the policy table for op.
func Require(policy Policy, op Op) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !policy.Allowed(op, p.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "operation not permitted for role "+p.Role)
			}
			return next(c)
		}
	}
}
