package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
)

// =========== Patient Profile Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `user_id, full_name, date_of_birth, gender, phone, address,
	emergency_contact, blood_type, allergies, chronic_conditions, medications,
	insurance_provider, insurance_id, created_at, updated_at`

func scanPatient(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.UserID, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Address,
		&p.EmergencyContact, &p.BloodType, &p.Allergies, &p.ChronicConditions, &p.Medications,
		&p.InsuranceProvider, &p.InsuranceID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Get(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient_profiles WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) Upsert(ctx context.Context, p *PatientProfile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_profiles (user_id, full_name, date_of_birth, gender, phone, address,
			emergency_contact, blood_type, allergies, chronic_conditions, medications,
			insurance_provider, insurance_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name, date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender, phone = EXCLUDED.phone, address = EXCLUDED.address,
			emergency_contact = EXCLUDED.emergency_contact, blood_type = EXCLUDED.blood_type,
			allergies = EXCLUDED.allergies, chronic_conditions = EXCLUDED.chronic_conditions,
			medications = EXCLUDED.medications, insurance_provider = EXCLUDED.insurance_provider,
			insurance_id = EXCLUDED.insurance_id, updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.UserID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Address,
		p.EmergencyContact, p.BloodType, p.Allergies, p.ChronicConditions, p.Medications,
		p.InsuranceProvider, p.InsuranceID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

// =========== Doctor Profile Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `user_id, full_name, specialization, license_number, consultation_fee,
	years_experience, bio, phone, available_days, available_hours, rating, total_reviews,
	created_at, updated_at`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(&d.UserID, &d.FullName, &d.Specialization, &d.LicenseNumber, &d.ConsultationFee,
		&d.YearsExperience, &d.Bio, &d.Phone, &d.AvailableDays, &d.AvailableHours, &d.Rating,
		&d.TotalReviews, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doctorRepoPG) Get(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor_profiles WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) Upsert(ctx context.Context, d *DoctorProfile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_profiles (user_id, full_name, specialization, license_number,
			consultation_fee, years_experience, bio, phone, available_days, available_hours)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name, specialization = EXCLUDED.specialization,
			license_number = EXCLUDED.license_number, consultation_fee = EXCLUDED.consultation_fee,
			years_experience = EXCLUDED.years_experience, bio = EXCLUDED.bio,
			phone = EXCLUDED.phone, available_days = EXCLUDED.available_days,
			available_hours = EXCLUDED.available_hours, updated_at = NOW()
		RETURNING rating, total_reviews, created_at, updated_at`,
		d.UserID, d.FullName, d.Specialization, d.LicenseNumber, d.ConsultationFee,
		d.YearsExperience, d.Bio, d.Phone, d.AvailableDays, d.AvailableHours).
		Scan(&d.Rating, &d.TotalReviews, &d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) Search(ctx context.Context, f SearchFilters, limit, offset int) ([]*DoctorProfile, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if f.Specialization != "" {
		where += fmt.Sprintf(" AND specialization ILIKE $%d", idx)
		args = append(args, "%"+f.Specialization+"%")
		idx++
	}
	if f.MinRating > 0 {
		where += fmt.Sprintf(" AND rating >= $%d", idx)
		args = append(args, f.MinRating)
		idx++
	}
	if f.MaxFee > 0 {
		where += fmt.Sprintf(" AND consultation_fee <= $%d", idx)
		args = append(args, f.MaxFee)
		idx++
	}
	if f.AvailableDay != "" {
		where += fmt.Sprintf(" AND $%d = ANY(available_days)", idx)
		args = append(args, f.AvailableDay)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := ` ORDER BY rating DESC, total_reviews DESC`
	switch f.SortBy {
	case "fee":
		order = ` ORDER BY consultation_fee ASC`
	case "experience":
		order = ` ORDER BY years_experience DESC`
	}

	query := `SELECT ` + doctorCols + ` FROM doctor_profiles` + where + order +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*DoctorProfile
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func (r *doctorRepoPG) ApplyRating(ctx context.Context, userID uuid.UUID, rating int) (*DoctorProfile, error) {
	// Single-statement read-modify-write so concurrent reviews serialize on
	// the profile row and no contributor is lost. A doctor who never filled a
	// profile in gets a placeholder row seeded with this first rating.
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_profiles (user_id, full_name, specialization, license_number, rating, total_reviews)
		VALUES ($1, '', '', '', $2, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET rating = (doctor_profiles.rating * doctor_profiles.total_reviews + EXCLUDED.rating)
				/ (doctor_profiles.total_reviews + 1),
			total_reviews = doctor_profiles.total_reviews + 1,
			updated_at = NOW()
		RETURNING `+doctorCols, userID, rating))
}
