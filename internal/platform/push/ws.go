package push

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Browser clients connect cross-origin; auth is via token.
	},
}

// Serve upgrades the request to a WebSocket, registers the client with the
// hub, and runs the read and write pumps. It returns once the upgrade has
// been performed; pumps run until the connection drops, at which point the
// client is unregistered.
func Serve(c echo.Context, hub *Hub, client *Client) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	hub.Register(client)

	go writePump(client, ws)
	go readPump(hub, client, ws)

	return nil
}

// readPump reads inbound frames and hands them to the client's OnMessage
// callback. It unregisters the client when the connection closes.
func readPump(hub *Hub, client *Client, ws *websocket.Conn) {
	defer func() {
		hub.Unregister(client)
		ws.Close()
		if client.OnClose != nil {
			client.OnClose()
		}
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if client.OnMessage != nil {
			client.OnMessage(message)
		}
	}
}

// writePump drains the client's send queue onto the connection and keeps the
// connection alive with periodic pings.
func writePump(client *Client, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
