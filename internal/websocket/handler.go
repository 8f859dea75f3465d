package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a dashboard connection to the hub.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, Remote: c.RemoteAddr().String(), Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
