package broadcast

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type welcome struct {
	Message string `json:"message"`
}

// NewWebsocketHandler streams hub events to each connected client. The
// connection owns its subscription: it subscribes on connect and
// unsubscribes when the client goes away.
func NewWebsocketHandler(hub *Hub, log logrus.FieldLogger) http.Handler {
	// websocket.Server with no Handshake accepts any Origin, like the admin UI expects
	return websocket.Server{Handler: func(conn *websocket.Conn) {
		serveConn(conn, hub, log)
	}}
}

func serveConn(conn *websocket.Conn, hub *Hub, log logrus.FieldLogger) {
	defer func() {
		_ = conn.Close()
	}()

	sub := hub.Subscribe()
	defer sub.Close()

	log = log.WithField("subscriber", sub.ID)
	log.Info("observer connected")
	defer log.Info("observer disconnected")

	if err := websocket.JSON.Send(conn, frame{Event: "test", Data: welcome{Message: "Welcome! Socket connected successfully."}}); err != nil {
		return
	}

	// the client never sends anything we act on; reading only detects disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, frame{Event: EventUIDResult, Data: ev}); err != nil {
				log.WithError(err).Warn("broadcast delivery failed")
				return
			}
		case <-gone:
			return
		}
	}
}
