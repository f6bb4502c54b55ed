package web

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/effibem/bemviewer/webutils"
)

const (
	readLimit    = 4096
	readDeadline = 70 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// inputMessage is pointer and window input forwarded by the host page.
type inputMessage struct {
	Type   string  `json:"type"`
	DX     float32 `json:"dx"`
	DY     float32 `json:"dy"`
	Delta  float32 `json:"delta"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

func (s *Server) handleInput(msg *inputMessage) error {
	switch msg.Type {
	case "rotate":
		s.Viewer.Rotate(msg.DX, msg.DY)
	case "pan":
		s.Viewer.Pan(msg.DX, msg.DY)
	case "zoom":
		s.Viewer.Zoom(msg.Delta)
	case "resize":
		if s.Viewport == nil {
			return errors.New("container is not resizable")
		}
		s.Viewport.Resize(msg.Width, msg.Height)
	case "pick":
		if sel, ok := s.Viewer.Pick(msg.X, msg.Y); ok {
			s.Hub.Info("selected %s", sel.Name)
		}
	default:
		return errors.Errorf("unknown input %q", msg.Type)
	}
	return nil
}

func (s *Server) HandlerWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		webutils.WriteError(w, http.StatusNotFound, errors.New("websocket is disabled"))
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	client := s.Hub.NewClient(conn)
	defer client.Close()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[web] ws %s read error: %v", client.Name, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var msg inputMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[web] ws %s bad message: %v", client.Name, err)
			continue
		}
		if err := s.handleInput(&msg); err != nil {
			log.Printf("[web] ws %s: %v", client.Name, err)
		}
	}
}
