package command

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/world"
)

// Server accepts player connections and forwards their commands into the
// world inbox. One connection may drive any number of kingdoms; ownership is
// enforced per command inside the simulation, not per socket.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
				continue
			}
			switch base.Type {
			case protocol.TypeCommand:
				s.handleCommand(conn, msg)
			case protocol.TypeCancel:
				s.handleCancel(conn, msg)
			case protocol.TypeView:
				s.handleView(conn)
			default:
				s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
			}
		}
	}
}

func (s *Server) handleCommand(conn *websocket.Conn, msg []byte) {
	var raw any
	if err := json.Unmarshal(msg, &raw); err != nil {
		s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
		return
	}
	if err := protocol.ValidateCommandJSON(raw); err != nil {
		s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
		return
	}
	var cmd protocol.Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, code, err := s.world.SubmitCommand(ctx, cmd)
	if err != nil {
		s.writeAck(conn, "", false, protocol.ErrProtoUnavailable)
		return
	}
	s.writeAck(conn, id, code == "", code)
}

func (s *Server) handleCancel(conn *websocket.Conn, msg []byte) {
	var c protocol.CancelMsg
	if err := json.Unmarshal(msg, &c); err != nil || c.CommandID == "" || c.KingdomID == "" {
		s.writeAck(conn, "", false, protocol.ErrProtoBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := s.world.CancelCommand(ctx, c.CommandID, c.KingdomID)
	if err != nil {
		s.writeAck(conn, c.CommandID, false, protocol.ErrProtoUnavailable)
		return
	}
	code := ""
	if !ok {
		code = protocol.ErrStale
	}
	s.writeAck(conn, c.CommandID, ok, code)
}

func (s *Server) handleView(conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := s.world.ViewState(ctx)
	if err != nil {
		s.writeAck(conn, "", false, protocol.ErrProtoUnavailable)
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) writeAck(conn *websocket.Conn, id string, ok bool, code string) {
	b, err := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		CommandID:       id,
		OK:              ok,
		Code:            code,
	})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
