package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"werewolf-party/internal/logging"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	outboundBuffer = 256
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// wsConn adapts a websocket to room.Conn. Sends are queued and written by a
// dedicated goroutine so the room actor never blocks on the network.
type wsConn struct {
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		out:  make(chan []byte, outboundBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg protocol.ServerMessage) error {
	if c.closed.Load() {
		return errConnClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	default:
		c.close()
		return errSlowConsumer
	}
}

func (c *wsConn) Closed() bool {
	return c.closed.Load()
}

func (c *wsConn) close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) handleWebsocket(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	actor, _, err := s.rooms.Open(c.Request.Context(), uri.RoomID, nil)
	if err != nil {
		logging.Room(uri.RoomID).WithError(err).Error("open room")
		c.Status(http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	logging.Room(uri.RoomID).WithField("remote", c.Request.RemoteAddr).Info("ws connected")
	wc := newWSConn(conn)
	go wc.writeLoop()
	if err := actor.Connect(wc); err != nil {
		wc.close()
		return
	}
	go s.readWS(actor, wc)
}

// readWS decodes inbound frames and hands them to the room. Frames beyond
// the per-connection rate are dropped. An update the room never sees, whether
// dropped or undecodable, earns the sender a recovery snapshot so its
// optimistic edits are rolled back.
func (s *Server) readWS(actor *room.Actor, wc *wsConn) {
	log := logging.Room(actor.ID())
	defer func() {
		wc.close()
		_ = actor.Disconnect(wc)
	}()
	limiter := rate.NewLimiter(rate.Limit(s.cfg.ClientMsgRate), s.cfg.ClientMsgBurst)
	recoveries := rate.NewLimiter(rate.Every(time.Second), 1)
	var owed *protocol.ClientMessage
	requestRecovery := func(head protocol.ClientMessage) error {
		if !recoveries.Allow() {
			owed = &head
			return nil
		}
		owed = nil
		return actor.Receive(wc, protocol.RecoveryRequest(head.ClientID, head.Clock))
	}
	dropped := 0
	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("ws read ended")
			}
			return
		}
		if !limiter.Allow() {
			dropped++
			if dropped == 1 || dropped%100 == 0 {
				log.WithField("dropped", dropped).Warn("client message rate exceeded")
			}
			if head, err := protocol.PeekClient(data); err == nil && head.Type == protocol.TypeUpdate {
				if err := requestRecovery(head); err != nil {
					return
				}
			}
			continue
		}
		if owed != nil {
			if err := requestRecovery(*owed); err != nil {
				return
			}
		}
		msg, err := protocol.DecodeClient(data)
		if err != nil {
			log.WithError(err).Debug("ignored client message")
			if errors.Is(err, protocol.ErrMalformedPayload) && msg.Type == protocol.TypeUpdate {
				if err := requestRecovery(msg); err != nil {
					return
				}
			}
			continue
		}
		if err := actor.Receive(wc, msg); err != nil {
			return
		}
	}
}
