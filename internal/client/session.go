package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"werewolf-party/internal/logging"
	"werewolf-party/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	PingInterval = time.Second
	TickInterval = 50 * time.Millisecond
)

// wsTransport writes client messages as JSON text frames. Only the session
// loop writes, so no lock is needed.
type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Send(msg protocol.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

type incoming struct {
	msg protocol.ServerMessage
	err error
}

// Session is a live websocket connection to one room driving a Controller.
type Session struct {
	conn       *websocket.Conn
	controller *Controller
}

// RoomURL builds the websocket endpoint of a room from the server base URL.
func RoomURL(base, roomID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = fmt.Sprintf("/room/%s/ws", url.PathEscape(roomID))
	return u.String(), nil
}

func Dial(ctx context.Context, endpoint, clientID, name string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &Session{
		conn:       conn,
		controller: NewController(clientID, name, wsTransport{conn: conn}),
	}, nil
}

func (s *Session) Controller() *Controller {
	return s.controller
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Run reads server messages, pings every second and ticks the controller
// until ctx is done or the connection drops. onTick runs after every local
// tick on the session goroutine and may drive the controller.
func (s *Session) Run(ctx context.Context, onTick func(*Controller)) error {
	events := make(chan incoming, 64)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			msg, err := protocol.DecodeServer(data)
			select {
			case events <- incoming{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(PingInterval)
	defer ping.Stop()
	tick := time.NewTicker(TickInterval)
	defer tick.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			s.drain(events)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		case ev := <-events:
			s.handle(ev)
		case <-ping.C:
			if s.controller.Ready() {
				s.controller.Ping()
			}
		case now := <-tick.C:
			s.controller.Tick(now.Sub(last))
			last = now
			if onTick != nil && s.controller.Ready() {
				onTick(s.controller)
			}
		}
	}
}

func (s *Session) handle(ev incoming) {
	if ev.err == nil {
		s.controller.Handle(ev.msg)
		return
	}
	if errors.Is(ev.err, protocol.ErrUnknownType) || errors.Is(ev.err, protocol.ErrMalformedPayload) {
		s.controller.HandleDecodeError(ev.err)
		return
	}
	logging.Log.WithField("client_id", s.controller.ID).WithError(ev.err).Debug("unreadable server message")
}

// drain applies the messages read before the connection dropped.
func (s *Session) drain(events <-chan incoming) {
	for {
		select {
		case ev := <-events:
			s.handle(ev)
		default:
			return
		}
	}
}
