package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Speaker labels for utterance events.
const (
	SpeakerStudent = "Student"
	SpeakerTutor   = "TutorBot"
)

// Event is a message received from the room's event stream. Utterance events
// arrive once the upstream speech layer considers an utterance complete.
type Event struct {
	Type      string    `json:"type"`
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Event types delivered by the room service.
const (
	EventUtterance         = "utterance_completed"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
)

// RoomConn is a live connection to a single room.
type RoomConn interface {
	// Events yields room events until the connection closes; the channel is
	// closed on disconnect.
	Events() <-chan Event
	// PublishData broadcasts a reliable data-channel payload to the room.
	PublishData(ctx context.Context, payload []byte) error
	// Say asks the voice pipeline to speak the given text.
	Say(ctx context.Context, text string) error
	Close() error
}

type wsRoomConn struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	logger *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
}

type outboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Text    string          `json:"text,omitempty"`
}

const wsWriteTimeout = 5 * time.Second

func (c *client) Dial(ctx context.Context, room, token string) (RoomConn, error) {
	wsURL, err := eventStreamURL(c.baseURL, room)
	if err != nil {
		return nil, err
	}

	header := map[string][]string{"Authorization": {"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial room %s: http %d: %w", room, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial room %s: %w", room, err)
	}

	rc := &wsRoomConn{
		conn:   conn,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
		logger: c.logger.With(zap.String("room", room)),
	}
	go rc.readLoop()
	return rc, nil
}

func eventStreamURL(baseURL, room string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	u.RawQuery = url.Values{"room": {room}}.Encode()
	return u.String(), nil
}

func (rc *wsRoomConn) Events() <-chan Event {
	return rc.events
}

func (rc *wsRoomConn) readLoop() {
	defer close(rc.events)

	for {
		messageType, data, err := rc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rc.logger.Debug("room event stream closed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			rc.logger.Warn("dropping malformed room event", zap.Error(err))
			continue
		}
		// A consumer that stopped draining must not pin this goroutine.
		select {
		case rc.events <- ev:
		case <-rc.done:
			return
		}
	}
}

func (rc *wsRoomConn) write(msg outboundMessage) error {
	rc.writeMu.Lock()
	defer rc.writeMu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := rc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return rc.conn.WriteMessage(websocket.TextMessage, data)
}

func (rc *wsRoomConn) PublishData(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return rc.write(outboundMessage{Type: "publish_data", Payload: payload})
}

func (rc *wsRoomConn) Say(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return rc.write(outboundMessage{Type: "say", Text: text})
}

func (rc *wsRoomConn) Close() error {
	var err error
	rc.once.Do(func() {
		close(rc.done)
		rc.writeMu.Lock()
		deadline := time.Now().Add(wsWriteTimeout)
		_ = rc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		rc.writeMu.Unlock()
		err = rc.conn.Close()
	})
	return err
}
