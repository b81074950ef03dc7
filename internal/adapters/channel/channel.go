// Package channel implements core.Transport over a websocket connection
// to the relay.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/core"
	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
	"github.com/filmgrain/groupwatch/internal/token"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	ErrBackpressure = errors.New("backpressure")
)

const sendBuffer = 32

// Client is one client's connection to a relay topic. A Client handles
// one topic at a time; Connect after Disconnect reuses it.
type Client struct {
	baseURL  string // e.g. ws://localhost:8080
	secret   string // shared HMAC secret for identity tokens
	tokenTTL time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	topic  string
	send   chan []byte
	events chan core.Event
	done   chan struct{}
}

func New(baseURL, secret string) *Client {
	return &Client{baseURL: baseURL, secret: secret, tokenTTL: 12 * time.Hour}
}

// Connect dials the relay's topic endpoint with a signed identity token.
func (c *Client) Connect(ctx context.Context, topic string, id domain.Identity) error {
	signed, err := token.Sign(c.secret, id, c.tokenTTL)
	if err != nil {
		return fmt.Errorf("sign identity: %w", err)
	}

	u := fmt.Sprintf("%s/ws/rooms/%s?token=%s", c.baseURL, url.PathEscape(topic), url.QueryEscape(signed))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.topic = topic
	c.send = make(chan []byte, sendBuffer)
	c.events = make(chan core.Event, sendBuffer)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.writePump(conn, c.send, c.done)
	go c.readPump(conn, c.events)

	log.Info().Str("module", "channel").Str("topic", topic).Msg("connected")
	return nil
}

// Disconnect closes the connection; the read pump closes the events
// channel on its way out.
func (c *Client) Disconnect(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.topic != topic {
		return ErrNotConnected
	}
	close(c.done)
	err := c.conn.Close()
	c.conn = nil
	c.topic = ""
	return err
}

// Events returns the stream of presence and broadcast events for the
// current connection.
func (c *Client) Events() <-chan core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Shout broadcasts a protocol message to the topic.
func (c *Client) Shout(msg protocol.Message) error {
	frame, err := protocol.NewFrame(protocol.EventShout, "", msg)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// Whisper sends a payload to one connection ref on the topic.
func (c *Client) Whisper(targetRef string, payload any) error {
	frame, err := protocol.NewFrame(protocol.EventWhisper, targetRef, payload)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Client) enqueue(frame protocol.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	send := c.send
	connected := c.conn != nil
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	select {
	case send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn, events chan<- core.Event) {
	defer close(events)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "channel").Msg("readPump closing")
			return
		}
		ev, ok := decodeEvent(data)
		if !ok {
			continue
		}
		events <- ev
	}
}

func decodeEvent(data []byte) (core.Event, bool) {
	var frame protocol.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Str("module", "channel").Msg("bad frame")
		return core.Event{}, false
	}
	switch frame.Event {
	case protocol.EventShout, protocol.EventWhisper:
		var msg protocol.Message
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			log.Warn().Err(err).Str("module", "channel").Msg("bad shout payload")
			return core.Event{}, false
		}
		return core.Event{Broadcast: &msg}, true
	case protocol.EventMemberJoined:
		var m domain.Member
		if err := json.Unmarshal(frame.Payload, &m); err != nil {
			return core.Event{}, false
		}
		return core.Event{Joined: &m}, true
	case protocol.EventMemberLeft:
		var m domain.Member
		if err := json.Unmarshal(frame.Payload, &m); err != nil {
			return core.Event{}, false
		}
		return core.Event{Left: &m}, true
	case protocol.EventPresenceState:
		var members []domain.Member
		if err := json.Unmarshal(frame.Payload, &members); err != nil {
			return core.Event{}, false
		}
		return core.Event{Snapshot: members}, true
	default:
		log.Warn().Str("module", "channel").Str("event", frame.Event).Msg("unknown frame event")
		return core.Event{}, false
	}
}
