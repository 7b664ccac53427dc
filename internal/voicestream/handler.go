// Package voicestream exposes a RecordingSession over a websocket. Text frames
// carry control events, binary frames carry audio for the speech capability.
package voicestream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/observability"
	"github.com/lexiqai/assist-gateway/internal/recording"
	"github.com/lexiqai/assist-gateway/internal/speech"
)

const writeWait = 10 * time.Second

// Control events sent by the client.
const (
	EventStart = "start"
	EventStop  = "stop"
	EventReset = "reset"
)

// Events sent by the server.
const (
	EventTranscript = "transcript"
	EventFinalized  = "finalized"
	EventError      = "error"
)

// Error messages sent to the client.
const (
	MsgUnavailable    = "Speech recognition is not available."
	MsgStartFailed    = "Failed to start speech recognition."
	MsgNotRecording   = "Not recording."
	MsgInvalidControl = "Invalid control message."
	MsgUnknownEvent   = "Unknown event."
)

// ControlMessage is a client text frame.
type ControlMessage struct {
	Event string `json:"event"`
}

// TranscriptMessage carries the transcript after each applied event.
type TranscriptMessage struct {
	Event     string `json:"event"`
	Committed string `json:"committed"`
	Interim   string `json:"interim"`
	Display   string `json:"display"`
	State     string `json:"state"`
}

// FinalizedMessage is sent once per stop with the committed text.
type FinalizedMessage struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// ErrorMessage reports a rejected control event.
type ErrorMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// CapabilityFactory returns the speech capability for one connection.
type CapabilityFactory func() speech.Capability

// Handler upgrades requests to websocket voice streams.
type Handler struct {
	newCapability CapabilityFactory
	upgrader      websocket.Upgrader
	logger        zerolog.Logger
}

// NewHandler creates a voice stream handler. An empty allowedOrigins accepts any origin.
func NewHandler(newCapability CapabilityFactory, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Handler{
		newCapability: newCapability,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: observability.WithComponent("voicestream"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{
		conn:       conn,
		capability: h.newCapability(),
	}
	c.session = recording.NewSession(c.capability, c)
	c.logger = h.logger.With().Str("session_id", c.session.ID()).Logger()

	c.logger.Info().Str("remote", r.RemoteAddr).Msg("Voice stream connected")
	c.readLoop(ctx)

	// Reset stops a running capability without sending a finalize to a closed socket.
	c.session.Reset()
	c.logger.Info().Msg("Voice stream closed")
}

// connection is one websocket client and the session it drives.
type connection struct {
	conn       *websocket.Conn
	capability speech.Capability
	session    *recording.Session
	logger     zerolog.Logger

	writeMu sync.Mutex
}

func (c *connection) readLoop(ctx context.Context) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.handleAudio(data)
		case websocket.TextMessage:
			c.handleControl(ctx, data)
		}
	}
}

func (c *connection) handleControl(ctx context.Context, data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to parse control message")
		c.sendError(MsgInvalidControl)
		return
	}

	switch msg.Event {
	case EventStart:
		err := c.session.Start(ctx)
		switch {
		case err == nil:
			c.sendSnapshot()
		case errors.Is(err, recording.ErrCapabilityUnavailable):
			c.sendError(MsgUnavailable)
		default:
			c.logger.Error().Err(err).Msg("Failed to start recording")
			observability.CaptureException(err, "voicestream")
			c.sendError(MsgStartFailed)
		}

	case EventStop:
		// The finalized message is sent by OnFinalize.
		if err := c.session.Stop(); err != nil {
			if errors.Is(err, recording.ErrNotRecording) {
				c.sendError(MsgNotRecording)
				return
			}
			c.logger.Error().Err(err).Msg("Error stopping recording")
		}

	case EventReset:
		c.session.Reset()
		c.sendSnapshot()

	default:
		c.logger.Debug().Str("event", msg.Event).Msg("Unknown control event")
		c.sendError(MsgUnknownEvent)
	}
}

// handleAudio forwards a chunk to the capability while recording.
func (c *connection) handleAudio(data []byte) {
	sink, ok := c.capability.(speech.AudioSink)
	if !ok {
		return
	}
	if c.session.State() != recording.StateRecording {
		observability.RecordError("audio_outside_recording", "voicestream")
		return
	}
	if err := sink.SendAudio(data); err != nil {
		c.logger.Debug().Err(err).Int("bytes", len(data)).Msg("Failed to forward audio")
		observability.RecordError("audio_forward_failed", "voicestream")
	}
}

// OnTranscript implements recording.Listener.
func (c *connection) OnTranscript(u recording.Update) {
	c.send(transcriptMessage(u))
}

// OnFinalize implements recording.Listener.
func (c *connection) OnFinalize(text string) {
	c.send(FinalizedMessage{Event: EventFinalized, Text: text})
}

func (c *connection) sendSnapshot() {
	c.send(transcriptMessage(c.session.Snapshot()))
}

func (c *connection) sendError(message string) {
	c.send(ErrorMessage{Event: EventError, Message: message})
}

func (c *connection) send(v interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write to voice stream")
	}
}

func transcriptMessage(u recording.Update) TranscriptMessage {
	return TranscriptMessage{
		Event:     EventTranscript,
		Committed: u.Committed,
		Interim:   u.Interim,
		Display:   u.Display,
		State:     u.State.String(),
	}
}
