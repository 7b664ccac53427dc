package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/config"
	"github.com/lexiqai/assist-gateway/internal/observability"
	"github.com/lexiqai/assist-gateway/internal/resilience"
)

const deepgramService = "deepgram"

// messageCallbackHandler implements the LiveMessageCallback interface
// It embeds the default handler and overrides only the methods we need to customize
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler // Embed default handler for methods we don't override
	handler                                func(*msginterfaces.MessageResponse)
	errorHandler                           func(*msginterfaces.ErrorResponse) error
}

// Message overrides the default handler to forward transcriptions
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error overrides the default handler to use our custom error handling
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// liveStream is the part of the Deepgram websocket client the capability drives.
type liveStream interface {
	Write(p []byte) (int, error)
	Finish()
}

// Deepgram is a Capability backed by Deepgram's live transcription API.
// Audio is pushed by the caller through SendAudio.
type Deepgram struct {
	config         *config.Config
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
	dial           func(ctx context.Context) (liveStream, error)

	mu           sync.RWMutex
	client       liveStream
	out          chan<- RecognitionEvent
	running      bool // between Start and Stop
	connected    bool // websocket to Deepgram is up
	reconnecting bool
	sequence     int
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewDeepgramBreaker builds the circuit breaker guarding Deepgram. One breaker
// is shared by every stream so repeated upstream failures trip it process-wide.
func NewDeepgramBreaker(cfg *config.Config) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(
		deepgramService,
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
}

// NewDeepgram creates a Deepgram capability. It is unavailable when no API key
// is configured. A nil breaker gives the capability a breaker of its own.
func NewDeepgram(cfg *config.Config, breaker *resilience.CircuitBreaker) *Deepgram {
	if breaker == nil {
		breaker = NewDeepgramBreaker(cfg)
	}
	d := &Deepgram{
		config:         cfg,
		circuitBreaker: breaker,
		logger:         observability.WithComponent("speech").With().Str("provider", deepgramService).Logger(),
	}
	d.dial = d.dialDeepgram
	return d
}

func (d *Deepgram) IsAvailable() bool {
	return d.config.DeepgramAPIKey != ""
}

// Start opens a live transcription stream and forwards its results to out.
func (d *Deepgram) Start(ctx context.Context, out chan<- RecognitionEvent) error {
	if !d.IsAvailable() {
		return fmt.Errorf("deepgram API key is not configured")
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyActive
	}
	streamCtx, cancel := context.WithCancel(ctx)
	d.ctx, d.cancel = streamCtx, cancel
	d.out = out
	d.sequence = 0
	d.running = true
	d.mu.Unlock()

	err := d.circuitBreaker.Call(func() error { return d.connect(streamCtx) })
	d.updateBreakerMetrics(err)
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.out = nil
		d.mu.Unlock()
		cancel()
		return err
	}
	return nil
}

// connect dials Deepgram and installs the new client, provided ctx still
// belongs to the running stream.
func (d *Deepgram) connect(ctx context.Context) error {
	stream, err := d.dial(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if !d.running || d.ctx != ctx {
		d.mu.Unlock()
		stream.Finish()
		return ErrNotActive
	}
	superseded := d.client
	d.client = stream
	d.connected = true
	d.mu.Unlock()

	if superseded != nil {
		superseded.Finish()
	}

	d.logger.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Msg("Deepgram streaming client started")
	return nil
}

func (d *Deepgram) dialDeepgram(ctx context.Context) (liveStream, error) {
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		SmartFormat:    true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       d.config.DeepgramEncoding,
		Channels:       1,
		SampleRate:     d.config.DeepgramSampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleMessage,
		errorHandler:           d.handleError,
	}

	client, err := listenClient.NewWSUsingCallback(ctx, d.config.DeepgramAPIKey, nil, tOptions, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to create Deepgram client: %w", err)
	}
	if !client.Connect() {
		return nil, fmt.Errorf("failed to connect to Deepgram")
	}
	return client, nil
}

func (d *Deepgram) handleError(errorResponse *msginterfaces.ErrorResponse) error {
	d.logger.Error().Interface("error", errorResponse).Msg("Deepgram error")

	d.circuitBreaker.RecordResult(false)
	d.updateBreakerMetrics(fmt.Errorf("deepgram error"))

	d.disconnect(nil)
	return nil
}

// disconnect drops the live client and schedules a reconnect while the
// capability is running. A non-nil failed is only dropped if it is still the
// live client. At most one reconnect runs at a time.
func (d *Deepgram) disconnect(failed liveStream) {
	d.mu.Lock()
	if failed != nil && d.client != failed {
		d.mu.Unlock()
		return
	}
	stale := d.client
	ctx := d.ctx
	d.client = nil
	d.connected = false
	retry := d.running && !d.reconnecting && ctx != nil && ctx.Err() == nil
	if retry {
		d.reconnecting = true
	}
	d.mu.Unlock()

	// Finish waits on the client's callback goroutine, which may be our caller.
	if retry {
		go d.attemptReconnect(ctx, stale)
	} else if stale != nil {
		go stale.Finish()
	}
}

// handleMessage converts Deepgram results into RecognitionEvents.
func (d *Deepgram) handleMessage(msg *msginterfaces.MessageResponse) {
	ev, ok := d.toEvent(msg)
	if !ok {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		return
	}

	select {
	case d.out <- ev:
	default:
		d.logger.Warn().Int("sequence", ev.SequenceIndex).Msg("Recognition event channel full, dropping event")
		observability.RecordRecognitionEvent("dropped")
	}
}

// toEvent maps one message to an event. Interim results carry the index of the
// utterance in progress; each final result closes it and advances the index.
func (d *Deepgram) toEvent(msg *msginterfaces.MessageResponse) (RecognitionEvent, bool) {
	if msg == nil {
		return RecognitionEvent{}, false
	}

	switch msg.Type {
	case "Results", "Message":
	case "SpeechStarted", "UtteranceEnd", "Metadata":
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram event")
		return RecognitionEvent{}, false
	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram: received unknown message type")
		return RecognitionEvent{}, false
	}

	if len(msg.Channel.Alternatives) == 0 {
		return RecognitionEvent{}, false
	}
	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return RecognitionEvent{}, false
	}

	d.mu.Lock()
	seq := d.sequence
	if msg.IsFinal {
		d.sequence++
	}
	d.mu.Unlock()

	return RecognitionEvent{
		Text:          alt.Transcript,
		IsFinal:       msg.IsFinal,
		SequenceIndex: seq,
		Confidence:    alt.Confidence,
		Timestamp:     time.Now(),
	}, true
}

// SendAudio forwards one audio chunk to Deepgram.
func (d *Deepgram) SendAudio(audioData []byte) error {
	err := d.circuitBreaker.Call(func() error {
		d.mu.RLock()
		connected := d.connected
		client := d.client
		d.mu.RUnlock()

		if !connected || client == nil {
			return ErrNotActive
		}

		if _, err := client.Write(audioData); err != nil {
			d.disconnect(client)
			return fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}
		return nil
	})

	d.updateBreakerMetrics(err)
	if err == nil {
		observability.RecordAudioBytes("in", int64(len(audioData)))
	}
	return err
}

// attemptReconnect finishes the dropped client and re-dials Deepgram for the
// running stream.
func (d *Deepgram) attemptReconnect(ctx context.Context, stale liveStream) {
	defer func() {
		d.mu.Lock()
		d.reconnecting = false
		d.mu.Unlock()
	}()

	if stale != nil {
		stale.Finish()
	}

	reconnectConfig := &resilience.ReconnectConfig{
		MaxAttempts: d.config.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.config.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	reconnect := func() error { return d.connect(ctx) }
	if err := resilience.Reconnect(ctx, reconnect, reconnectConfig); err != nil {
		d.logger.Error().Err(err).Msg("Failed to reconnect Deepgram client")
		observability.RecordError("reconnect_failed", "speech")
		return
	}
	d.logger.Info().Msg("Successfully reconnected Deepgram client")
}

// Stop finishes the Deepgram stream and closes the event channel.
func (d *Deepgram) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}

	client := d.client
	d.cancel()
	d.client = nil
	d.connected = false
	d.running = false
	close(d.out)
	d.out = nil
	d.mu.Unlock()

	// Finish may wait on the callback goroutine, which takes d.mu.
	if client != nil {
		client.Finish()
	}

	d.logger.Info().Msg("Deepgram streaming client stopped")
	return nil
}

func (d *Deepgram) updateBreakerMetrics(err error) {
	observability.UpdateCircuitBreakerState(deepgramService, int(d.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures(deepgramService)
	}
}
