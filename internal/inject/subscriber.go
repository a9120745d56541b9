package inject

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shortstrade/feedcore/internal/model"
)

// Handler receives decoded injection events.
type Handler interface {
	HandleInjection(ev model.InjectionEvent)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ev model.InjectionEvent)

func (f HandlerFunc) HandleInjection(ev model.InjectionEvent) { f(ev) }

// SubscriberConfig configures the side-channel subscriber.
type SubscriberConfig struct {
	URL                string
	APIKey             string
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		PingTimeout:        60 * time.Second,
		WriteTimeout:       5 * time.Second,
	}
}

// Subscriber maintains one side-channel connection, reconnecting with
// exponential backoff, and forwards decoded events to the handler.
type Subscriber struct {
	cfg     SubscriberConfig
	handler Handler
	logger  *slog.Logger

	// newClient is swappable for tests.
	newClient func(ClientConfig, *slog.Logger) Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	client  Client
	started bool
}

// NewSubscriber creates a subscriber. Events flow only after Start.
func NewSubscriber(cfg SubscriberConfig, handler Handler, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSubscriberConfig()
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	return &Subscriber{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		newClient: NewClient,
	}
}

// Start connects and begins delivering events. The first connection
// attempt happens synchronously so a bad URL surfaces immediately;
// later drops reconnect in the background.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	client, err := s.connect()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.run(client)

	s.logger.Info("injection subscriber started", "url", s.cfg.URL)
	return nil
}

// Stop disconnects and waits for the delivery goroutine to drain.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	client := s.client
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if client != nil {
		client.Close()
	}
	s.wg.Wait()
}

func (s *Subscriber) connect() (Client, error) {
	client := s.newClient(ClientConfig{
		URL:          s.cfg.URL,
		APIKey:       s.cfg.APIKey,
		PingTimeout:  s.cfg.PingTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BufferSize:   DefaultClientConfig().BufferSize,
	}, s.logger)

	if err := client.Connect(s.ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	return client, nil
}

// run consumes one connection until it fails, then reconnects.
func (s *Subscriber) run(client Client) {
	defer s.wg.Done()

	for {
		alive := true
		for alive {
			select {
			case <-s.ctx.Done():
				return
			case data, ok := <-client.Messages():
				if !ok {
					alive = false
					break
				}
				s.dispatch(client, data)
			case err := <-client.Errors():
				s.logger.Warn("side channel connection lost", "error", err)
				alive = false
			}
		}

		client.Close()

		client = s.reconnect()
		if client == nil {
			return
		}
	}
}

// dispatch decodes one frame and forwards inject events.
func (s *Subscriber) dispatch(client Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("undecodable side channel frame", "error", err)
		return
	}

	switch env.Type {
	case "inject":
		var msg InjectMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			s.logger.Warn("undecodable inject message", "error", err)
			return
		}
		ev := msg.Event
		if ev.ItemID == "" {
			ev.ItemID = uuid.NewString()
		}

		s.handler.HandleInjection(ev)
		s.ack(client, ev.ItemID)

	case "error":
		s.logger.Warn("side channel error frame", "msg", string(env.Msg))

	default:
		// Unknown frame types are forward compatibility, not failures
		s.logger.Debug("ignoring side channel frame", "type", env.Type)
	}
}

func (s *Subscriber) ack(client Client, itemID string) {
	data, err := json.Marshal(Ack{Type: "ack", ItemID: itemID})
	if err != nil {
		return
	}
	if err := client.Send(data); err != nil {
		s.logger.Debug("ack failed", "item_id", itemID, "error", err)
	}
}

// reconnect retries with exponential backoff until connected or stopped.
func (s *Subscriber) reconnect() Client {
	wait := s.cfg.ReconnectBaseDelay
	maxWait := s.cfg.ReconnectMaxDelay

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-time.After(wait):
		}

		s.logger.Info("attempting side channel reconnection")

		client, err := s.connect()
		if err != nil {
			s.logger.Warn("reconnection failed", "error", err)

			// Exponential backoff
			wait *= 2
			if wait > maxWait {
				wait = maxWait
			}
			continue
		}

		s.logger.Info("side channel reconnected")
		return client
	}
}
