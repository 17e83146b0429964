package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/events"
)

const forwardQueueSize = 256

// Record is the wire form of one bus event.
type Record struct {
	Device  string          `json:"device"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func (r Record) echoKey() string {
	return r.Topic + "\x00" + string(r.Payload)
}

// relayKey normalizes an incoming payload to the compact form json.Marshal
// produces on the sending side.
func relayKey(r Record) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Payload); err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}
	r.Payload = buf.Bytes()
	return r.echoKey(), nil
}

// Forwarder copies every local bus event to Kafka, keyed by device id.
// Sends happen off the publisher's goroutine; when the queue is full the
// event is dropped and logged.
type Forwarder struct {
	bus      *events.Bus
	pub      Publisher
	deviceID string
	logger   *zap.Logger

	queue chan Record
	stop  chan struct{}
	untap func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	echoes  map[string]int
	dropped int
}

func NewForwarder(bus *events.Bus, pub Publisher, deviceID string, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		bus:      bus,
		pub:      pub,
		deviceID: deviceID,
		logger:   logger.Named("forwarder"),
		queue:    make(chan Record, forwardQueueSize),
		stop:     make(chan struct{}),
		echoes:   make(map[string]int),
	}
}

// Start taps the bus and sends until ctx ends or Stop is called.
func (f *Forwarder) Start(ctx context.Context) {
	f.untap = f.bus.Tap(f.enqueue)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.stop:
				f.flush(ctx)
				return
			case rec := <-f.queue:
				f.send(ctx, rec)
			}
		}
	}()
}

// Stop untaps the bus, sends what is still queued and waits for the sender.
func (f *Forwarder) Stop() {
	if f.untap == nil {
		return
	}
	f.untap()
	f.untap = nil
	close(f.stop)
	f.wg.Wait()
}

func (f *Forwarder) flush(ctx context.Context) {
	for {
		select {
		case rec := <-f.queue:
			f.send(ctx, rec)
		default:
			return
		}
	}
}

func (f *Forwarder) send(ctx context.Context, rec Record) {
	if err := f.pub.Publish(ctx, f.deviceID, rec); err != nil {
		f.logger.Warn("failed to forward event", zap.String("topic", rec.Topic), zap.Error(err))
	}
}

// Dropped reports how many events were lost to a full queue.
func (f *Forwarder) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *Forwarder) enqueue(env events.Envelope) {
	payload, err := json.Marshal(env.Payload)
	if err != nil {
		f.logger.Warn("failed to encode event", zap.String("topic", env.Topic), zap.Error(err))
		return
	}
	rec := Record{Device: f.deviceID, Topic: env.Topic, Payload: payload, At: env.At}

	f.mu.Lock()
	echo := f.echoes[rec.echoKey()] > 0
	f.mu.Unlock()
	if echo {
		return
	}

	select {
	case f.queue <- rec:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		f.logger.Warn("forward queue full, dropping event", zap.String("topic", env.Topic))
	}
}

// expectEcho keeps events matching key from being sent while a relayed
// event is being published.
func (f *Forwarder) expectEcho(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echoes[key]++
}

func (f *Forwarder) forgetEcho(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.echoes[key] <= 1 {
		delete(f.echoes, key)
		return
	}
	f.echoes[key]--
}

// Relay republishes events from other devices on the local bus. Counts in
// relayed cart and list events describe the sender's cart and lists, so they
// are republished as unknown and listeners read their own.
type Relay struct {
	bus       *events.Bus
	deviceID  string
	forwarder *Forwarder
	logger    *zap.Logger
}

// NewRelay creates a relay. When forwarder is set, relayed events are kept
// from being forwarded again.
func NewRelay(bus *events.Bus, deviceID string, forwarder *Forwarder, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{bus: bus, deviceID: deviceID, forwarder: forwarder, logger: logger.Named("relay")}
}

// Handle is a MessageHandler. Records from this device are ignored.
func (r *Relay) Handle(ctx context.Context, key, value []byte) error {
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.Device == "" {
		rec.Device = string(key)
	}
	if rec.Device == r.deviceID {
		return nil
	}
	payload, err := withoutCounts(rec.Topic, rec.Payload)
	if err != nil {
		return err
	}
	rec.Payload = payload

	if r.forwarder != nil {
		echo, err := relayKey(rec)
		if err != nil {
			return err
		}
		r.forwarder.expectEcho(echo)
		defer r.forwarder.forgetEcho(echo)
	}
	if err := events.PublishJSON(r.bus, rec.Topic, rec.Payload); err != nil {
		return err
	}
	r.logger.Debug("relayed event", zap.String("topic", rec.Topic), zap.String("from", rec.Device))
	return nil
}

// withoutCounts replaces the counts of cart and list payloads with -1.
// Other payloads are returned as they are.
func withoutCounts(topic string, payload json.RawMessage) (json.RawMessage, error) {
	var masked any
	switch topic {
	case events.CartUpdated.Name():
		var s events.CartState
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", topic, err)
		}
		masked = events.UnknownCart(s.Remote)
	case events.WishlistUpdated.Name(), events.CompareUpdated.Name():
		var s events.ListState
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", topic, err)
		}
		s.Count = -1
		masked = s
	default:
		return payload, nil
	}
	return json.Marshal(masked)
}

// Run consumes records until ctx ends.
func (r *Relay) Run(ctx context.Context, c *Consumer) error {
	return c.Consume(ctx, r.Handle)
}
