package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Sink batches Events and flushes them to a Publisher on a channel,
// amortizing the Redis round trip the way EventBatcher amortizes fsync:
// events accumulate until either BatchSize is reached or FlushInterval
// elapses, whichever comes first.
type Sink struct {
	publisher Publisher
	channel   string
	logger    zerolog.Logger

	queue        chan Event
	batchSize    int
	shutdownCh   chan struct{}
	shutdownDone chan struct{}
}

// Config controls Sink batching behavior.
type Config struct {
	Channel       string
	BatchSize     int
	FlushInterval time.Duration
}

// NewSink constructs a Sink. publisher and channel are required; a
// non-positive BatchSize or FlushInterval falls back to sane defaults.
func NewSink(publisher Publisher, cfg Config, logger zerolog.Logger) *Sink {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 50 * time.Millisecond
	}

	s := &Sink{
		publisher:    publisher,
		channel:      cfg.Channel,
		logger:       logger,
		queue:        make(chan Event, batchSize*2),
		batchSize:    batchSize,
		shutdownCh:   make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
	go s.loop(flushInterval)
	return s
}

// Emit queues an event for batched publication. Non-blocking: if the queue
// is full the event is dropped and logged, mirroring QueueEvent's
// drop-on-backpressure policy — telemetry must never add latency to a lock
// acquire/release.
func (s *Sink) Emit(e Event) {
	select {
	case s.queue <- e:
	default:
		s.logger.Warn().Str("kind", string(e.Kind)).Msg("telemetry: queue full, dropping event")
	}
}

func (s *Sink) loop(flushInterval time.Duration) {
	defer close(s.shutdownDone)

	batch := make([]Event, 0, s.batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.shutdownCh:
			if len(batch) > 0 {
				s.flush(batch)
			}
			for {
				select {
				case e := <-s.queue:
					s.flush([]Event{e})
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) flush(batch []Event) {
	payload, err := json.Marshal(batch)
	if err != nil {
		s.logger.Error().Err(err).Msg("telemetry: failed to marshal batch")
		return
	}
	if err := s.publisher.Publish(context.Background(), s.channel, payload); err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("telemetry: publish failed")
	}
}

// Shutdown flushes remaining events and stops the background loop.
func (s *Sink) Shutdown() {
	close(s.shutdownCh)
	<-s.shutdownDone
}
