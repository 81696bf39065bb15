package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// defaultMaxAttempts is how many deliveries a failing job gets before it is dropped.
const defaultMaxAttempts = 5

// JobHandler runs one decoded job message.
type JobHandler interface {
	Handle(ctx context.Context, msg JobMessage) error
}

// PubSubConfig holds configuration for the Pub/Sub consumer.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Jobs             JobHandler

	// MaxAttempts acks a failing message once its delivery attempt reaches
	// this count (default 5). Pub/Sub reports delivery attempts only when the
	// subscription has a dead letter policy; configure one so the count
	// survives worker restarts. Without it, attempts are counted per process.
	MaxAttempts int

	Logger zerolog.Logger
}

// PubSubHandler consumes job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	jobs         JobHandler
	maxAttempts  int
	logger       zerolog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// delivery is the part of a Pub/Sub message a job needs.
type delivery struct {
	ID          string
	PublishTime time.Time
	Data        []byte
	Attributes  map[string]string
	Attempt     int
}

func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.SubscriptionName)
	// A refresh run fans out on its own; keep few runs in flight.
	sub.ReceiveSettings.MaxOutstandingMessages = 2
	sub.ReceiveSettings.MaxExtension = 10 * time.Minute

	return newPubSubHandler(client, sub, cfg), nil
}

func newPubSubHandler(client *pubsub.Client, sub *pubsub.Subscriber, cfg PubSubConfig) *PubSubHandler {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &PubSubHandler{
		client:       client,
		subscriber:   sub,
		subscription: cfg.SubscriptionName,
		jobs:         cfg.Jobs,
		maxAttempts:  maxAttempts,
		logger:       cfg.Logger.With().Str("subscription", cfg.SubscriptionName).Logger(),
		attempts:     make(map[string]int),
	}
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Msg("pubsub consumer started")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		d := delivery{
			ID:          msg.ID,
			PublishTime: msg.PublishTime,
			Data:        msg.Data,
			Attributes:  msg.Attributes,
			Attempt:     h.attempt(msg.ID, msg.DeliveryAttempt),
		}

		if h.process(ctx, d) {
			h.forget(msg.ID)
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// attempt returns the delivery attempt Pub/Sub reported, or how many times
// this process has seen the message when the subscription reports none.
func (h *PubSubHandler) attempt(id string, reported *int) int {
	if reported != nil {
		return *reported
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts[id]++
	return h.attempts[id]
}

func (h *PubSubHandler) forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.attempts, id)
}

// Close releases the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// process runs one delivery and reports whether it should be acked.
// Unknown jobs and messages past their final attempt are acked so they
// are not redelivered forever.
func (h *PubSubHandler) process(ctx context.Context, d delivery) bool {
	start := time.Now()
	log := h.logger.With().
		Str("message_id", d.ID).
		Time("published", d.PublishTime).
		Int("attempt", d.Attempt).
		Logger()

	job, err := decodeDelivery(d)
	if err != nil {
		log.Error().Err(err).Msg("undecodable job message dropped")
		return true
	}
	log = log.With().Str("job_type", job.JobType).Logger()

	err = h.jobs.Handle(ctx, job)
	switch {
	case err == nil:
		log.Info().Dur("duration", time.Since(start)).Msg("job completed")
		return true
	case errors.Is(err, ErrUnknownJob):
		log.Warn().Msg("unknown job type dropped")
		return true
	case d.Attempt >= h.maxAttempts:
		log.Error().Err(err).Msg("job failed on final attempt, dropping")
		return true
	default:
		log.Error().Err(err).Msg("job failed, will be redelivered")
		return false
	}
}

// decodeDelivery reads the job from the JSON body, falling back to a
// job_type attribute for publishers that send an empty body.
func decodeDelivery(d delivery) (JobMessage, error) {
	if len(d.Data) == 0 {
		if jt := d.Attributes["job_type"]; jt != "" {
			return JobMessage{JobType: jt}, nil
		}
		return JobMessage{}, errors.New("empty job message")
	}
	return ParseJob(d.Data)
}
