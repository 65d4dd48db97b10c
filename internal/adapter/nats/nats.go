// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
)

const (
	streamName = "TASKDESK"

	// headerRequestID carries the request ID across the queue so handlers
	// log under the same correlation id as the publishing request.
	headerRequestID = "Request-ID"

	// dlqSuffix marks dead-letter subjects. Messages that fail schema
	// validation are parked there instead of being redelivered forever.
	dlqSuffix = ".dlq"
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// covering the task and workbasket history subjects exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"tasks.>", "workbaskets.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject, carrying the request ID
// from ctx as a message header. Payloads are validated on the consumer
// side so a bad producer cannot wedge a subscription.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header = nats.Header{headerRequestID: []string{reqID}}
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Messages
// failing schema validation are moved to the subject's dead-letter subject
// and acked; handler failures are nacked for redelivery.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		msgCtx := context.Background()
		if reqID := msg.Headers().Get(headerRequestID); reqID != "" {
			msgCtx = logger.WithRequestID(msgCtx, reqID)
		}

		if !strings.HasSuffix(msg.Subject(), dlqSuffix) {
			if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
				q.deadLetter(msgCtx, msg, err)
				return
			}
		}

		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			slog.ErrorContext(msgCtx, "message handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// deadLetter republishes an invalid message to its dead-letter subject and
// acks the original so it is not redelivered.
func (q *Queue) deadLetter(ctx context.Context, msg jetstream.Msg, cause error) {
	dlqSubject := msg.Subject() + dlqSuffix
	slog.WarnContext(ctx, "message failed validation, moving to dead letter",
		"subject", msg.Subject(), "dlq", dlqSubject, "error", cause)

	if _, err := q.js.Publish(ctx, dlqSubject, msg.Data()); err != nil {
		slog.Error("dead letter publish failed", "subject", dlqSubject, "error", err)
		// Leave the message unacked so it is retried later.
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "error", err)
	}
}

// Drain processes pending messages and closes the connection gracefully.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection immediately.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}

// KeyValue opens (creating if necessary) a JetStream KV bucket. Entries
// expire after ttl; per-key TTLs are not supported by JetStream KV, so
// callers share one lifetime per bucket.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv bucket %q: %w", bucket, err)
	}
	return kv, nil
}
