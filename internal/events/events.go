// Package events publishes object change notifications to Kafka.
package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/passwordkeyorg/s3s/internal/ids"
)

const (
	TypePut     = "object.put"
	TypeDeleted = "object.deleted"
)

type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	URI        string `json:"uri"`
	Codec      string `json:"codec,omitempty"`
	OccurredAt string `json:"occurred_at"`
	RemoteIP   string `json:"remote_ip,omitempty"`
}

// New stamps an event of type typ for uri with a fresh ULID.
func New(typ, uri string, now time.Time) Event {
	return Event{
		ID:         ids.New(now),
		Type:       typ,
		URI:        uri,
		OccurredAt: now.UTC().Format(time.RFC3339Nano),
	}
}

type Producer struct {
	W       *kafka.Writer
	Metrics interface {
		IncPublished()
		IncPublishError()
	}
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}
	return &Producer{W: w}
}

func (p *Producer) Close() error { return p.W.Close() }

// Publish writes ev keyed by its URI so events for one object stay ordered
// within a partition.
func (p *Producer) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.W.WriteMessages(ctx, kafka.Message{Key: []byte(ev.URI), Value: b})
	if p.Metrics != nil {
		if err != nil {
			p.Metrics.IncPublishError()
		} else {
			p.Metrics.IncPublished()
		}
	}
	return err
}
