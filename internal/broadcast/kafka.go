package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaObserver forwards events to a topic, keyed by UIDresult so every
// scan of one tag lands on the same partition in order.
type KafkaObserver struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaObserver(log logrus.FieldLogger, topic string, brokers ...string) *KafkaObserver {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaObserver(w, log)
}

func newKafkaObserver(w messageWriter, log logrus.FieldLogger) *KafkaObserver {
	settings := gobreaker.Settings{
		Name:        "scan-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	}
	return &KafkaObserver{
		writer:  w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (k *KafkaObserver) Observe(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.UIDresult),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventUIDResult)},
		},
	}

	_, err = k.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, k.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (k *KafkaObserver) Close() error {
	return k.writer.Close()
}
