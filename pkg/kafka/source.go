package kafka

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config holds Kafka source configuration
type Config struct {
	Brokers string
	Topic   string
	Group   string
}

// Source consumes backend events from a Kafka topic. It is an alternative
// to the websocket transport for deployments where the monitoring backend
// publishes its event feed to Kafka instead of serving it directly.
type Source struct {
	config *Config

	mu       sync.Mutex
	consumer *kafka.Consumer
}

// NewSource creates a Kafka event source
func NewSource(cfg *Config) (*Source, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}
	if cfg.Group == "" {
		cfg.Group = "clusterpulse_event_source"
	}
	return &Source{config: cfg}, nil
}

// Connect creates a consumer, subscribes to the event topic and starts the
// read loop. The returned channel carries raw event payloads and is closed
// when the consumer fails or the context is cancelled.
func (s *Source) Connect(ctx context.Context) (<-chan []byte, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  s.config.Brokers,
		"group.id":           s.config.Group,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	if err := consumer.Subscribe(s.config.Topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.config.Topic, err)
	}

	s.mu.Lock()
	if s.consumer != nil {
		s.consumer.Close()
	}
	s.consumer = consumer
	s.mu.Unlock()

	msgs := make(chan []byte, 256)
	go s.readLoop(ctx, consumer, msgs)

	return msgs, nil
}

// Close tears down the current consumer. Safe to call when not connected.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumer == nil {
		return nil
	}
	err := s.consumer.Close()
	s.consumer = nil
	return err
}

func (s *Source) readLoop(ctx context.Context, consumer *kafka.Consumer, msgs chan<- []byte) {
	defer close(msgs)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := consumer.ReadMessage(500 * time.Millisecond)
		if err != nil {
			if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			log.Printf("Kafka read error: %v", err)
			return
		}

		select {
		case msgs <- msg.Value:
		case <-ctx.Done():
			return
		}
	}
}
