// Package events publishes per-route ingest summaries to Kafka for
// downstream consumers that want change notifications instead of polling
// the store.
package events

import (
	"encoding/json"
	"fmt"
	"log"

	"hotfeed/pipeline"

	"github.com/IBM/sarama"
)

// Publisher sends one JSON summary message per ingested route.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a synchronous producer to the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka %v: %w", brokers, err)
	}
	log.Printf("kafka publisher ready (topic: %s)", topic)
	return &Publisher{producer: producer, topic: topic}, nil
}

// Publish implements pipeline.Publisher. The route key is the message key
// so per-route ordering survives partitioning.
func (p *Publisher) Publish(summary pipeline.RouteSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(summary.Route),
		Value: sarama.ByteEncoder(b),
	})
	return err
}

// Close shuts the producer down.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
