// Package satellite schedules downstream satellite imagery refreshes after a
// parcel boundary changes.
package satellite

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/stwalsh4118/orchard/internal/logger"
)

// Request asks the imagery worker to refresh one parcel. Bounds are
// [minLng, minLat, maxLng, maxLat].
type Request struct {
	ParcelID    int64      `json:"parcel_id"`
	Bounds      [4]float64 `json:"bounds"`
	RequestedAt time.Time  `json:"requested_at"`
}

// Publisher delivers refresh requests.
type Publisher interface {
	Publish(ctx context.Context, req Request) error
	Close() error
}

// KafkaPublisher sends requests to a topic keyed by parcel id, so all
// refreshes of one parcel land on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher dials brokers with a synchronous producer.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("satellite: create producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish sends req and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("satellite: marshal request: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(req.ParcelID, 10)),
		Value: sarama.ByteEncoder(body),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("satellite: send refresh for parcel %d: %w", req.ParcelID, err)
	}
	return nil
}

// Close closes the producer.
func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("satellite: close producer: %w", err)
	}
	return nil
}

// LogPublisher only logs requests. It stands in when no broker is configured.
type LogPublisher struct {
	Log *logger.Logger
}

// Publish logs req.
func (p LogPublisher) Publish(_ context.Context, req Request) error {
	p.Log.Info("Satellite refresh requested", map[string]interface{}{
		"parcel_id": req.ParcelID,
		"bounds":    req.Bounds,
	})
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
