// Package events публикует события о построенных маршрутах в Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// TypeRouteComputed тип события "маршрут построен"
const TypeRouteComputed = "route.computed"

// DefaultTopic топик по умолчанию
const DefaultTopic = "route.events"

const eventSource = "route-traffic-go"

// RouteComputedEvent данные события о построенном маршруте
type RouteComputedEvent struct {
	SessionID         string    `json:"session_id"`
	HistoryID         string    `json:"history_id,omitempty"`
	Generation        uint64    `json:"generation"`
	Mode              string    `json:"mode"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DistanceMeters    float64   `json:"distance_meters"`
	DurationSeconds   float64   `json:"duration_seconds"`
	DurationInTraffic float64   `json:"duration_in_traffic_seconds"`
	SegmentCount      int       `json:"segment_count"`
	HeavySegments     int       `json:"heavy_segments"`
	ComputedAt        time.Time `json:"computed_at"`
}

// Envelope конверт события в формате CloudEvents
type Envelope struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        string          `json:"type"`
	Time        time.Time       `json:"time"`
	ContentType string          `json:"datacontenttype"`
	Data        json.RawMessage `json:"data"`
}

// ParseData разбирает полезную нагрузку события
func (e Envelope) ParseData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Publisher публикует события о маршрутах
type Publisher interface {
	PublishRouteComputed(ctx context.Context, evt RouteComputedEvent) error
	Close() error
}

// messageWriter часть kafka.Writer, которая нужна издателю
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher издатель событий поверх kafka-go
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

// NewKafkaPublisher создает издателя для заданных брокеров
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// PublishRouteComputed отправляет событие; ключ сообщения - идентификатор сессии
func (p *KafkaPublisher) PublishRouteComputed(ctx context.Context, evt RouteComputedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	envelope := Envelope{
		ID:          uuid.New().String(),
		Source:      eventSource,
		Type:        TypeRouteComputed,
		Time:        time.Now().UTC(),
		ContentType: "application/json",
		Data:        data,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "ce_type", Value: []byte(TypeRouteComputed)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithFields(logrus.Fields{
			"topic":      p.topic,
			"session_id": evt.SessionID,
		}).WithError(err).Error("Не удалось отправить событие в Kafka")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      p.topic,
		"session_id": evt.SessionID,
		"event_id":   envelope.ID,
	}).Debug("Событие отправлено в Kafka")
	return nil
}

// Close закрывает writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher ничего не публикует; используется, когда брокеры не настроены
type NopPublisher struct{}

// PublishRouteComputed ничего не делает
func (NopPublisher) PublishRouteComputed(context.Context, RouteComputedEvent) error {
	return nil
}

// Close ничего не делает
func (NopPublisher) Close() error {
	return nil
}
