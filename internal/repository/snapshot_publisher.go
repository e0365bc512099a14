package repository

import (
	"context"

	"Warboard/internal/domain/models"
	"Warboard/internal/domain/repository"
	pkgkafka "Warboard/pkg/kafka"
	"Warboard/pkg/metrics"
)

// KafkaSnapshotPublisher implements Publisher for Kafka. Snapshots are
// keyed by source name so one partition carries one source in order.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	recorder *metrics.Recorder
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string, recorder *metrics.Recorder) repository.Publisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic, recorder: recorder}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.Snapshot) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(s.Source), s); err != nil {
		return err
	}
	if p.recorder != nil {
		p.recorder.RecordSnapshot("kafka", s.Source)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) PublishBatch(ctx context.Context, snapshots []*models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, len(snapshots))
	for i, s := range snapshots {
		msgs[i] = pkgkafka.Message{Key: []byte(s.Source), Value: s}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return err
	}
	if p.recorder != nil {
		for _, s := range snapshots {
			p.recorder.RecordSnapshot("kafka", s.Source)
		}
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
