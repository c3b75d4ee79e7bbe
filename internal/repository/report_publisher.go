package repository

import (
	"context"

	"SellingView/internal/domain/models"
	"SellingView/internal/domain/repository"
	pkgkafka "SellingView/pkg/kafka"
)

// KafkaReportPublisher announces completed reports on a Kafka topic so
// downstream consumers (mailers, dashboards) can pick them up.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) repository.ReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.Report) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.AccountID), map[string]interface{}{
		"account_id":    r.AccountID,
		"account_name":  r.AccountName,
		"generated_at":  r.GeneratedAt.Unix(),
		"opportunities": len(r.Opportunities),
		"weeks":         len(r.Weeks),
		"overview":      r.Overview,
		"week_detail":   r.WeekDetail,
		"total_summary": r.TotalSummary,
	})
}
