package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
)

type firestoreReportRepository struct {
	client *firestore.Client
}

func NewFirestoreReportRepository(client *firestore.Client) repository.ReportRepository {
	return &firestoreReportRepository{
		client: client,
	}
}

func (r *firestoreReportRepository) Create(ctx context.Context, report *entity.Report) error {
	ref := r.client.Collection("reports").NewDoc()
	report.ID = ref.ID
	if report.Status == "" {
		report.Status = entity.ReportPending
	}
	report.MessageRef = entity.MessageRef(report.ConversationID, report.MessageID)

	_, err := ref.Create(ctx, map[string]interface{}{
		"messageRef":     report.MessageRef,
		"conversationId": report.ConversationID,
		"messageId":      report.MessageID,
		"reporterUid":    report.ReporterID,
		"reason":         report.Reason,
		"status":         report.Status,
		"createdAt":      firestore.ServerTimestamp,
	})
	if err != nil {
		return errors.WriteFailed("Failed to report message", err)
	}
	return nil
}
