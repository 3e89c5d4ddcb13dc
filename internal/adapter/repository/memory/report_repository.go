package memory

import (
	"context"

	"github.com/google/uuid"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
)

type reportRepository struct {
	store *Store
}

func NewReportRepository(store *Store) repository.ReportRepository {
	return &reportRepository{store: store}
}

func (r *reportRepository) Create(ctx context.Context, report *entity.Report) error {
	err := r.store.commit("report.create", func() error {
		report.ID = uuid.New().String()
		if report.Status == "" {
			report.Status = entity.ReportPending
		}
		report.MessageRef = entity.MessageRef(report.ConversationID, report.MessageID)
		report.CreatedAt = r.store.timestamp()
		cp := *report
		r.store.reports[report.ID] = &cp
		return nil
	})
	return wrapWrite(err, "Failed to report message")
}

// Reports returns every stored report. Moderation tooling reads this in dev mode.
func (s *Store) Reports() []*entity.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Report, 0, len(s.reports))
	for _, r := range s.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out
}
