package repository

import (
	"context"

	"portfoliochat/internal/domain/entity"
)

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
}
