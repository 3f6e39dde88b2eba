package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-vdrpool/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultOperationListLimit = 50

// JournalStore persists pool operations in the pool_operations table.
type JournalStore struct {
	db   *bun.DB
	repo repository.Repository[*operationRecord]
}

func NewJournalStore(db *bun.DB) (*JournalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*operationRecord](db, operationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid operation repository wiring: %w", err)
		}
	}
	return &JournalStore{db: db, repo: repo}, nil
}

func (s *JournalStore) Begin(ctx context.Context, op core.Operation) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: journal store is not configured")
	}
	if strings.TrimSpace(op.ID) == "" {
		op.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(op.Kind)) == "" {
		return fmt.Errorf("sqlstore: operation kind is required")
	}
	_, err := s.repo.Create(ctx, operationRecordFromDomain(op))
	return err
}

// Finish stamps the outcome on a pending operation. Success codes mark the
// row succeeded, everything else failed.
func (s *JournalStore) Finish(ctx context.Context, id string, outcome core.OperationOutcome) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: journal store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: operation id is required")
	}
	record, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		return err
	}
	completedAt := outcome.CompletedAt.UTC()
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	record.Code = int(outcome.Code)
	record.Detail = outcome.Detail
	record.CompletedAt = &completedAt
	record.UpdatedAt = completedAt
	record.Status = string(core.OperationStatusSucceeded)
	if outcome.Code != core.CodeSuccess {
		record.Status = string(core.OperationStatusFailed)
	}
	_, err = s.repo.Update(ctx, record, repository.UpdateByID(trimmedID))
	return err
}

func (s *JournalStore) Get(ctx context.Context, id string) (core.Operation, error) {
	if s == nil || s.repo == nil {
		return core.Operation{}, fmt.Errorf("sqlstore: journal store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.Operation{}, err
	}
	return record.toDomain(), nil
}

// ListByPool returns the newest operations of pool first.
func (s *JournalStore) ListByPool(ctx context.Context, pool core.PoolHandle, limit int) ([]core.Operation, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: journal store is not configured")
	}
	if pool == 0 {
		return nil, fmt.Errorf("sqlstore: pool handle is required")
	}
	if limit <= 0 {
		limit = defaultOperationListLimit
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.pool_handle = ?", int64(pool))
		}),
		repository.OrderBy("started_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Operation, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// PruneBefore deletes completed operations older than cutoff.
func (s *JournalStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: journal store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*operationRecord)(nil)).
		Where("completed_at IS NOT NULL").
		Where("completed_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}
