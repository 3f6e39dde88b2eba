package sqlstore

import (
	"time"

	"github.com/goliatone/go-vdrpool/core"
	"github.com/uptrace/bun"
)

type operationRecord struct {
	bun.BaseModel `bun:"table:pool_operations,alias:po"`

	ID            string     `bun:"id,pk"`
	Kind          string     `bun:"kind,notnull"`
	PoolHandle    int64      `bun:"pool_handle,notnull"`
	RequestHandle int64      `bun:"request_handle,notnull"`
	Status        string     `bun:"status,notnull"`
	Code          int        `bun:"code,notnull"`
	Detail        string     `bun:"detail,notnull"`
	StartedAt     time.Time  `bun:"started_at,notnull"`
	CompletedAt   *time.Time `bun:"completed_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func operationRecordFromDomain(op core.Operation) *operationRecord {
	status := op.Status
	if status == "" {
		status = core.OperationStatusPending
	}
	startedAt := op.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &operationRecord{
		ID:            op.ID,
		Kind:          string(op.Kind),
		PoolHandle:    int64(op.PoolHandle),
		RequestHandle: int64(op.RequestHandle),
		Status:        string(status),
		Code:          int(op.Code),
		Detail:        op.Detail,
		StartedAt:     startedAt,
		CompletedAt:   cloneTimePointer(op.CompletedAt),
	}
}

func (r *operationRecord) toDomain() core.Operation {
	if r == nil {
		return core.Operation{}
	}
	return core.Operation{
		ID:            r.ID,
		Kind:          core.OperationKind(r.Kind),
		PoolHandle:    core.PoolHandle(r.PoolHandle),
		RequestHandle: core.RequestHandle(r.RequestHandle),
		Status:        core.OperationStatus(r.Status),
		Code:          core.ErrorCode(r.Code),
		Detail:        r.Detail,
		StartedAt:     r.StartedAt.UTC(),
		CompletedAt:   cloneTimePointer(r.CompletedAt),
	}
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
