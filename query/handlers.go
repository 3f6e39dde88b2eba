package query

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-vdrpool/core"
)

type LastErrorReader interface {
	LastError() string
}

type PoolLister interface {
	Pools() []core.PoolInfo
}

type OperationLister interface {
	ListByPool(ctx context.Context, pool core.PoolHandle, limit int) ([]core.Operation, error)
}

// LastErrorResult is the decoded form of Service.LastError. Empty is set when
// no failure was recorded yet.
type LastErrorResult struct {
	Empty    bool           `json:"-"`
	Code     core.ErrorCode `json:"code"`
	TextCode string         `json:"text_code"`
	Message  string         `json:"message"`
	Extra    map[string]any `json:"extra,omitempty"`
	Raw      string         `json:"-"`
}

type LastErrorQuery struct {
	reader LastErrorReader
}

func NewLastErrorQuery(reader LastErrorReader) *LastErrorQuery {
	return &LastErrorQuery{reader: reader}
}

func (q *LastErrorQuery) Query(_ context.Context, _ LastErrorMessage) (LastErrorResult, error) {
	if q == nil || q.reader == nil {
		return LastErrorResult{}, queryDependencyError("query: last error reader is required")
	}
	raw := strings.TrimSpace(q.reader.LastError())
	if raw == "" {
		return LastErrorResult{Empty: true}, nil
	}
	out := LastErrorResult{Raw: raw}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return LastErrorResult{}, err
	}
	return out, nil
}

type ListPoolsQuery struct {
	lister PoolLister
}

func NewListPoolsQuery(lister PoolLister) *ListPoolsQuery {
	return &ListPoolsQuery{lister: lister}
}

func (q *ListPoolsQuery) Query(_ context.Context, _ ListPoolsMessage) ([]core.PoolInfo, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: pool lister is required")
	}
	return q.lister.Pools(), nil
}

type GetOperationQuery struct {
	reader core.OperationReader
}

func NewGetOperationQuery(reader core.OperationReader) *GetOperationQuery {
	return &GetOperationQuery{reader: reader}
}

func (q *GetOperationQuery) Query(ctx context.Context, msg GetOperationMessage) (core.Operation, error) {
	if q == nil || q.reader == nil {
		return core.Operation{}, queryDependencyError("query: operation reader is required")
	}
	return q.reader.Get(ctx, strings.TrimSpace(msg.ID))
}

type ListOperationsQuery struct {
	lister OperationLister
}

func NewListOperationsQuery(lister OperationLister) *ListOperationsQuery {
	return &ListOperationsQuery{lister: lister}
}

func (q *ListOperationsQuery) Query(ctx context.Context, msg ListOperationsMessage) ([]core.Operation, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: operation lister is required")
	}
	return q.lister.ListByPool(ctx, msg.Pool, msg.Limit)
}
