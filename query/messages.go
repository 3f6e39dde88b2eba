package query

import (
	"strings"

	"github.com/goliatone/go-vdrpool/core"
)

const (
	TypeLastError      = "vdrpool.query.last_error"
	TypeListPools      = "vdrpool.query.pools.list"
	TypeGetOperation   = "vdrpool.query.operation.get"
	TypeListOperations = "vdrpool.query.operations.list"
)

type LastErrorMessage struct{}

func (LastErrorMessage) Type() string { return TypeLastError }

func (LastErrorMessage) Validate() error { return nil }

type ListPoolsMessage struct{}

func (ListPoolsMessage) Type() string { return TypeListPools }

func (ListPoolsMessage) Validate() error { return nil }

type GetOperationMessage struct {
	ID string
}

func (GetOperationMessage) Type() string { return TypeGetOperation }

func (m GetOperationMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "operation id is required")
	}
	return nil
}

type ListOperationsMessage struct {
	Pool  core.PoolHandle
	Limit int
}

func (ListOperationsMessage) Type() string { return TypeListOperations }

func (m ListOperationsMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
