package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vdrpool/core"
)

var (
	_ gocmd.Querier[LastErrorMessage, LastErrorResult]       = (*LastErrorQuery)(nil)
	_ gocmd.Querier[ListPoolsMessage, []core.PoolInfo]       = (*ListPoolsQuery)(nil)
	_ gocmd.Querier[GetOperationMessage, core.Operation]     = (*GetOperationQuery)(nil)
	_ gocmd.Querier[ListOperationsMessage, []core.Operation] = (*ListOperationsQuery)(nil)

	_ LastErrorReader = (*core.Service)(nil)
	_ PoolLister      = (*core.Service)(nil)
)
