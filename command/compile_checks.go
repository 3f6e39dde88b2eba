package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vdrpool/core"
)

var (
	_ gocmd.Commander[CreatePoolMessage]      = (*CreatePoolCommand)(nil)
	_ gocmd.Commander[SetPoolConfigMessage]   = (*SetPoolConfigCommand)(nil)
	_ gocmd.Commander[GetTransactionsMessage] = (*GetTransactionsCommand)(nil)
	_ gocmd.Commander[ClosePoolMessage]       = (*ClosePoolCommand)(nil)
	_ gocmd.Commander[RegisterRequestMessage] = (*RegisterRequestCommand)(nil)
	_ gocmd.Commander[FreeRequestMessage]     = (*FreeRequestCommand)(nil)
	_ gocmd.Commander[SubmitRequestMessage]   = (*SubmitRequestCommand)(nil)

	_ PoolService = (*core.Service)(nil)
)
