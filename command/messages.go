package command

import (
	"strings"

	"github.com/goliatone/go-vdrpool/core"
)

const (
	TypeCreatePool      = "vdrpool.command.pool.create"
	TypeSetPoolConfig   = "vdrpool.command.pool_config.set"
	TypeGetTransactions = "vdrpool.command.pool.get_transactions"
	TypeClosePool       = "vdrpool.command.pool.close"
	TypeRegisterRequest = "vdrpool.command.request.register"
	TypeFreeRequest     = "vdrpool.command.request.free"
	TypeSubmitRequest   = "vdrpool.command.request.submit"
)

type CreatePoolMessage struct {
	Source core.PoolSource
}

func (CreatePoolMessage) Type() string { return TypeCreatePool }

func (m CreatePoolMessage) Validate() error {
	if strings.TrimSpace(m.Source.GenesisPath) == "" && len(m.Source.GenesisTransactions) == 0 {
		return commandValidationError("source", "genesis path or transactions are required")
	}
	return nil
}

type SetPoolConfigMessage struct {
	JSON string
}

func (SetPoolConfigMessage) Type() string { return TypeSetPoolConfig }

func (m SetPoolConfigMessage) Validate() error {
	if strings.TrimSpace(m.JSON) == "" {
		return commandValidationError("json", "pool config JSON is required")
	}
	return nil
}

// GetTransactionsMessage starts an asynchronous read. Callback fires once the
// pool answers; the command itself only reports whether dispatch succeeded.
type GetTransactionsMessage struct {
	Pool     core.PoolHandle
	Callback core.Callback
}

func (GetTransactionsMessage) Type() string { return TypeGetTransactions }

func (m GetTransactionsMessage) Validate() error {
	if m.Callback == nil {
		return commandValidationError("callback", "callback is required")
	}
	return nil
}

type ClosePoolMessage struct {
	Pool core.PoolHandle
	// Wait blocks until operations already dispatched against the pool have
	// reported.
	Wait bool
}

func (ClosePoolMessage) Type() string { return TypeClosePool }

func (ClosePoolMessage) Validate() error { return nil }

type RegisterRequestMessage struct {
	Body string
}

func (RegisterRequestMessage) Type() string { return TypeRegisterRequest }

func (m RegisterRequestMessage) Validate() error {
	if strings.TrimSpace(m.Body) == "" {
		return commandValidationError("body", "request body is required")
	}
	return nil
}

type FreeRequestMessage struct {
	Request core.RequestHandle
}

func (FreeRequestMessage) Type() string { return TypeFreeRequest }

func (FreeRequestMessage) Validate() error { return nil }

type SubmitRequestMessage struct {
	Pool     core.PoolHandle
	Request  core.RequestHandle
	Callback core.Callback
}

func (SubmitRequestMessage) Type() string { return TypeSubmitRequest }

func (m SubmitRequestMessage) Validate() error {
	if m.Callback == nil {
		return commandValidationError("callback", "callback is required")
	}
	return nil
}
