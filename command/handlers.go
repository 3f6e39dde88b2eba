package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vdrpool/core"
)

// PoolService is the part of core.Service the commands drive.
type PoolService interface {
	CreatePool(ctx context.Context, source core.PoolSource) (core.PoolHandle, core.ErrorCode)
	SetPoolConfig(ctx context.Context, raw string) core.ErrorCode
	GetTransactions(ctx context.Context, pool core.PoolHandle, cb core.Callback) core.ErrorCode
	ClosePool(ctx context.Context, pool core.PoolHandle) core.ErrorCode
	ClosePoolAndWait(ctx context.Context, pool core.PoolHandle) core.ErrorCode
	RegisterRequest(ctx context.Context, body string) (core.RequestHandle, core.ErrorCode)
	FreeRequest(ctx context.Context, request core.RequestHandle) core.ErrorCode
	SubmitRequest(ctx context.Context, pool core.PoolHandle, request core.RequestHandle, cb core.Callback) core.ErrorCode
	LastError() string
}

type CreatePoolCommand struct {
	service PoolService
}

func NewCreatePoolCommand(service PoolService) *CreatePoolCommand {
	return &CreatePoolCommand{service: service}
}

func (c *CreatePoolCommand) Execute(ctx context.Context, msg CreatePoolMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	handle, code := c.service.CreatePool(ctx, msg.Source)
	if code != core.CodeSuccess {
		return codeError("create pool", code, c.service.LastError())
	}
	storeResult(ctx, handle)
	return nil
}

type SetPoolConfigCommand struct {
	service PoolService
}

func NewSetPoolConfigCommand(service PoolService) *SetPoolConfigCommand {
	return &SetPoolConfigCommand{service: service}
}

func (c *SetPoolConfigCommand) Execute(ctx context.Context, msg SetPoolConfigMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	if code := c.service.SetPoolConfig(ctx, msg.JSON); code != core.CodeSuccess {
		return codeError("set pool config", code, c.service.LastError())
	}
	return nil
}

type GetTransactionsCommand struct {
	service PoolService
}

func NewGetTransactionsCommand(service PoolService) *GetTransactionsCommand {
	return &GetTransactionsCommand{service: service}
}

func (c *GetTransactionsCommand) Execute(ctx context.Context, msg GetTransactionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	if code := c.service.GetTransactions(ctx, msg.Pool, msg.Callback); code != core.CodeSuccess {
		return codeError("get transactions", code, c.service.LastError())
	}
	return nil
}

type ClosePoolCommand struct {
	service PoolService
}

func NewClosePoolCommand(service PoolService) *ClosePoolCommand {
	return &ClosePoolCommand{service: service}
}

func (c *ClosePoolCommand) Execute(ctx context.Context, msg ClosePoolMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	var code core.ErrorCode
	if msg.Wait {
		code = c.service.ClosePoolAndWait(ctx, msg.Pool)
	} else {
		code = c.service.ClosePool(ctx, msg.Pool)
	}
	if code != core.CodeSuccess {
		return codeError("close pool", code, c.service.LastError())
	}
	return nil
}

type RegisterRequestCommand struct {
	service PoolService
}

func NewRegisterRequestCommand(service PoolService) *RegisterRequestCommand {
	return &RegisterRequestCommand{service: service}
}

func (c *RegisterRequestCommand) Execute(ctx context.Context, msg RegisterRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	handle, code := c.service.RegisterRequest(ctx, msg.Body)
	if code != core.CodeSuccess {
		return codeError("register request", code, c.service.LastError())
	}
	storeResult(ctx, handle)
	return nil
}

type FreeRequestCommand struct {
	service PoolService
}

func NewFreeRequestCommand(service PoolService) *FreeRequestCommand {
	return &FreeRequestCommand{service: service}
}

func (c *FreeRequestCommand) Execute(ctx context.Context, msg FreeRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	if code := c.service.FreeRequest(ctx, msg.Request); code != core.CodeSuccess {
		return codeError("free request", code, c.service.LastError())
	}
	return nil
}

type SubmitRequestCommand struct {
	service PoolService
}

func NewSubmitRequestCommand(service PoolService) *SubmitRequestCommand {
	return &SubmitRequestCommand{service: service}
}

func (c *SubmitRequestCommand) Execute(ctx context.Context, msg SubmitRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pool service is required")
	}
	if code := c.service.SubmitRequest(ctx, msg.Pool, msg.Request, msg.Callback); code != core.CodeSuccess {
		return codeError("submit request", code, c.service.LastError())
	}
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
