package vdrpool

import (
	"fmt"

	vdrcommand "github.com/goliatone/go-vdrpool/command"
	"github.com/goliatone/go-vdrpool/core"
	vdrquery "github.com/goliatone/go-vdrpool/query"
)

type CommandQueryService interface {
	vdrcommand.PoolService
	vdrquery.PoolLister
}

type Commands struct {
	CreatePool      *vdrcommand.CreatePoolCommand
	SetPoolConfig   *vdrcommand.SetPoolConfigCommand
	GetTransactions *vdrcommand.GetTransactionsCommand
	ClosePool       *vdrcommand.ClosePoolCommand
	RegisterRequest *vdrcommand.RegisterRequestCommand
	FreeRequest     *vdrcommand.FreeRequestCommand
	SubmitRequest   *vdrcommand.SubmitRequestCommand
}

// Queries holds the read side. GetOperation and ListOperations are nil when
// no journal reader is available.
type Queries struct {
	LastError      *vdrquery.LastErrorQuery
	ListPools      *vdrquery.ListPoolsQuery
	GetOperation   *vdrquery.GetOperationQuery
	ListOperations *vdrquery.ListOperationsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	operationReader core.OperationReader
	operationLister vdrquery.OperationLister
}

func WithOperationReader(reader core.OperationReader) FacadeOption {
	return func(options *facadeOptions) {
		options.operationReader = reader
	}
}

func WithOperationLister(lister vdrquery.OperationLister) FacadeOption {
	return func(options *facadeOptions) {
		options.operationLister = lister
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("vdrpool: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	journal := resolveJournal(service)
	reader := cfg.operationReader
	if reader == nil {
		reader, _ = journal.(core.OperationReader)
	}
	lister := cfg.operationLister
	if lister == nil {
		lister, _ = journal.(vdrquery.OperationLister)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreatePool:      vdrcommand.NewCreatePoolCommand(service),
		SetPoolConfig:   vdrcommand.NewSetPoolConfigCommand(service),
		GetTransactions: vdrcommand.NewGetTransactionsCommand(service),
		ClosePool:       vdrcommand.NewClosePoolCommand(service),
		RegisterRequest: vdrcommand.NewRegisterRequestCommand(service),
		FreeRequest:     vdrcommand.NewFreeRequestCommand(service),
		SubmitRequest:   vdrcommand.NewSubmitRequestCommand(service),
	}
	facade.queries = Queries{
		LastError: vdrquery.NewLastErrorQuery(service),
		ListPools: vdrquery.NewListPoolsQuery(service),
	}
	if reader != nil {
		facade.queries.GetOperation = vdrquery.NewGetOperationQuery(reader)
	}
	if lister != nil {
		facade.queries.ListOperations = vdrquery.NewListOperationsQuery(lister)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveJournal returns the journal configured on a core.Service, if any.
func resolveJournal(service CommandQueryService) core.OperationJournal {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	journal := provider.Dependencies().Journal
	if _, nop := journal.(core.NopOperationJournal); nop {
		return nil
	}
	return journal
}
