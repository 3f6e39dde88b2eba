package vdrpool

import (
	"github.com/goliatone/go-vdrpool/core"
	"github.com/goliatone/go-vdrpool/providers/genesis"
)

type Config = core.Config

type PoolConfig = core.PoolConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type PoolHandle = core.PoolHandle
type RequestHandle = core.RequestHandle
type ErrorCode = core.ErrorCode
type Callback = core.Callback
type PoolSource = core.PoolSource
type PoolInfo = core.PoolInfo

type Pool = core.Pool
type PoolFactory = core.PoolFactory
type OperationJournal = core.OperationJournal
type OperationReader = core.OperationReader

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithPoolFactory      = core.WithPoolFactory
	WithOperationJournal = core.WithOperationJournal
	WithLastErrorSlot    = core.WithLastErrorSlot
	WithTracerName       = core.WithTracerName
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds a Service backed by the genesis engine unless a
// WithPoolFactory option says otherwise.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	withDefaults := make([]Option, 0, len(opts)+1)
	withDefaults = append(withDefaults, core.WithPoolFactory(genesis.NewPoolFactory()))
	withDefaults = append(withDefaults, opts...)
	return core.NewService(cfg, withDefaults...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}
