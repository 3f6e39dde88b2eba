package genesis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vdrpool/core"
)

// Responder answers ledger requests on behalf of a genesis pool.
type Responder interface {
	Respond(ctx context.Context, req *core.Request, nodes []Node) (core.RequestResult, core.RequestTiming, error)
}

type ResponderFunc func(ctx context.Context, req *core.Request, nodes []Node) (core.RequestResult, core.RequestTiming, error)

func (f ResponderFunc) Respond(ctx context.Context, req *core.Request, nodes []Node) (core.RequestResult, core.RequestTiming, error) {
	return f(ctx, req, nodes)
}

// Pool serves its genesis transactions and forwards requests to a Responder.
// Close stops new work; completions already scheduled still run.
type Pool struct {
	txns      *Transactions
	config    core.PoolConfig
	responder Responder
	logger    core.Logger
	closed    atomic.Bool
	pending   sync.WaitGroup
}

func NewPool(txns *Transactions, cfg core.PoolConfig, responder Responder, logger core.Logger) (*Pool, error) {
	if txns == nil || txns.Len() == 0 {
		return nil, core.NewPoolError(core.KindInput, "genesis transactions are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, core.WrapPoolError(err, core.KindConfig, "invalid pool config")
	}
	return &Pool{
		txns:      txns,
		config:    cfg,
		responder: responder,
		logger:    glog.Ensure(logger),
	}, nil
}

func (p *Pool) Config() core.PoolConfig {
	return p.config
}

func (p *Pool) GetTransactions(_ context.Context, done core.TransactionsDone) error {
	if err := p.accepting(); err != nil {
		return err
	}
	if done == nil {
		return core.NewPoolError(core.KindInput, "completion is required")
	}
	lines := p.txns.Lines()
	p.spawn(func() { done(lines, nil) })
	return nil
}

func (p *Pool) SendRequest(ctx context.Context, req *core.Request, done core.RequestDone) error {
	if err := p.accepting(); err != nil {
		return err
	}
	if req == nil {
		return core.NewPoolError(core.KindInput, "request is required")
	}
	if done == nil {
		return core.NewPoolError(core.KindInput, "completion is required")
	}
	if p.responder == nil {
		return core.NewPoolError(core.KindUnavailable, "no ledger responder configured")
	}

	nodes := p.txns.Nodes()
	if req.ReadLike && p.config.RequestReadNodes > 0 && len(nodes) > p.config.RequestReadNodes {
		nodes = nodes[:p.config.RequestReadNodes]
	}
	p.spawn(func() {
		callCtx, cancel := context.WithTimeout(ctx, p.config.ReplyTimeout)
		defer cancel()
		startedAt := time.Now()
		result, timing, err := p.respond(callCtx, req, nodes)
		if err != nil {
			p.logger.Warn("genesis request failed",
				"req_id", req.ReqID,
				"txn_type", req.TxnType,
				"elapsed_ms", time.Since(startedAt).Milliseconds(),
				"request", core.RedactRequestBody(req.Body),
				"error", err.Error(),
			)
		}
		done(result, timing, err)
	})
	return nil
}

// Close marks the pool closed. It is idempotent.
func (p *Pool) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.logger.Debug("genesis pool closed", "transactions", p.txns.Len())
	}
	return nil
}

// Wait blocks until every scheduled completion has run.
func (p *Pool) Wait() {
	p.pending.Wait()
}

func (p *Pool) accepting() error {
	if p == nil {
		return core.NewPoolError(core.KindUnavailable, "pool is nil")
	}
	if p.closed.Load() {
		return core.NewPoolError(core.KindUnavailable, "pool is closed")
	}
	return nil
}

func (p *Pool) spawn(fn func()) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		fn()
	}()
}

func (p *Pool) respond(ctx context.Context, req *core.Request, nodes []Node) (result core.RequestResult, timing core.RequestTiming, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result, timing = core.RequestResult{}, nil
			err = core.NewPoolError(core.KindUnexpected, fmt.Sprintf("responder panic: %v", recovered))
		}
	}()
	result, timing, err = p.responder.Respond(ctx, req, nodes)
	if err == nil {
		return result, timing, nil
	}
	var poolErr *core.PoolError
	switch {
	case errors.As(err, &poolErr):
		return result, timing, err
	case errors.Is(err, context.DeadlineExceeded):
		return result, timing, core.WrapPoolError(err, core.KindTimeout, "no reply before reply_timeout")
	default:
		return result, timing, core.WrapPoolError(err, core.KindConnection, "ledger responder failed")
	}
}

type Option func(*PoolFactory)

func WithResponder(responder Responder) Option {
	return func(f *PoolFactory) {
		f.responder = responder
	}
}

func WithLogger(logger core.Logger) Option {
	return func(f *PoolFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// PoolFactory builds genesis pools for core.Service.
type PoolFactory struct {
	responder Responder
	logger    core.Logger
}

func NewPoolFactory(opts ...Option) *PoolFactory {
	factory := &PoolFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	factory.logger = glog.Ensure(factory.logger)
	return factory
}

func (f *PoolFactory) CreatePool(ctx context.Context, source core.PoolSource, cfg core.PoolConfig) (core.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txns, err := FromSource(source)
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(txns, cfg, f.responder, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("genesis pool created",
		"genesis_path", source.GenesisPath,
		"transactions", txns.Len(),
		"nodes", len(txns.Nodes()),
		"protocol_version", cfg.ProtocolVersion,
	)
	return pool, nil
}

var (
	_ core.Pool        = (*Pool)(nil)
	_ core.PoolFactory = (*PoolFactory)(nil)
)
