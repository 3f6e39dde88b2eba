package devkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-vdrpool/core"
)

// PoolScript describes the outcome of one engine call. ScheduleErr is returned
// synchronously; the remaining fields are delivered through the done callback.
type PoolScript struct {
	Transactions []string
	Result       core.RequestResult
	Timing       core.RequestTiming
	Err          error
	ScheduleErr  error
}

// FakePool replays scripts in call order, repeating the last script once they
// run out. Completions are delivered on their own goroutine and can be held
// back with Hold until Release is called.
type FakePool struct {
	mu       sync.Mutex
	scripts  []PoolScript
	calls    int
	requests []core.Request
	gate     chan struct{}
	closed   int
	closeErr error
	pending  sync.WaitGroup
}

func NewFakePool(scripts ...PoolScript) *FakePool {
	return &FakePool{scripts: append([]PoolScript(nil), scripts...)}
}

func (p *FakePool) GetTransactions(_ context.Context, done core.TransactionsDone) error {
	if p == nil {
		return fmt.Errorf("devkit: fake pool is nil")
	}
	script, gate := p.next(nil)
	if script.ScheduleErr != nil {
		return script.ScheduleErr
	}
	txns := append([]string(nil), script.Transactions...)
	p.deliver(gate, func() { done(txns, script.Err) })
	return nil
}

func (p *FakePool) SendRequest(_ context.Context, req *core.Request, done core.RequestDone) error {
	if p == nil {
		return fmt.Errorf("devkit: fake pool is nil")
	}
	if req == nil {
		return core.NewPoolError(core.KindInput, "request is required")
	}
	script, gate := p.next(req)
	if script.ScheduleErr != nil {
		return script.ScheduleErr
	}
	timing := core.RequestTiming{}
	for node, elapsed := range script.Timing {
		timing[node] = elapsed
	}
	p.deliver(gate, func() { done(script.Result, timing, script.Err) })
	return nil
}

// Close records the teardown. Held completions are still delivered after
// Release.
func (p *FakePool) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return p.closeErr
}

// FailClose makes every later Close return err.
func (p *FakePool) FailClose(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// Hold parks completions scheduled from now on until Release.
func (p *FakePool) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate == nil {
		p.gate = make(chan struct{})
	}
}

func (p *FakePool) Release() {
	p.mu.Lock()
	gate := p.gate
	p.gate = nil
	p.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Wait blocks until every scheduled completion has been delivered.
func (p *FakePool) Wait() {
	p.pending.Wait()
}

func (p *FakePool) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *FakePool) Requests() []core.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Request(nil), p.requests...)
}

func (p *FakePool) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePool) next(req *core.Request) (PoolScript, chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	index := p.calls
	p.calls++
	if req != nil {
		p.requests = append(p.requests, *req)
	}
	switch {
	case index < len(p.scripts):
		return p.scripts[index], p.gate
	case len(p.scripts) > 0:
		return p.scripts[len(p.scripts)-1], p.gate
	default:
		return PoolScript{Result: core.Reply("{}")}, p.gate
	}
}

func (p *FakePool) deliver(gate chan struct{}, fn func()) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		if gate != nil {
			<-gate
		}
		fn()
	}()
}

// FakePoolFactory hands out pools in order and records what it was asked for.
type FakePoolFactory struct {
	mu      sync.Mutex
	pools   []*FakePool
	created int
	err     error
	sources []core.PoolSource
	configs []core.PoolConfig
}

// NewFakePoolFactory returns a factory serving pools in order. With no pools
// every call creates a fresh FakePool.
func NewFakePoolFactory(pools ...*FakePool) *FakePoolFactory {
	return &FakePoolFactory{pools: append([]*FakePool(nil), pools...)}
}

// FailWith makes every later CreatePool return err.
func (f *FakePoolFactory) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakePoolFactory) CreatePool(_ context.Context, source core.PoolSource, cfg core.PoolConfig) (core.Pool, error) {
	if f == nil {
		return nil, fmt.Errorf("devkit: fake pool factory is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, core.PoolSource{
		GenesisPath:         source.GenesisPath,
		GenesisTransactions: append([]string(nil), source.GenesisTransactions...),
	})
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	index := f.created
	f.created++
	if index < len(f.pools) {
		return f.pools[index], nil
	}
	pool := NewFakePool()
	f.pools = append(f.pools, pool)
	return pool, nil
}

// Pool returns the pool handed out by the index-th successful CreatePool.
func (f *FakePoolFactory) Pool(index int) *FakePool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.pools) {
		return nil
	}
	return f.pools[index]
}

func (f *FakePoolFactory) Configs() []core.PoolConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.PoolConfig(nil), f.configs...)
}

func (f *FakePoolFactory) Sources() []core.PoolSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.PoolSource(nil), f.sources...)
}

var (
	_ core.Pool        = (*FakePool)(nil)
	_ core.PoolFactory = (*FakePoolFactory)(nil)
)
