package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stubPool is a scriptable Pool. Completions run on a new goroutine unless
// sync is set; when gate is non-nil they wait for it to close first.
type stubPool struct {
	mu sync.Mutex

	transactions []string
	txnErr       error
	result       RequestResult
	timing       RequestTiming
	sendErr      error
	scheduleErr  error
	closeErr     error
	reportTwice  bool
	sync         bool
	gate         chan struct{}

	sent   []*Request
	closed int
}

func (p *stubPool) GetTransactions(_ context.Context, done TransactionsDone) error {
	p.mu.Lock()
	scheduleErr := p.scheduleErr
	txns := append([]string(nil), p.transactions...)
	txnErr := p.txnErr
	p.mu.Unlock()
	if scheduleErr != nil {
		return scheduleErr
	}
	p.run(func() {
		done(txns, txnErr)
		if p.reportTwice {
			done(txns, txnErr)
		}
	})
	return nil
}

func (p *stubPool) SendRequest(_ context.Context, req *Request, done RequestDone) error {
	p.mu.Lock()
	scheduleErr := p.scheduleErr
	p.sent = append(p.sent, req)
	result, timing, sendErr := p.result, p.timing, p.sendErr
	p.mu.Unlock()
	if scheduleErr != nil {
		return scheduleErr
	}
	p.run(func() {
		done(result, timing, sendErr)
		if p.reportTwice {
			done(result, timing, sendErr)
		}
	})
	return nil
}

func (p *stubPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return p.closeErr
}

func (p *stubPool) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *stubPool) sentRequests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Request(nil), p.sent...)
}

func (p *stubPool) run(fn func()) {
	if p.sync {
		fn()
		return
	}
	gate := p.gate
	go func() {
		if gate != nil {
			<-gate
		}
		fn()
	}()
}

type stubFactory struct {
	mu      sync.Mutex
	pool    Pool
	err     error
	sources []PoolSource
	configs []PoolConfig
}

func (f *stubFactory) CreatePool(_ context.Context, source PoolSource, cfg PoolConfig) (Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

type stubLoggerProvider struct {
	logger Logger
}

func (p stubLoggerProvider) GetLogger(string) Logger { return p.logger }

type callbackResult struct {
	code    ErrorCode
	payload string
}

// callbackRecorder counts every invocation so tests can assert exactly-once
// delivery.
type callbackRecorder struct {
	mu    sync.Mutex
	calls []callbackResult
	ch    chan callbackResult
}

func newCallbackRecorder() *callbackRecorder {
	return &callbackRecorder{ch: make(chan callbackResult, 16)}
}

func (r *callbackRecorder) Callback() Callback {
	return func(code ErrorCode, payload string) {
		r.mu.Lock()
		r.calls = append(r.calls, callbackResult{code: code, payload: payload})
		r.mu.Unlock()
		r.ch <- callbackResult{code: code, payload: payload}
	}
}

func (r *callbackRecorder) wait(t *testing.T) callbackResult {
	t.Helper()
	select {
	case result := <-r.ch:
		return result
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
		return callbackResult{}
	}
}

func (r *callbackRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type memoryJournal struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]Operation
	beginErr error
}

func newMemoryJournal() *memoryJournal {
	return &memoryJournal{entries: map[string]Operation{}}
}

func (j *memoryJournal) Begin(_ context.Context, op Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.beginErr != nil {
		return j.beginErr
	}
	j.order = append(j.order, op.ID)
	j.entries[op.ID] = op
	return nil
}

func (j *memoryJournal) Finish(_ context.Context, id string, outcome OperationOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	op, ok := j.entries[id]
	if !ok {
		return errors.New("memory journal: unknown operation")
	}
	op.Code = outcome.Code
	op.Detail = outcome.Detail
	op.Status = OperationStatusSucceeded
	if outcome.Code != CodeSuccess {
		op.Status = OperationStatusFailed
	}
	completedAt := outcome.CompletedAt
	op.CompletedAt = &completedAt
	j.entries[id] = op
	return nil
}

func (j *memoryJournal) snapshot() []Operation {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Operation, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.entries[id])
	}
	return out
}

func newTestService(t *testing.T, pool Pool, opts ...Option) (*Service, *stubFactory) {
	t.Helper()
	factory := &stubFactory{pool: pool}
	all := append([]Option{WithPoolFactory(factory)}, opts...)
	svc, err := NewService(Config{}, all...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, factory
}

func mustCreatePool(t *testing.T, svc *Service) PoolHandle {
	t.Helper()
	handle, code := svc.CreatePool(context.Background(), PoolSource{GenesisPath: "testdata/genesis.txn"})
	if code != CodeSuccess {
		t.Fatalf("create pool: got %s, last error %s", code, svc.LastError())
	}
	return handle
}

func mustRegisterRequest(t *testing.T, svc *Service, body string) RequestHandle {
	t.Helper()
	handle, code := svc.RegisterRequest(context.Background(), body)
	if code != CodeSuccess {
		t.Fatalf("register request: got %s, last error %s", code, svc.LastError())
	}
	return handle
}

const testRequestBody = `{"reqId":1,"identifier":"V4SGRU86Z58d6TV7PBUe6f","operation":{"type":"105","dest":"V4SGRU86Z58d6TV7PBUe6f"},"protocolVersion":2}`
