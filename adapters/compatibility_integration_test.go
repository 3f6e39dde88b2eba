package adapters_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vdrpool/adapters/gocommand"
	"github.com/goliatone/go-vdrpool/adapters/gojob"
	"github.com/goliatone/go-vdrpool/adapters/gologger"
	vdrcommand "github.com/goliatone/go-vdrpool/command"
	"github.com/goliatone/go-vdrpool/core"
	"github.com/goliatone/go-vdrpool/providers/devkit"
	"github.com/goliatone/go-vdrpool/providers/genesis"
)

func TestRuntimeCompatibility_GenesisPoolThroughAdapters(t *testing.T) {
	ctx := context.Background()
	logger := &compatLogger{}

	responder := genesis.ResponderFunc(func(_ context.Context, req *core.Request, nodes []genesis.Node) (core.RequestResult, core.RequestTiming, error) {
		return core.Reply(`{"op":"REPLY","nodes":` + strconv.Itoa(len(nodes)) + `}`), core.RequestTiming{}, nil
	})
	opts := gologger.ServiceOptions(nil, logger)
	opts = append(opts, core.WithPoolFactory(genesis.NewPoolFactory(
		genesis.WithResponder(responder),
		genesis.WithLogger(logger),
	)))
	svc, err := core.NewService(core.Config{}, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close(ctx)

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	bindings, err := gocommand.BindPoolCommands(adapter, svc)
	if err != nil {
		t.Fatalf("bind commands: %v", err)
	}
	defer bindings.Unsubscribe()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	poolHandle, err := gocommand.DispatchCreatePool(ctx, core.PoolSource{GenesisTransactions: devkit.GenesisFixture(4)})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	requestHandle, err := gocommand.DispatchRegisterRequest(ctx, devkit.RequestBody("105", 77))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}

	queueProbe := &compatQueue{}
	if err := gojob.EnqueueSubmission(ctx, gojob.NewEnqueuerAdapter(queueProbe), poolHandle, requestHandle); err != nil {
		t.Fatalf("enqueue submission: %v", err)
	}

	results := make(chan string, 1)
	runner, err := core.NewSubmissionRunner(
		gojob.NewDequeuerAdapter(queueProbe, gojob.DefaultRetryPolicy()),
		svc,
		func(code core.ErrorCode, payload string) {
			if code != core.CodeSuccess {
				t.Errorf("unexpected submission code %v", code)
			}
			results <- payload
		},
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	hook := gojob.NewWorkerHookAdapter(gojob.NewLoggingHook(logger))
	delivery := queueProbe.peek()
	hook.OnStart(ctx, worker.Event{Delivery: delivery, Attempt: 1, StartedAt: time.Now()})
	if code, err := runner.RunOnce(ctx); err != nil || code != core.CodeSuccess {
		t.Fatalf("run once: %v %v", code, err)
	}
	hook.OnSuccess(ctx, worker.Event{Delivery: delivery, Attempt: 1, Duration: time.Millisecond})

	select {
	case payload := <-results:
		if payload != `{"op":"REPLY","nodes":4}` {
			t.Fatalf("unexpected reply %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for genesis reply")
	}
	if !delivery.acked {
		t.Fatalf("expected queued submission to be acked")
	}

	if err := gocommand.Dispatch(ctx, vdrcommand.ClosePoolMessage{Pool: poolHandle, Wait: true}); err != nil {
		t.Fatalf("close pool: %v", err)
	}
	if !logger.saw("vdrpool job succeeded") {
		t.Fatalf("expected worker hook to log through the shared logger")
	}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("", nil, logger)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}
}

type compatDelivery struct {
	msg   *job.ExecutionMessage
	acked bool
	nack  queue.NackOptions
}

func (d *compatDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *compatDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *compatDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.nack = opts
	return nil
}

type compatQueue struct {
	mu        sync.Mutex
	pending   []*compatDelivery
	delivered *compatDelivery
}

func (q *compatQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, &compatDelivery{msg: msg})
	return nil
}

func (q *compatQueue) Dequeue(context.Context) (queue.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, context.DeadlineExceeded
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.delivered = next
	return next, nil
}

func (q *compatQueue) peek() *compatDelivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) > 0 {
		return q.pending[0]
	}
	return q.delivered
}

type compatLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *compatLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *compatLogger) saw(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.messages {
		if got == msg {
			return true
		}
	}
	return false
}

func (l *compatLogger) Trace(msg string, _ ...any) { l.record(msg) }
func (l *compatLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *compatLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *compatLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *compatLogger) Error(msg string, _ ...any) { l.record(msg) }
func (l *compatLogger) Fatal(msg string, _ ...any) { l.record(msg) }
func (l *compatLogger) WithContext(context.Context) glog.Logger {
	return l
}
