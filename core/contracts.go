package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TransactionsDone receives the outcome of Pool.GetTransactions.
type TransactionsDone func(transactions []string, err error)

// RequestDone receives the outcome of Pool.SendRequest. err reports failures
// that prevented a result altogether; result.Failed reports a request that
// reached the ledger and was rejected or could not reach consensus.
type RequestDone func(result RequestResult, timing RequestTiming, err error)

// Pool is a long lived connection to a validator pool. Implementations own
// their scheduling: the done functions may run on any goroutine, and must run
// exactly once for every call that returned a nil error.
type Pool interface {
	GetTransactions(ctx context.Context, done TransactionsDone) error
	SendRequest(ctx context.Context, req *Request, done RequestDone) error
	// Close stops the pool from accepting new work. Work already started is
	// allowed to complete and report through its done function.
	Close() error
}

// PoolFactory creates pools from a genesis source and the active pool config.
type PoolFactory interface {
	CreatePool(ctx context.Context, source PoolSource, cfg PoolConfig) (Pool, error)
}

type PoolFactoryFunc func(ctx context.Context, source PoolSource, cfg PoolConfig) (Pool, error)

func (f PoolFactoryFunc) CreatePool(ctx context.Context, source PoolSource, cfg PoolConfig) (Pool, error) {
	return f(ctx, source, cfg)
}

// PoolSource describes where the genesis transactions of a pool come from.
// GenesisPath takes precedence when both are set.
type PoolSource struct {
	GenesisPath         string
	GenesisTransactions []string
}

// RequestResult is either a reply body or a ledger level failure.
type RequestResult struct {
	Reply  string
	Failed error
}

func Reply(body string) RequestResult {
	return RequestResult{Reply: body}
}

func Failed(err error) RequestResult {
	return RequestResult{Failed: err}
}

type RequestTiming map[string]float64

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type OperationKind string

const (
	OperationCreatePool      OperationKind = "create_pool"
	OperationGetTransactions OperationKind = "get_transactions"
	OperationSubmitRequest   OperationKind = "submit_request"
	OperationClosePool       OperationKind = "close_pool"
)

type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusSucceeded OperationStatus = "succeeded"
	OperationStatusFailed    OperationStatus = "failed"
)

// Operation is a journal entry describing one boundary call.
type Operation struct {
	ID            string
	Kind          OperationKind
	PoolHandle    PoolHandle
	RequestHandle RequestHandle
	Status        OperationStatus
	Code          ErrorCode
	Detail        string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

type OperationOutcome struct {
	Code        ErrorCode
	Detail      string
	CompletedAt time.Time
}

// OperationJournal records boundary operations. Journal failures never change
// the outcome reported to the caller.
type OperationJournal interface {
	Begin(ctx context.Context, op Operation) error
	Finish(ctx context.Context, id string, outcome OperationOutcome) error
}

type OperationReader interface {
	Get(ctx context.Context, id string) (Operation, error)
}

type NopOperationJournal struct{}

func (NopOperationJournal) Begin(context.Context, Operation) error { return nil }

func (NopOperationJournal) Finish(context.Context, string, OperationOutcome) error { return nil }

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
