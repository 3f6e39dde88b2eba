package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/goliatone/go-vdrpool/core"

var ErrPoolFactoryRequired = errors.New("core: pool factory is required")

// Service is the boundary in front of the pool and request registries. All
// methods are safe for concurrent use. Methods that start asynchronous work
// return immediately; a CodeSuccess return means the callback fires exactly
// once later, any other code means it never fires.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	factory         PoolFactory
	journal         OperationJournal
	pools           *PoolRegistry
	requests        *RequestRegistry
	lastError       *LastErrorSlot
	translator      *Translator
	tracer          trace.Tracer
	now             func() time.Time

	poolConfigMu sync.RWMutex
	poolConfig   PoolConfig
}

type poolEntry struct {
	handle    PoolHandle
	pool      Pool
	source    string
	createdAt time.Time
	inflight  sync.WaitGroup
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	PoolFactory     PoolFactory
	Journal         OperationJournal
	Pools           *PoolRegistry
	Requests        *RequestRegistry
	LastError       *LastErrorSlot
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("vdrpool", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("vdrpool"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.poolFactory == nil {
		return nil, ErrPoolFactoryRequired
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider()
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.journal == nil {
		builder.journal = NopOperationJournal{}
	}
	if builder.pools == nil {
		builder.pools = NewPoolRegistry()
	}
	if builder.requests == nil {
		builder.requests = NewRequestRegistry()
	}
	if builder.lastError == nil {
		builder.lastError = NewLastErrorSlot()
	}
	if builder.tracerName == "" {
		builder.tracerName = defaultTracerName
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		factory:         builder.poolFactory,
		journal:         builder.journal,
		pools:           builder.pools,
		requests:        builder.requests,
		lastError:       builder.lastError,
		translator:      NewTranslator(builder.lastError),
		tracer:          otel.Tracer(builder.tracerName),
		now: func() time.Time {
			return time.Now().UTC()
		},
		poolConfig: finalConfig.Pool,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		PoolFactory:     s.factory,
		Journal:         s.journal,
		Pools:           s.pools,
		Requests:        s.requests,
		LastError:       s.lastError,
	}
}

// PoolConfig returns the config applied to pools created from now on.
func (s *Service) PoolConfig() PoolConfig {
	s.poolConfigMu.RLock()
	defer s.poolConfigMu.RUnlock()
	return s.poolConfig
}

// SetPoolConfig overlays a JSON document onto the active pool config. Durations
// are given in seconds. Existing pools keep the config they were created with.
func (s *Service) SetPoolConfig(ctx context.Context, raw string) ErrorCode {
	startedAt := s.now()
	var patch poolConfigJSON
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		return s.reject(ctx, startedAt, "set_pool_config", WrapPoolError(err, KindInput, "invalid pool config JSON"), nil)
	}

	s.poolConfigMu.Lock()
	next := patch.apply(s.poolConfig)
	if err := next.Validate(); err != nil {
		s.poolConfigMu.Unlock()
		return s.reject(ctx, startedAt, "set_pool_config", WrapPoolError(err, KindConfig, "invalid pool config"), nil)
	}
	s.poolConfig = next
	s.poolConfigMu.Unlock()

	s.observeOperation(ctx, startedAt, "set_pool_config", CodeSuccess, "", nil)
	return CodeSuccess
}

// CreatePool asks the factory for a new pool and registers it under a fresh
// handle. Creation is synchronous.
func (s *Service) CreatePool(ctx context.Context, source PoolSource) (PoolHandle, ErrorCode) {
	startedAt := s.now()
	fields := map[string]any{"genesis_path": source.GenesisPath}

	pool, err := s.factory.CreatePool(ctx, source, s.PoolConfig())
	if err == nil && pool == nil {
		err = NewPoolError(KindUnexpected, "pool factory returned no pool")
	}
	if err != nil {
		return 0, s.reject(ctx, startedAt, OperationCreatePool, err, fields)
	}

	handle := NextPoolHandle()
	entry := &poolEntry{
		handle:    handle,
		pool:      pool,
		source:    describeSource(source),
		createdAt: startedAt,
	}
	if err := s.pools.Insert(handle, entry); err != nil {
		_ = pool.Close()
		return 0, s.reject(ctx, startedAt, OperationCreatePool, err, fields)
	}

	fields["pool_handle"] = uint64(handle)
	s.recordInstant(ctx, OperationCreatePool, handle, 0, startedAt)
	s.observeOperation(ctx, startedAt, OperationCreatePool, CodeSuccess, "", fields)
	return handle, CodeSuccess
}

// ClosePool removes the pool and tears it down. Operations already dispatched
// against the pool keep running and still fire their callbacks; ClosePool does
// not wait for them. Use ClosePoolAndWait to drain.
func (s *Service) ClosePool(ctx context.Context, handle PoolHandle) ErrorCode {
	startedAt := s.now()
	fields := map[string]any{"pool_handle": uint64(handle)}
	entry, err := s.pools.Remove(handle)
	if err != nil {
		return s.reject(ctx, startedAt, OperationClosePool, err, fields)
	}
	if err := entry.pool.Close(); err != nil {
		return s.reject(ctx, startedAt, OperationClosePool, err, fields)
	}
	s.recordInstant(ctx, OperationClosePool, handle, 0, startedAt)
	s.observeOperation(ctx, startedAt, OperationClosePool, CodeSuccess, "", fields)
	return CodeSuccess
}

// ClosePoolAndWait removes the pool, then blocks until every operation
// dispatched against it has fired its callback or ctx is done.
func (s *Service) ClosePoolAndWait(ctx context.Context, handle PoolHandle) ErrorCode {
	startedAt := s.now()
	fields := map[string]any{"pool_handle": uint64(handle), "stage": "drain"}
	entry, err := s.pools.Remove(handle)
	if err != nil {
		return s.reject(ctx, startedAt, OperationClosePool, err, fields)
	}
	closeErr := entry.pool.Close()
	if err := waitInflight(ctx, entry); err != nil {
		return s.reject(ctx, startedAt, OperationClosePool, err, fields)
	}
	if closeErr != nil {
		return s.reject(ctx, startedAt, OperationClosePool, closeErr, fields)
	}
	s.recordInstant(ctx, OperationClosePool, handle, 0, startedAt)
	s.observeOperation(ctx, startedAt, OperationClosePool, CodeSuccess, "", fields)
	return CodeSuccess
}

// RegisterRequest validates body and stores it for a single later submission.
func (s *Service) RegisterRequest(ctx context.Context, body string) (RequestHandle, ErrorCode) {
	startedAt := s.now()
	req, err := ParseRequest(body)
	if err != nil {
		return 0, s.reject(ctx, startedAt, "register_request", err, nil)
	}
	handle := NextRequestHandle()
	if err := s.requests.Insert(handle, req); err != nil {
		return 0, s.reject(ctx, startedAt, "register_request", err, nil)
	}
	return handle, CodeSuccess
}

// FreeRequest discards a request that was never submitted.
func (s *Service) FreeRequest(ctx context.Context, handle RequestHandle) ErrorCode {
	startedAt := s.now()
	if _, err := s.requests.Remove(handle); err != nil {
		return s.reject(ctx, startedAt, "free_request", err, map[string]any{"request_handle": uint64(handle)})
	}
	return CodeSuccess
}

// LastError returns the JSON detail of the most recent failure seen by this
// service, or "" if none occurred. The value is last-write-wins across all
// goroutines; read it right after the failing call.
func (s *Service) LastError() string {
	if s == nil {
		return ""
	}
	return s.lastError.JSON()
}

type PoolInfo struct {
	Handle    PoolHandle
	Source    string
	CreatedAt time.Time
}

// Pools describes the registered pools in handle order.
func (s *Service) Pools() []PoolInfo {
	if s == nil {
		return nil
	}
	handles := s.pools.Handles()
	out := make([]PoolInfo, 0, len(handles))
	for _, handle := range handles {
		entry, err := s.pools.Lookup(handle)
		if err != nil {
			continue
		}
		out = append(out, PoolInfo{
			Handle:    entry.handle,
			Source:    entry.source,
			CreatedAt: entry.createdAt,
		})
	}
	return out
}

func (s *Service) PoolHandles() []PoolHandle {
	if s == nil {
		return nil
	}
	return s.pools.Handles()
}

// PendingRequests reports how many registered requests were not consumed yet.
func (s *Service) PendingRequests() int {
	if s == nil {
		return 0
	}
	return s.requests.Len()
}

// Close removes and tears down every pool, waits for their in-flight
// operations (bounded by ctx) and drops unsubmitted requests.
func (s *Service) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	for handle, entry := range s.pools.Drain() {
		if err := entry.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("core: close pool %d: %w", uint64(handle), err))
		}
		if err := waitInflight(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("core: drain pool %d: %w", uint64(handle), err))
		}
	}
	s.requests.Drain()
	return errors.Join(errs...)
}

// reject translates err, logs the failure and returns the boundary code.
func (s *Service) reject(
	ctx context.Context,
	startedAt time.Time,
	operation OperationKind,
	err error,
	fields map[string]any,
) ErrorCode {
	code, detail := s.translator.Translate(err)
	message := ""
	if detail != nil {
		message = detail.Message
	}
	s.observeOperation(ctx, startedAt, operation, code, message, fields)
	return code
}

func (s *Service) recordInstant(
	ctx context.Context,
	kind OperationKind,
	pool PoolHandle,
	request RequestHandle,
	startedAt time.Time,
) {
	op := Operation{
		ID:            newOperationID(),
		Kind:          kind,
		PoolHandle:    pool,
		RequestHandle: request,
		Status:        OperationStatusPending,
		StartedAt:     startedAt,
	}
	if err := s.journal.Begin(ctx, op); err != nil {
		s.logError(ctx, "journal begin failed", map[string]any{"operation_id": op.ID, "error": err.Error()})
		return
	}
	if err := s.journal.Finish(ctx, op.ID, OperationOutcome{Code: CodeSuccess, CompletedAt: s.now()}); err != nil {
		s.logError(ctx, "journal finish failed", map[string]any{"operation_id": op.ID, "error": err.Error()})
	}
}

func waitInflight(ctx context.Context, entry *poolEntry) error {
	done := make(chan struct{})
	go func() {
		entry.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func describeSource(source PoolSource) string {
	if source.GenesisPath != "" {
		return source.GenesisPath
	}
	return fmt.Sprintf("inline(%d)", len(source.GenesisTransactions))
}
