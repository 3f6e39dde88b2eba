package core

import (
	"context"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestServiceObservability_CreatePoolSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, _ := newTestService(t, &stubPool{},
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	mustCreatePool(t, svc)

	if !hasCounter(metrics.counters, "vdrpool.create_pool.total", "success") {
		t.Fatalf("expected vdrpool.create_pool.total success counter")
	}
	if !hasHistogram(metrics.histograms, "vdrpool.create_pool.duration_ms", "success") {
		t.Fatalf("expected vdrpool.create_pool.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "create_pool succeeded", "create_pool") {
		t.Fatalf("expected create_pool succeeded structured log")
	}
}

func TestServiceObservability_SubmitFailureCarriesCode(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, _ := newTestService(t, &stubPool{},
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	code := svc.SubmitRequest(context.Background(), PoolHandle(0), RequestHandle(0), func(ErrorCode, string) {})
	if code != CodeUnknownPoolHandle {
		t.Fatalf("expected unknown pool handle, got %s", code)
	}
	if !hasCounter(metrics.counters, "vdrpool.submit_request.total", "failure") {
		t.Fatalf("expected submit_request failure counter")
	}

	records := logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
	last := records[len(records)-1]
	if last.level != "error" || last.msg != "submit_request failed" {
		t.Fatalf("unexpected last log %q %q", last.level, last.msg)
	}
	if last.fields["code"] != int(CodeUnknownPoolHandle) {
		t.Fatalf("expected code field, got %#v", last.fields["code"])
	}
	if last.fields["text_code"] != TextCodeUnknownPoolHandle {
		t.Fatalf("expected text_code field, got %#v", last.fields["text_code"])
	}
}

func TestServiceObservability_AsyncCompletionIsObserved(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	pool := &stubPool{transactions: []string{"a"}, sync: true}
	svc, _ := newTestService(t, pool, WithMetricsRecorder(metrics))
	handle := mustCreatePool(t, svc)

	rec := newCallbackRecorder()
	if code := svc.GetTransactions(context.Background(), handle, rec.Callback()); code != CodeSuccess {
		t.Fatalf("get transactions: %s", code)
	}
	rec.wait(t)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	for _, counter := range metrics.counters {
		if counter.name == "vdrpool.get_transactions.total" {
			if counter.tags["pool_handle"] != handle.String() {
				t.Fatalf("expected pool_handle tag %s, got %q", handle, counter.tags["pool_handle"])
			}
			return
		}
	}
	t.Fatalf("expected get_transactions counter")
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level {
			continue
		}
		if item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}
