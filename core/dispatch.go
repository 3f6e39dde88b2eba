package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// dispatch is one in-flight asynchronous operation. It holds everything the
// completion path needs, so it stays valid after the pool has been removed
// from the registry.
type dispatch struct {
	service    *Service
	ctx        context.Context
	span       trace.Span
	entry      *poolEntry
	completion *Completion
	op         Operation
	fields     map[string]any
}

// GetTransactions starts retrieval of the pool's transactions. On success the
// callback receives them joined by newlines.
func (s *Service) GetTransactions(ctx context.Context, handle PoolHandle, cb Callback) ErrorCode {
	startedAt := s.now()
	fields := map[string]any{"pool_handle": uint64(handle)}
	if cb == nil {
		return s.reject(ctx, startedAt, OperationGetTransactions, inputError("no callback provided"), fields)
	}
	entry, err := s.acquirePool(handle)
	if err != nil {
		return s.reject(ctx, startedAt, OperationGetTransactions, err, fields)
	}

	d := s.startDispatch(ctx, OperationGetTransactions, entry, 0, cb, startedAt, fields)
	err = entry.pool.GetTransactions(d.ctx, func(transactions []string, err error) {
		if err != nil {
			d.fail(err)
			return
		}
		d.succeed(strings.Join(transactions, "\n"))
	})
	if err != nil {
		return d.abort(err)
	}
	return CodeSuccess
}

// SubmitRequest consumes the request behind requestHandle and sends it to the
// pool. The request handle is dead afterwards, whatever the outcome. An
// unknown pool handle leaves the request registered.
func (s *Service) SubmitRequest(
	ctx context.Context,
	handle PoolHandle,
	requestHandle RequestHandle,
	cb Callback,
) ErrorCode {
	startedAt := s.now()
	fields := map[string]any{
		"pool_handle":    uint64(handle),
		"request_handle": uint64(requestHandle),
	}
	if cb == nil {
		return s.reject(ctx, startedAt, OperationSubmitRequest, inputError("no callback provided"), fields)
	}
	entry, err := s.acquirePool(handle)
	if err != nil {
		return s.reject(ctx, startedAt, OperationSubmitRequest, err, fields)
	}
	req, err := s.requests.Remove(requestHandle)
	if err != nil {
		entry.inflight.Done()
		return s.reject(ctx, startedAt, OperationSubmitRequest, err, fields)
	}
	if req.TxnType != "" {
		fields["txn_type"] = req.TxnType
	}

	d := s.startDispatch(ctx, OperationSubmitRequest, entry, requestHandle, cb, startedAt, fields)
	err = entry.pool.SendRequest(d.ctx, req, func(result RequestResult, timing RequestTiming, err error) {
		if len(timing) > 0 {
			d.span.SetAttributes(attribute.Int("vdrpool.timing_entries", len(timing)))
		}
		switch {
		case err != nil:
			d.fail(err)
		case result.Failed != nil:
			d.fail(result.Failed)
		default:
			d.succeed(result.Reply)
		}
	})
	if err != nil {
		return d.abort(err)
	}
	return CodeSuccess
}

// acquirePool looks the pool up and registers one in-flight operation on it
// while the registry read lock is held, so a concurrent ClosePoolAndWait
// cannot miss it.
func (s *Service) acquirePool(handle PoolHandle) (*poolEntry, error) {
	return s.pools.Retain(handle, func(entry *poolEntry) {
		entry.inflight.Add(1)
	})
}

func (s *Service) startDispatch(
	ctx context.Context,
	kind OperationKind,
	entry *poolEntry,
	requestHandle RequestHandle,
	cb Callback,
	startedAt time.Time,
	fields map[string]any,
) *dispatch {
	spanCtx, span := s.tracer.Start(ctx, "vdrpool."+string(kind),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("vdrpool.pool_handle", int64(entry.handle)),
			attribute.Int64("vdrpool.request_handle", int64(requestHandle)),
		),
	)
	d := &dispatch{
		service:    s,
		ctx:        context.WithoutCancel(spanCtx),
		span:       span,
		entry:      entry,
		completion: NewCompletion(cb),
		op: Operation{
			ID:            newOperationID(),
			Kind:          kind,
			PoolHandle:    entry.handle,
			RequestHandle: requestHandle,
			Status:        OperationStatusPending,
			StartedAt:     startedAt,
		},
		fields: cloneFields(fields),
	}
	d.fields["operation_id"] = d.op.ID
	if err := s.journal.Begin(d.ctx, d.op); err != nil {
		s.logError(d.ctx, "journal begin failed", map[string]any{"operation_id": d.op.ID, "error": err.Error()})
	}
	return d
}

func (d *dispatch) succeed(payload string) {
	d.finish(CodeSuccess, payload, "")
}

func (d *dispatch) fail(err error) {
	code, detail := d.service.translator.Translate(err)
	message := ""
	if detail != nil {
		message = detail.Message
	}
	d.finish(code, "", message)
}

// finish fires the callback exactly once. Calls after the first one are
// ignored, which protects the caller from engines that report twice.
func (d *dispatch) finish(code ErrorCode, payload string, detail string) {
	cb := d.completion.Take()
	if cb == nil {
		return
	}
	defer d.entry.inflight.Done()

	s := d.service
	if err := s.journal.Finish(d.ctx, d.op.ID, OperationOutcome{
		Code:        code,
		Detail:      detail,
		CompletedAt: s.now(),
	}); err != nil {
		s.logError(d.ctx, "journal finish failed", map[string]any{"operation_id": d.op.ID, "error": err.Error()})
	}

	if code != CodeSuccess {
		d.span.SetStatus(otelcodes.Error, detail)
	} else {
		d.span.SetStatus(otelcodes.Ok, "")
	}
	d.span.SetAttributes(attribute.Int("vdrpool.code", int(code)))
	d.span.End()

	cb(code, payload)
	s.observeOperation(d.ctx, d.op.StartedAt, d.op.Kind, code, detail, d.fields)
}

// abort handles an engine that refused to schedule the operation: the
// callback is discarded and the failure is returned synchronously. If the
// engine already reported through done, that report stands.
func (d *dispatch) abort(err error) ErrorCode {
	if d.completion.Take() == nil {
		return CodeSuccess
	}
	defer d.entry.inflight.Done()

	s := d.service
	code, detail := s.translator.Translate(err)
	message := ""
	if detail != nil {
		message = detail.Message
	}
	if jerr := s.journal.Finish(d.ctx, d.op.ID, OperationOutcome{
		Code:        code,
		Detail:      message,
		CompletedAt: s.now(),
	}); jerr != nil {
		s.logError(d.ctx, "journal finish failed", map[string]any{"operation_id": d.op.ID, "error": jerr.Error()})
	}
	d.span.SetStatus(otelcodes.Error, message)
	d.span.End()

	fields := cloneFields(d.fields)
	fields["stage"] = "schedule"
	s.observeOperation(d.ctx, d.op.StartedAt, d.op.Kind, code, message, fields)
	return code
}

func newOperationID() string {
	return uuid.NewString()
}
