package core

import (
	"context"
	"errors"
	"testing"
)

type stubDelivery struct {
	msg   *JobExecutionMessage
	acked bool
	nacks []JobNackOptions
}

func (d *stubDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *stubDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *stubDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacks = append(d.nacks, opts)
	return nil
}

type stubDequeuer struct {
	deliveries []*stubDelivery
	err        error
}

func (q *stubDequeuer) Dequeue(context.Context) (JobDelivery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.deliveries) == 0 {
		return nil, errors.New("queue empty")
	}
	next := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return next, nil
}

func TestSubmissionRunner_AcksAcceptedSubmission(t *testing.T) {
	pool := &stubPool{result: Reply("ok")}
	svc, _ := newTestService(t, pool)
	handle := mustCreatePool(t, svc)
	request := mustRegisterRequest(t, svc, testRequestBody)

	delivery := &stubDelivery{msg: NewSubmitRequestJob(handle, request)}
	rec := newCallbackRecorder()
	runner, err := NewSubmissionRunner(&stubDequeuer{deliveries: []*stubDelivery{delivery}}, svc, rec.Callback())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	code, err := runner.RunOnce(context.Background())
	if err != nil || code != CodeSuccess {
		t.Fatalf("run once: %s %v", code, err)
	}
	if !delivery.acked || len(delivery.nacks) != 0 {
		t.Fatalf("expected ack only, got acked=%v nacks=%v", delivery.acked, delivery.nacks)
	}
	if result := rec.wait(t); result.payload != "ok" {
		t.Fatalf("unexpected payload %q", result.payload)
	}
}

func TestSubmissionRunner_NacksRejectedSubmission(t *testing.T) {
	svc, _ := newTestService(t, &stubPool{})
	handle := mustCreatePool(t, svc)

	delivery := &stubDelivery{msg: NewSubmitRequestJob(handle, RequestHandle(0))}
	runner, err := NewSubmissionRunner(&stubDequeuer{deliveries: []*stubDelivery{delivery}}, svc, func(ErrorCode, string) {})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	code, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if code != CodeUnknownRequestHandle {
		t.Fatalf("expected unknown request handle, got %s", code)
	}
	if delivery.acked || len(delivery.nacks) != 1 || delivery.nacks[0].Requeue {
		t.Fatalf("expected single nack without requeue, got %+v", delivery.nacks)
	}
}

func TestSubmissionRunner_BadParameters(t *testing.T) {
	svc, _ := newTestService(t, &stubPool{})
	cases := []*JobExecutionMessage{
		{JobID: "other.job"},
		{JobID: JobIDSubmitRequest, Parameters: map[string]any{JobParamPoolHandle: "1"}},
		{JobID: JobIDSubmitRequest, Parameters: map[string]any{JobParamPoolHandle: -1, JobParamRequestHandle: 1}},
	}
	for _, msg := range cases {
		delivery := &stubDelivery{msg: msg}
		runner, _ := NewSubmissionRunner(&stubDequeuer{deliveries: []*stubDelivery{delivery}}, svc, func(ErrorCode, string) {})
		code, err := runner.RunOnce(context.Background())
		if err == nil || code != CodeInput {
			t.Fatalf("expected input failure for %+v, got %s %v", msg, code, err)
		}
		if len(delivery.nacks) != 1 || !delivery.nacks[0].DeadLetter {
			t.Fatalf("expected dead-letter nack for %+v", msg)
		}
	}
}

func TestHandleParam_AcceptsNumericShapes(t *testing.T) {
	for _, value := range []any{uint64(5), 5, int64(5), float64(5), "5"} {
		got, err := handleParam(map[string]any{"h": value}, "h")
		if err != nil || got != 5 {
			t.Fatalf("expected 5 from %T, got %d %v", value, got, err)
		}
	}
	if _, err := handleParam(map[string]any{"h": 5.5}, "h"); err == nil {
		t.Fatalf("expected fractional handle to fail")
	}
}
