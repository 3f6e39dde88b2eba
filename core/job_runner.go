package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	JobIDSubmitRequest = "vdrpool.request.submit"

	JobParamPoolHandle    = "pool_handle"
	JobParamRequestHandle = "request_handle"
)

// RequestSubmitter is the part of Service used by SubmissionRunner.
type RequestSubmitter interface {
	SubmitRequest(ctx context.Context, pool PoolHandle, request RequestHandle, cb Callback) ErrorCode
}

// NewSubmitRequestJob builds the queue message that submits request to pool.
func NewSubmitRequestJob(pool PoolHandle, request RequestHandle) *JobExecutionMessage {
	return &JobExecutionMessage{
		JobID: JobIDSubmitRequest,
		Parameters: map[string]any{
			JobParamPoolHandle:    uint64(pool),
			JobParamRequestHandle: uint64(request),
		},
		IdempotencyKey: fmt.Sprintf("%s:%d:%d", JobIDSubmitRequest, uint64(pool), uint64(request)),
	}
}

// SubmissionRunner drains queued submissions. A delivery is acked once the
// submission was accepted; rejections are permanent (the handles will not
// become valid later) so they are nacked without requeue.
type SubmissionRunner struct {
	dequeuer  JobDequeuer
	submitter RequestSubmitter
	callback  Callback
}

func NewSubmissionRunner(dequeuer JobDequeuer, submitter RequestSubmitter, cb Callback) (*SubmissionRunner, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("core: job dequeuer is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("core: request submitter is required")
	}
	if cb == nil {
		return nil, fmt.Errorf("core: submission callback is required")
	}
	return &SubmissionRunner{dequeuer: dequeuer, submitter: submitter, callback: cb}, nil
}

// RunOnce processes a single delivery and returns the submission code.
func (r *SubmissionRunner) RunOnce(ctx context.Context) (ErrorCode, error) {
	if r == nil || r.dequeuer == nil {
		return CodeUnexpected, fmt.Errorf("core: submission runner is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return CodeUnexpected, err
	}
	if delivery == nil {
		return CodeUnexpected, fmt.Errorf("core: dequeuer returned no delivery")
	}

	pool, request, err := submissionParams(delivery.Message())
	if err != nil {
		nackErr := delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: err.Error()})
		if nackErr != nil {
			return CodeInput, fmt.Errorf("%w (nack: %v)", err, nackErr)
		}
		return CodeInput, err
	}

	code := r.submitter.SubmitRequest(ctx, pool, request, r.callback)
	if code != CodeSuccess {
		reason := fmt.Sprintf("submit rejected with code %s", code)
		return code, delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: reason})
	}
	return code, delivery.Ack(ctx)
}

func submissionParams(msg *JobExecutionMessage) (PoolHandle, RequestHandle, error) {
	if msg == nil {
		return 0, 0, fmt.Errorf("core: job message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSubmitRequest {
		return 0, 0, fmt.Errorf("core: unexpected job id %q", msg.JobID)
	}
	pool, err := handleParam(msg.Parameters, JobParamPoolHandle)
	if err != nil {
		return 0, 0, err
	}
	request, err := handleParam(msg.Parameters, JobParamRequestHandle)
	if err != nil {
		return 0, 0, err
	}
	return PoolHandle(pool), RequestHandle(request), nil
}

func handleParam(params map[string]any, key string) (uint64, error) {
	switch typed := params[key].(type) {
	case uint64:
		return typed, nil
	case int:
		if typed >= 0 {
			return uint64(typed), nil
		}
	case int64:
		if typed >= 0 {
			return uint64(typed), nil
		}
	case float64:
		if typed >= 0 && typed == float64(uint64(typed)) {
			return uint64(typed), nil
		}
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed, nil
		}
	}
	return 0, fmt.Errorf("core: job parameter %s must be a non-negative integer", key)
}
