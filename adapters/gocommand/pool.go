package gocommand

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	vdrcommand "github.com/goliatone/go-vdrpool/command"
	"github.com/goliatone/go-vdrpool/core"
	vdrquery "github.com/goliatone/go-vdrpool/query"
)

// PoolQueryService is what the built-in queries read from core.Service.
type PoolQueryService interface {
	vdrquery.LastErrorReader
	vdrquery.PoolLister
}

// Bindings tracks dispatcher subscriptions so they can be released together.
type Bindings struct {
	mu            sync.Mutex
	subscriptions []commanddispatcher.Subscription
}

func (b *Bindings) add(subscription commanddispatcher.Subscription) {
	if subscription == nil {
		return
	}
	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, subscription)
	b.mu.Unlock()
}

func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// Unsubscribe removes every subscription. It is safe to call more than once.
func (b *Bindings) Unsubscribe() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()
	for _, subscription := range subscriptions {
		subscription.Unsubscribe()
	}
}

// BindPoolCommands registers and subscribes every vdrpool command against
// service. On error the subscriptions made so far are released.
func BindPoolCommands(
	adapter *RegistryAdapter,
	service vdrcommand.PoolService,
	runnerOpts ...runner.Option,
) (*Bindings, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: pool service is required")
	}
	bindings := &Bindings{}
	steps := []func() error{
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewCreatePoolCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewSetPoolConfigCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewGetTransactionsCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewClosePoolCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewRegisterRequestCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewFreeRequestCommand(service), runnerOpts) },
		func() error { return bindCommand(bindings, adapter, vdrcommand.NewSubmitRequestCommand(service), runnerOpts) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	return bindings, nil
}

// BindPoolQueries registers the read side. reader and lister are optional;
// their queries are skipped when nil.
func BindPoolQueries(
	adapter *RegistryAdapter,
	service PoolQueryService,
	reader core.OperationReader,
	lister vdrquery.OperationLister,
	runnerOpts ...runner.Option,
) (*Bindings, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: pool query service is required")
	}
	bindings := &Bindings{}
	steps := []func() error{
		func() error { return bindQuery(bindings, adapter, vdrquery.NewLastErrorQuery(service), runnerOpts) },
		func() error { return bindQuery(bindings, adapter, vdrquery.NewListPoolsQuery(service), runnerOpts) },
	}
	if reader != nil {
		steps = append(steps, func() error {
			return bindQuery(bindings, adapter, vdrquery.NewGetOperationQuery(reader), runnerOpts)
		})
	}
	if lister != nil {
		steps = append(steps, func() error {
			return bindQuery(bindings, adapter, vdrquery.NewListOperationsQuery(lister), runnerOpts)
		})
	}
	for _, step := range steps {
		if err := step(); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	return bindings, nil
}

// DispatchCreatePool sends a CreatePoolMessage through the dispatcher and
// returns the handle the command stored.
func DispatchCreatePool(ctx context.Context, source core.PoolSource) (core.PoolHandle, error) {
	collector := command.NewResult[core.PoolHandle]()
	msg := vdrcommand.CreatePoolMessage{Source: source}
	if err := ValidateMessageContract(msg); err != nil {
		return 0, err
	}
	if err := Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return 0, err
	}
	handle, ok := collector.Load()
	if !ok {
		return 0, fmt.Errorf("gocommand: create pool produced no handle")
	}
	return handle, nil
}

// DispatchRegisterRequest sends a RegisterRequestMessage and returns the new
// request handle.
func DispatchRegisterRequest(ctx context.Context, body string) (core.RequestHandle, error) {
	collector := command.NewResult[core.RequestHandle]()
	msg := vdrcommand.RegisterRequestMessage{Body: body}
	if err := ValidateMessageContract(msg); err != nil {
		return 0, err
	}
	if err := Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return 0, err
	}
	handle, ok := collector.Load()
	if !ok {
		return 0, fmt.Errorf("gocommand: register request produced no handle")
	}
	return handle, nil
}

func bindCommand[T any](bindings *Bindings, adapter *RegistryAdapter, cmd command.Commander[T], runnerOpts []runner.Option) error {
	subscription, err := RegisterAndSubscribe(adapter, cmd, runnerOpts...)
	if err != nil {
		return err
	}
	bindings.add(subscription)
	return nil
}

func bindQuery[T any, R any](bindings *Bindings, adapter *RegistryAdapter, qry command.Querier[T, R], runnerOpts []runner.Option) error {
	subscription, err := RegisterAndSubscribeQuery(adapter, qry, runnerOpts...)
	if err != nil {
		return err
	}
	bindings.add(subscription)
	return nil
}
