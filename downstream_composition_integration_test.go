package vdrpool_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	vdrpool "github.com/goliatone/go-vdrpool"
	vdrcommand "github.com/goliatone/go-vdrpool/command"
	"github.com/goliatone/go-vdrpool/core"
	"github.com/goliatone/go-vdrpool/providers/devkit"
	"github.com/goliatone/go-vdrpool/providers/genesis"
	vdrquery "github.com/goliatone/go-vdrpool/query"
	sqlstore "github.com/goliatone/go-vdrpool/store/sql"
)

func TestDownstreamComposition_GenesisFileJournalAndFacade(t *testing.T) {
	ctx := context.Background()

	genesisPath, err := devkit.WriteGenesisFile(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("write genesis file: %v", err)
	}

	client, err := sqlstore.OpenClient(ctx, sqlstore.ClientConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:downstream-%d?mode=memory&cache=shared", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	defer func() { _ = client.Close() }()
	journal, err := sqlstore.NewJournalStore(client.DB())
	if err != nil {
		t.Fatalf("journal store: %v", err)
	}

	hooks := vdrpool.NewExtensionHooks()
	if err := hooks.RegisterEngine(vdrpool.EnginePack{
		Name: "ledger",
		Factory: vdrpool.GenesisPoolFactory(genesis.WithResponder(genesis.ResponderFunc(
			func(_ context.Context, req *core.Request, nodes []genesis.Node) (core.RequestResult, core.RequestTiming, error) {
				if req.ReqID == 13 {
					return core.RequestResult{}, nil, core.NewPoolError(core.KindTimeout, "no consensus")
				}
				return core.Reply(fmt.Sprintf(`{"op":"REPLY","reqId":%d,"node":%q}`, req.ReqID, nodes[0].Alias)), nil, nil
			},
		))),
	}); err != nil {
		t.Fatalf("register engine: %v", err)
	}
	engine, err := hooks.WithEngine("ledger")
	if err != nil {
		t.Fatalf("resolve engine: %v", err)
	}

	svc, err := vdrpool.NewService(vdrpool.Config{}, engine, vdrpool.WithOperationJournal(journal))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer func() { _ = svc.Close(ctx) }()

	facade, err := vdrpool.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()

	if err := commands.CreatePool.Execute(ctx, vdrcommand.CreatePoolMessage{
		Source: core.PoolSource{GenesisPath: genesisPath},
	}); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	pools, err := facade.Queries().ListPools.Query(ctx, vdrquery.ListPoolsMessage{})
	if err != nil || len(pools) != 1 {
		t.Fatalf("list pools: %+v %v", pools, err)
	}
	poolHandle := pools[0].Handle

	type report struct {
		code    core.ErrorCode
		payload string
	}
	submit := func(reqID int64) report {
		t.Helper()
		requestHandle, code := svc.RegisterRequest(ctx, devkit.RequestBody("105", reqID))
		if code != core.CodeSuccess {
			t.Fatalf("register request %d: %v", reqID, code)
		}
		reports := make(chan report, 1)
		if err := commands.SubmitRequest.Execute(ctx, vdrcommand.SubmitRequestMessage{
			Pool:    poolHandle,
			Request: requestHandle,
			Callback: func(code core.ErrorCode, payload string) {
				reports <- report{code: code, payload: payload}
			},
		}); err != nil {
			t.Fatalf("submit %d: %v", reqID, err)
		}
		select {
		case got := <-reports:
			return got
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for request %d", reqID)
		}
		return report{}
	}

	ok := submit(12)
	if ok.code != core.CodeSuccess || !strings.Contains(ok.payload, `"node":"Node1"`) {
		t.Fatalf("unexpected reply %+v", ok)
	}
	failed := submit(13)
	if failed.code != core.CodePoolTimeout || failed.payload != "" {
		t.Fatalf("expected pool timeout without payload, got %+v", failed)
	}

	last, err := facade.Queries().LastError.Query(ctx, vdrquery.LastErrorMessage{})
	if err != nil {
		t.Fatalf("last error: %v", err)
	}
	if last.Code != core.CodePoolTimeout {
		t.Fatalf("expected last error to record the timeout, got %+v", last)
	}

	if err := commands.ClosePool.Execute(ctx, vdrcommand.ClosePoolMessage{Pool: poolHandle, Wait: true}); err != nil {
		t.Fatalf("close pool: %v", err)
	}

	ops, err := facade.Queries().ListOperations.Query(ctx, vdrquery.ListOperationsMessage{Pool: poolHandle, Limit: 10})
	if err != nil {
		t.Fatalf("list operations: %v", err)
	}
	statuses := map[core.OperationStatus]int{}
	for _, op := range ops {
		statuses[op.Status]++
	}
	if statuses[core.OperationStatusFailed] != 1 || statuses[core.OperationStatusSucceeded] != 3 {
		t.Fatalf("expected 3 succeeded and 1 failed operation, got %v", statuses)
	}
}
