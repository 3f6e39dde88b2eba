package vdrpool

import (
	"github.com/goliatone/go-vdrpool/core"
	"github.com/goliatone/go-vdrpool/providers/devkit"
	"github.com/goliatone/go-vdrpool/providers/genesis"
)

// GenesisPoolFactory builds pools from genesis transactions.
func GenesisPoolFactory(opts ...genesis.Option) core.PoolFactory {
	return genesis.NewPoolFactory(opts...)
}

// FakePoolFactory hands out scripted pools for tests and demos.
func FakePoolFactory(pools ...*devkit.FakePool) core.PoolFactory {
	return devkit.NewFakePoolFactory(pools...)
}

// DefaultEngines returns the hooks with the built-in engines registered
// under EngineGenesis and EngineFake.
func DefaultEngines() *ExtensionHooks {
	hooks := NewExtensionHooks()
	_ = hooks.RegisterEngine(EnginePack{Name: EngineGenesis, Factory: GenesisPoolFactory()})
	_ = hooks.RegisterEngine(EnginePack{Name: EngineFake, Factory: FakePoolFactory()})
	return hooks
}
