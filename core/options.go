package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	poolFactory     PoolFactory
	journal         OperationJournal
	pools           *PoolRegistry
	requests        *RequestRegistry
	lastError       *LastErrorSlot
	tracerName      string
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithPoolFactory(factory PoolFactory) Option {
	return func(b *serviceBuilder) {
		b.poolFactory = factory
	}
}

func WithOperationJournal(journal OperationJournal) Option {
	return func(b *serviceBuilder) {
		b.journal = journal
	}
}

// WithPoolRegistry lets several services share one pool table.
func WithPoolRegistry(registry *PoolRegistry) Option {
	return func(b *serviceBuilder) {
		b.pools = registry
	}
}

func WithRequestRegistry(registry *RequestRegistry) Option {
	return func(b *serviceBuilder) {
		b.requests = registry
	}
}

func WithLastErrorSlot(slot *LastErrorSlot) Option {
	return func(b *serviceBuilder) {
		b.lastError = slot
	}
}

func WithTracerName(name string) Option {
	return func(b *serviceBuilder) {
		b.tracerName = strings.TrimSpace(name)
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("vdrpool", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(),
		optionsResolver: GoOptionsResolver{},
		journal:         NopOperationJournal{},
		tracerName:      defaultTracerName,
	}
}

type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// CfgxConfigProvider merges the raw maps of its loaders, later loaders taking
// precedence, then builds a validated Config with cfgx.
type CfgxConfigProvider struct {
	Loaders []RawConfigLoader
}

func NewCfgxConfigProvider(loaders ...RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loaders: loaders}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil || len(p.Loaders) == 0 {
		return defaults, nil
	}
	merged := map[string]any{}
	for idx, loader := range p.Loaders {
		if loader == nil {
			continue
		}
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return Config{}, err
		}
		merged, err = mergeRawLayers(merged, normalizeRawConfig(raw), fmt.Sprintf("loader_%d", idx))
		if err != nil {
			return Config{}, err
		}
	}
	cfg, err := cfgx.Build[Config](merged,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeRawLayers overlays next on base using a two layer go-options stack.
func mergeRawLayers(base map[string]any, next map[string]any, name string) (map[string]any, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("base", 0),
			base,
			opts.WithSnapshotID[map[string]any]("base"),
		),
		opts.NewLayer(
			opts.NewScope(name, 10),
			next,
			opts.WithSnapshotID[map[string]any](name),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("core: config stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, fmt.Errorf("core: config merge failed: %w", err)
	}
	return merged.Value, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	pool := map[string]any{}
	set := func(key string, value any, zero bool) {
		if includeZero || !zero {
			pool[key] = value
		}
	}
	set("protocol_version", cfg.Pool.ProtocolVersion, cfg.Pool.ProtocolVersion == 0)
	set("freshness_threshold", cfg.Pool.FreshnessThreshold, cfg.Pool.FreshnessThreshold == 0)
	set("ack_timeout", cfg.Pool.AckTimeout, cfg.Pool.AckTimeout == 0)
	set("reply_timeout", cfg.Pool.ReplyTimeout, cfg.Pool.ReplyTimeout == 0)
	set("conn_request_limit", cfg.Pool.ConnRequestLimit, cfg.Pool.ConnRequestLimit == 0)
	set("conn_active_timeout", cfg.Pool.ConnActiveTimeout, cfg.Pool.ConnActiveTimeout == 0)
	set("request_read_nodes", cfg.Pool.RequestReadNodes, cfg.Pool.RequestReadNodes == 0)
	if len(pool) > 0 {
		layer["pool"] = pool
	}
	return layer
}
