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

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// Dependencies collects everything the dispatcher can be wired with. Nil
// fields fall back to defaults at construction time (nop metrics, resolved
// glog logger, built-in ed25519 verifier from config).
type Dependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	Verifier        Verifier
	Observer        InteractionObserver
	Bursts          BurstController
	Ledger          DeliveryLedger
	EventRecorder   InteractionEventRecorder
	Registry        *PendingRegistry
	RestClient      RestClient
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	// PersistenceClient is a *bun.DB or a go-persistence-bun client; the SQL
	// store factory resolves either.
	PersistenceClient any
}

type Option func(*Dependencies)

func WithLogger(logger Logger) Option {
	return func(d *Dependencies) {
		d.Logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(d *Dependencies) {
		d.LoggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(d *Dependencies) {
		d.MetricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(d *Dependencies) {
		d.ErrorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(d *Dependencies) {
		d.ErrorMapper = mapper
	}
}

func WithVerifier(verifier Verifier) Option {
	return func(d *Dependencies) {
		d.Verifier = verifier
	}
}

// WithVerifyFunc installs a custom verification function that fully replaces
// the built-in signature verifier.
func WithVerifyFunc(fn VerifyFunc) Option {
	return func(d *Dependencies) {
		d.Verifier = fn
	}
}

func WithObserver(observer InteractionObserver) Option {
	return func(d *Dependencies) {
		d.Observer = observer
	}
}

func WithObserverFunc(fn ObserverFunc) Option {
	return func(d *Dependencies) {
		d.Observer = fn
	}
}

func WithBurstController(controller BurstController) Option {
	return func(d *Dependencies) {
		d.Bursts = controller
	}
}

func WithDeliveryLedger(ledger DeliveryLedger) Option {
	return func(d *Dependencies) {
		d.Ledger = ledger
	}
}

func WithEventRecorder(recorder InteractionEventRecorder) Option {
	return func(d *Dependencies) {
		d.EventRecorder = recorder
	}
}

func WithPendingRegistry(registry *PendingRegistry) Option {
	return func(d *Dependencies) {
		d.Registry = registry
	}
}

func WithRestClient(client RestClient) Option {
	return func(d *Dependencies) {
		d.RestClient = client
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(d *Dependencies) {
		d.ConfigProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(d *Dependencies) {
		d.OptionsResolver = resolver
	}
}

func WithPersistenceClient(client any) Option {
	return func(d *Dependencies) {
		d.PersistenceClient = client
	}
}

// ResolveDependencies applies options over the default wiring.
func ResolveDependencies(cfg Config, options ...Option) Dependencies {
	deps := defaultDependencies(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&deps)
	}
	provider, logger := glog.Resolve(cfg.ServiceName, deps.LoggerProvider, deps.Logger)
	deps.LoggerProvider = provider
	deps.Logger = glog.Ensure(logger)
	return deps
}

func defaultDependencies(cfg Config) Dependencies {
	loggerProvider, logger := glog.Resolve(strings.TrimSpace(cfg.ServiceName), nil, nil)
	return Dependencies{
		Logger:          logger,
		LoggerProvider:  loggerProvider,
		MetricsRecorder: NopMetricsRecorder{},
		ErrorFactory:    goerrors.New,
		ErrorMapper:     defaultErrorMapper,
		ConfigProvider:  NewCfgxConfigProvider(nil),
		OptionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return interactionErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
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
	if includeZero || strings.TrimSpace(cfg.PublicKey) != "" {
		layer["public_key"] = cfg.PublicKey
	}
	if includeZero || cfg.ReplyTimeoutMS > 0 {
		layer["reply_timeout_ms"] = cfg.ReplyTimeoutMS
	}
	if includeZero || cfg.DeferOnTimeout {
		layer["defer_on_timeout"] = cfg.DeferOnTimeout
	}
	if includeZero || cfg.Debug {
		layer["debug"] = cfg.Debug
	}
	if includeZero || strings.TrimSpace(cfg.Rest.BaseURL) != "" || strings.TrimSpace(cfg.Rest.Token) != "" || cfg.Rest.TimeoutMS > 0 {
		layer["rest"] = map[string]any{
			"base_url":   cfg.Rest.BaseURL,
			"token":      cfg.Rest.Token,
			"timeout_ms": cfg.Rest.TimeoutMS,
		}
	}
	return layer
}
