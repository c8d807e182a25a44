package interactions

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-interactions/adapters/gocommand"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/inbound"
	interactionsquery "github.com/goliatone/go-interactions/query"
	sqlstore "github.com/goliatone/go-interactions/store/sql"
	"github.com/goliatone/go-interactions/transport"
)

type Config = core.Config

type RestConfig = core.RestConfig

type Option = core.Option

type Dependencies = core.Dependencies

type Interaction = core.Interaction

type InteractionKind = core.InteractionKind

type InboundRequest = core.InboundRequest

type InboundResult = core.InboundResult

type DeliveryRecord = core.DeliveryRecord

type InteractionEvent = core.InteractionEvent

type PendingRegistry = core.PendingRegistry

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithVerifier          = core.WithVerifier
	WithVerifyFunc        = core.WithVerifyFunc
	WithObserver          = core.WithObserver
	WithObserverFunc      = core.WithObserverFunc
	WithBurstController   = core.WithBurstController
	WithDeliveryLedger    = core.WithDeliveryLedger
	WithEventRecorder     = core.WithEventRecorder
	WithPendingRegistry   = core.WithPendingRegistry
	WithRestClient        = core.WithRestClient
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Runtime bundles the wired collaborators behind one setup call: the inbound
// dispatcher, its HTTP host adapter, and the outbound REST client.
type Runtime struct {
	config     core.Config
	deps       core.Dependencies
	dispatcher *inbound.Dispatcher
	handler    http.Handler
}

// New builds a runtime from the given config as-is. Use Setup when the config
// should first pass through the configured provider and options resolver.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	deps := core.ResolveDependencies(cfg, opts...)
	return build(cfg, deps)
}

// Setup loads configuration through the configured provider, layers the
// runtime config on top, then builds the runtime.
func Setup(cfg Config, opts ...Option) (*Runtime, error) {
	deps := core.ResolveDependencies(cfg, opts...)

	resolved := cfg
	if deps.ConfigProvider != nil {
		loaded, err := deps.ConfigProvider.Load(context.Background(), core.DefaultConfig())
		if err != nil {
			return nil, mapSetupError(deps.ErrorMapper, err)
		}
		if deps.OptionsResolver != nil {
			resolved, err = deps.OptionsResolver.Resolve(core.DefaultConfig(), loaded, cfg)
			if err != nil {
				return nil, mapSetupError(deps.ErrorMapper, err)
			}
		} else {
			resolved = loaded
		}
	}
	if err := resolved.Validate(); err != nil {
		return nil, mapSetupError(deps.ErrorMapper, err)
	}
	return build(resolved, deps)
}

// mapSetupError routes setup failures through the configured error mapper so
// callers get the same envelope shape everywhere.
func mapSetupError(mapper core.ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func build(cfg Config, deps core.Dependencies) (*Runtime, error) {
	if deps.Registry == nil {
		deps.Registry = core.NewPendingRegistry()
	}
	if deps.RestClient == nil && strings.TrimSpace(cfg.Rest.BaseURL) != "" {
		deps.RestClient = transport.NewRESTClient(cfg.Rest, nil)
	}
	if deps.Ledger == nil && deps.PersistenceClient != nil {
		provider, err := sqlstore.NewRepositoryFactory().BuildStores(deps.PersistenceClient)
		if err != nil {
			return nil, mapSetupError(deps.ErrorMapper, err)
		}
		deps.Ledger = provider.DeliveryLedger()
		if deps.EventRecorder == nil {
			deps.EventRecorder = provider.EventRecorder()
		}
	}
	if deps.Observer == nil {
		deps.Observer = gocommand.NewObserver(deps.Logger)
	}

	dispatcher, err := inbound.New(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		config:     cfg,
		deps:       deps,
		dispatcher: dispatcher,
		handler: &transport.Handler{
			Processor: dispatcher,
			Logger:    deps.Logger,
		},
	}, nil
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Dispatcher() *inbound.Dispatcher {
	if r == nil {
		return nil
	}
	return r.dispatcher
}

// Handler returns the HTTP host adapter for the dispatcher.
func (r *Runtime) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

func (r *Runtime) Registry() *core.PendingRegistry {
	if r == nil {
		return nil
	}
	return r.deps.Registry
}

func (r *Runtime) RestClient() core.RestClient {
	if r == nil {
		return nil
	}
	return r.deps.RestClient
}

func (r *Runtime) Dependencies() core.Dependencies {
	if r == nil {
		return core.Dependencies{}
	}
	return r.deps
}

// Facade builds the command and query facade for this runtime's registry,
// REST client, and stores.
func (r *Runtime) Facade() (*Facade, error) {
	if r == nil {
		return nil, errNilRuntime
	}

	opts := []FacadeOption{}
	if r.deps.Ledger != nil {
		opts = append(opts, WithDeliveryReader(r.deps.Ledger))
	}
	if reader, ok := r.deps.EventRecorder.(interactionsquery.EventReader); ok {
		opts = append(opts, WithEventReader(reader))
	}
	return NewFacade(r.deps.Registry, r.deps.RestClient, opts...)
}
