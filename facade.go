package interactions

import (
	"fmt"

	interactionscommand "github.com/goliatone/go-interactions/command"
	"github.com/goliatone/go-interactions/core"
	interactionsquery "github.com/goliatone/go-interactions/query"
)

var errNilRuntime = fmt.Errorf("interactions: runtime is nil")

// Commands groups the command-bus handlers for a wired runtime. The resolver
// commands act on in-flight interactions; the webhook commands call back into
// the platform after the initial exchange is closed.
type Commands struct {
	Resolve        *interactionscommand.ResolveInteractionCommand
	Expire         *interactionscommand.ExpireInteractionCommand
	SendFollowup   *interactionscommand.SendFollowupCommand
	EditOriginal   *interactionscommand.EditOriginalCommand
	DeleteOriginal *interactionscommand.DeleteOriginalCommand
}

// Queries groups the read-side handlers. Handlers built without their reader
// return a dependency error when queried rather than failing construction.
type Queries struct {
	GetDelivery             *interactionsquery.GetDeliveryQuery
	ListInteractionEvents   *interactionsquery.ListInteractionEventsQuery
	ListPendingInteractions *interactionsquery.ListPendingInteractionsQuery
}

type facadeConfig struct {
	deliveryReader interactionsquery.DeliveryReader
	eventReader    interactionsquery.EventReader
	pendingReader  interactionsquery.PendingReader
}

type FacadeOption func(*facadeConfig)

func WithDeliveryReader(reader interactionsquery.DeliveryReader) FacadeOption {
	return func(options *facadeConfig) {
		options.deliveryReader = reader
	}
}

func WithEventReader(reader interactionsquery.EventReader) FacadeOption {
	return func(options *facadeConfig) {
		options.eventReader = reader
	}
}

func WithPendingReader(reader interactionsquery.PendingReader) FacadeOption {
	return func(options *facadeConfig) {
		options.pendingReader = reader
	}
}

type Facade struct {
	resolver core.PendingResolver
	rest     core.RestClient
	commands Commands
	queries  Queries
}

// NewFacade wires the command handlers over a pending resolver and an
// optional REST client. Without a REST client the webhook commands are left
// nil; resolving and expiring still work.
func NewFacade(resolver core.PendingResolver, rest core.RestClient, opts ...FacadeOption) (*Facade, error) {
	if resolver == nil {
		return nil, fmt.Errorf("interactions: pending resolver is required")
	}

	cfg := facadeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.pendingReader == nil {
		if reader, ok := resolver.(interactionsquery.PendingReader); ok {
			cfg.pendingReader = reader
		}
	}

	facade := &Facade{
		resolver: resolver,
		rest:     rest,
	}
	facade.commands = Commands{
		Resolve: interactionscommand.NewResolveInteractionCommand(resolver),
		Expire:  interactionscommand.NewExpireInteractionCommand(resolver),
	}
	if rest != nil {
		facade.commands.SendFollowup = interactionscommand.NewSendFollowupCommand(rest)
		facade.commands.EditOriginal = interactionscommand.NewEditOriginalCommand(rest)
		facade.commands.DeleteOriginal = interactionscommand.NewDeleteOriginalCommand(rest)
	}
	facade.queries = Queries{
		GetDelivery:             interactionsquery.NewGetDeliveryQuery(cfg.deliveryReader),
		ListInteractionEvents:   interactionsquery.NewListInteractionEventsQuery(cfg.eventReader),
		ListPendingInteractions: interactionsquery.NewListPendingInteractionsQuery(cfg.pendingReader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Resolver() core.PendingResolver {
	if f == nil {
		return nil
	}
	return f.resolver
}

func (f *Facade) RestClient() core.RestClient {
	if f == nil {
		return nil
	}
	return f.rest
}

// CommandRegistrar is the slice of the command registry adapter the facade
// needs to publish its handlers.
type CommandRegistrar interface {
	RegisterCommand(cmd any) error
}

// RegisterCommands pushes every built handler into the given registrar so bus
// messages route to them after Initialize.
func (f *Facade) RegisterCommands(registrar CommandRegistrar) error {
	if f == nil {
		return fmt.Errorf("interactions: facade is nil")
	}
	if registrar == nil {
		return fmt.Errorf("interactions: command registrar is required")
	}
	if err := registrar.RegisterCommand(f.commands.Resolve); err != nil {
		return err
	}
	if err := registrar.RegisterCommand(f.commands.Expire); err != nil {
		return err
	}
	if f.commands.SendFollowup != nil {
		if err := registrar.RegisterCommand(f.commands.SendFollowup); err != nil {
			return err
		}
	}
	if f.commands.EditOriginal != nil {
		if err := registrar.RegisterCommand(f.commands.EditOriginal); err != nil {
			return err
		}
	}
	if f.commands.DeleteOriginal != nil {
		if err := registrar.RegisterCommand(f.commands.DeleteOriginal); err != nil {
			return err
		}
	}
	return nil
}
