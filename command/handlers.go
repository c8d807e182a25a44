package command

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

type ResolveInteractionCommand struct {
	resolver core.PendingResolver
}

func NewResolveInteractionCommand(resolver core.PendingResolver) *ResolveInteractionCommand {
	return &ResolveInteractionCommand{resolver: resolver}
}

func (c *ResolveInteractionCommand) Execute(ctx context.Context, msg ResolveInteractionMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: pending resolver is required")
	}
	return c.resolver.Resolve(ctx, msg.InteractionID, msg.Response)
}

type ExpireInteractionCommand struct {
	resolver core.PendingResolver
}

func NewExpireInteractionCommand(resolver core.PendingResolver) *ExpireInteractionCommand {
	return &ExpireInteractionCommand{resolver: resolver}
}

func (c *ExpireInteractionCommand) Execute(ctx context.Context, msg ExpireInteractionMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: pending resolver is required")
	}
	return c.resolver.Expire(ctx, msg.InteractionID)
}

type SendFollowupCommand struct {
	client core.RestClient
}

func NewSendFollowupCommand(client core.RestClient) *SendFollowupCommand {
	return &SendFollowupCommand{client: client}
}

func (c *SendFollowupCommand) Execute(ctx context.Context, msg SendFollowupMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: rest client is required")
	}
	res, err := c.client.Post(ctx, followupPath(msg.ApplicationID, msg.Token), core.RequestOptions{
		Body: msg.Payload,
	})
	if err != nil {
		return err
	}
	if err := restFailure(res, "command: send followup"); err != nil {
		return err
	}
	storeResult(ctx, res)
	return nil
}

type EditOriginalCommand struct {
	client core.RestClient
}

func NewEditOriginalCommand(client core.RestClient) *EditOriginalCommand {
	return &EditOriginalCommand{client: client}
}

func (c *EditOriginalCommand) Execute(ctx context.Context, msg EditOriginalMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: rest client is required")
	}
	res, err := c.client.Patch(ctx, originalMessagePath(msg.ApplicationID, msg.Token), core.RequestOptions{
		Body: msg.Payload,
	})
	if err != nil {
		return err
	}
	if err := restFailure(res, "command: edit original response"); err != nil {
		return err
	}
	storeResult(ctx, res)
	return nil
}

type DeleteOriginalCommand struct {
	client core.RestClient
}

func NewDeleteOriginalCommand(client core.RestClient) *DeleteOriginalCommand {
	return &DeleteOriginalCommand{client: client}
}

func (c *DeleteOriginalCommand) Execute(ctx context.Context, msg DeleteOriginalMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: rest client is required")
	}
	res, err := c.client.Delete(ctx, originalMessagePath(msg.ApplicationID, msg.Token), core.RequestOptions{})
	if err != nil {
		return err
	}
	return restFailure(res, "command: delete original response")
}

func followupPath(applicationID, token string) string {
	return fmt.Sprintf("/webhooks/%s/%s", strings.TrimSpace(applicationID), strings.TrimSpace(token))
}

func originalMessagePath(applicationID, token string) string {
	return followupPath(applicationID, token) + "/messages/@original"
}

func restFailure(res core.RestResponse, message string) error {
	if res.StatusCode < http.StatusBadRequest {
		return nil
	}
	return goerrors.New(
		fmt.Sprintf("%s: platform returned %d", message, res.StatusCode),
		goerrors.CategoryExternal,
	).
		WithCode(res.StatusCode).
		WithTextCode(core.ErrorInternal).
		WithMetadata(map[string]any{"status_code": res.StatusCode})
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
