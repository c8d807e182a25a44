package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ResolveInteractionMessage] = (*ResolveInteractionCommand)(nil)
	_ gocmd.Commander[ExpireInteractionMessage]  = (*ExpireInteractionCommand)(nil)
	_ gocmd.Commander[SendFollowupMessage]       = (*SendFollowupCommand)(nil)
	_ gocmd.Commander[EditOriginalMessage]       = (*EditOriginalCommand)(nil)
	_ gocmd.Commander[DeleteOriginalMessage]     = (*DeleteOriginalCommand)(nil)
)
