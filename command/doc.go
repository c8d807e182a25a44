// Package command exposes the interaction lifecycle over the go-command bus:
// a received-notification message for subscribers, resolve/expire commands
// against the pending registry, and follow-up REST commands against the
// platform API.
package command
