// Package inbound implements the interaction dispatch pipeline: signature
// verification, payload parsing, delivery dedupe, observer hand-off, and the
// race between subscriber resolution and the acknowledgement deadline.
package inbound
