// Package query exposes read-side handlers over the delivery ledger, the
// event log, and the in-memory pending registry, in the same message/handler
// shape as the command package.
package query
