// Package transport bridges the dispatch pipeline to concrete wire formats:
// an http.Handler that normalizes incoming requests, and the outbound REST
// client used for follow-up calls against the platform API.
package transport
