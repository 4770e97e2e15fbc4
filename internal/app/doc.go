// Package app provides the application service layer.
//
// Orchestrates use cases: match creation, score updates, commentary writes and
// the periodic match status sync. Sits between HTTP handlers and domain
// repositories, and hands freshly persisted records to the live fan-out hub.
package app
