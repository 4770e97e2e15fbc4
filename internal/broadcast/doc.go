// Package broadcast implements the real-time fan-out hub for match updates.
//
// Clients connect over WebSocket, subscribe to match topics and receive
// match_created announcements (to everyone) and commentary events (to topic
// subscribers only). Shared subscription state lives in a single Registry guarded
// by one RWMutex; every connection owns a writer goroutine with a bounded queue so
// a stalled consumer never blocks a broadcast. A liveness monitor evicts
// connections that miss two consecutive ping rounds.
package broadcast
