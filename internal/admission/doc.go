// Package admission decides, once per incoming WebSocket upgrade request and before
// the handshake completes, whether the connection may be established.
//
// A Gate returns one of four decisions: Allow, RateLimited, Denied or Error. Any error
// returned by a gate is treated as Error so a failing dependency never lets a
// connection through. Gates that hold per-connection resources implement Releaser and
// are released by the hub once the connection ends.
package admission
