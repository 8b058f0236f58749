// Package server implements a real-time chat relay over WebSockets.
//
// Clients connect at /api/socket and exchange JSON event frames: messages
// are fabricated server-side and broadcast to every connection, typing
// indicators go to everyone but the typist, and seen acknowledgements are
// relayed unconditionally. The relay stores nothing; a connection that
// joins late starts with empty history.
package server
