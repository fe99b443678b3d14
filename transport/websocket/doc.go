// Package websocket streams game snapshots to browser clients.
//
// A central Hub owns every connection. Clients attach to one session with
// /ws?session=<id> and receive a "state_update" message, carrying the full
// game, after each committed change to that session. Messages sent by
// clients are read and discarded.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.BroadcastToSession(info.ID, info.Game)
//
// Concurrency:
//
// The Run loop is the only writer of the client sets. Broadcasts are queued
// to it and become no-ops once Run has returned. Slow clients whose send
// buffer is full are dropped.
package websocket
