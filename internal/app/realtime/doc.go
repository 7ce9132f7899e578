// Package realtime is the room synchronization client behind the live
// discussion view.
//
// A Manager hands out at most one Channel per room. A Channel owns one
// logical pub/sub connection: it dials, subscribes the chat, participants
// and typing topics of its room, announces the local participant once per
// Channel lifetime, reconnects on a fixed delay after a drop, and folds the
// inbound frames into a View (deduplicated message log, current typer,
// participant count).
//
// Inbound frames, timers and state transitions are all handled by a single
// goroutine per Channel, so frames on one topic are applied strictly in
// arrival order.
package realtime
