// Package chat implements the realtime side of task conversations.
//
// A Registry maps each task to the Sessions currently connected to it. Each
// conversation has its own lock, so traffic on one task never waits on
// another. A Session owns a bounded outbound queue drained by a single
// writer goroutine; a Session whose queue is full is treated as failed and
// removed from its conversation.
//
// The Engine performs the websocket handshake (authentication and task
// access), and it records inbound messages before broadcasting them. A
// per-task sequence lock spans record and broadcast, so sessions observe
// messages in persisted order.
package chat
