// Package events defines the task lifecycle events and delivers them
// asynchronously.
//
// Services publish through the Publisher interface. The Dispatcher queues
// events in a bounded channel and a fixed pool of workers passes each one to
// an InMemoryEventEmitter, which fans out to the registered handlers: the
// notification log, the webhook sink and the broker sink. Publishing never
// blocks the caller and delivery failures never reach it.
package events
