// Package service contains the marketplace use cases: registration and
// login, the task lifecycle with its completion transfer, and task chat.
//
// Services receive their stores and collaborators through constructor
// injection and depend only on the interfaces in internal/store. Domain and
// store sentinel errors pass through unchanged so the API layer can map them
// to status codes; anything unexpected is wrapped in a ServiceError.
//
// Lifecycle events are published after the state change has been committed.
// Publishing never blocks and never fails the operation.
package service
