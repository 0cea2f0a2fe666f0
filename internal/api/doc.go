// Package api exposes the marketplace over HTTP: account and token
// endpoints, the task lifecycle, chat history and posting, the WebSocket
// upgrade for task conversations, health and metrics.
//
// Handlers decode and validate requests, call the services and translate
// errors into status codes with a stable "code" field via HandleAPIError.
package api
