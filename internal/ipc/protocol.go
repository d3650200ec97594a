/*
Package ipc implements the msgpack protocol editors use to ask mailtype for
next-word suggestions over stdin/stdout.

Requests and responses are consecutive msgpack maps with no extra framing.
On start the server writes a ready message:

	{"id": "", "st": "ready"}

A suggestion request carries the text typed so far and an optional limit:

	{"id": "req_001", "t": "could you please send", "l": 3}

The response holds the ranked words, the context that was looked up, a
status and the time taken in microseconds:

	{"id": "req_001", "s": ["me", "the"], "st": "ok", "ctx": ["please", "send"], "tm": 12}

Status is one of ok, insufficient_context, unknown_context or error; e holds
the error text for the last one. Model information is requested with

	{"id": "info_001", "action": "stats"}

The server stops cleanly at end of input.
*/
package ipc

// Request is any client message.
type Request struct {
	ID     string `msgpack:"id"`
	Text   string `msgpack:"t,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"action,omitempty"` // "" (suggest) or "stats"
}

// SuggestResponse answers a suggestion request.
type SuggestResponse struct {
	ID          string   `msgpack:"id"`
	Suggestions []string `msgpack:"s"`
	Status      string   `msgpack:"st"`
	Context     []string `msgpack:"ctx"`
	Error       string   `msgpack:"e,omitempty"`
	TimeTaken   int64    `msgpack:"tm"`
}

// StatsResponse answers a stats request.
type StatsResponse struct {
	ID           string `msgpack:"id"`
	Status       string `msgpack:"st"`
	Order        int    `msgpack:"order"`
	Contexts     int    `msgpack:"contexts"`
	Observations int    `msgpack:"observations"`
	Vocabulary   int    `msgpack:"vocabulary"`
	TrainedAt    int64  `msgpack:"trained_at"` // unix seconds, 0 if unknown
	Requests     uint64 `msgpack:"requests"`
}

// StatusResponse carries ready notifications and protocol errors.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"st"`
	Error  string `msgpack:"e,omitempty"`
}

const (
	StatusReady = "ready"
	StatusError = "error"
)
