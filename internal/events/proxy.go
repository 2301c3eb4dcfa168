package events

import "time"

// ProxyStart is emitted before a validated request is forwarded upstream.
type ProxyStart struct {
	Upstream      string
	OperationName string
}

// ProxyFinish is emitted once the upstream response (or failure) is in.
type ProxyFinish struct {
	Upstream string
	Status   int
	Err      error
	Duration time.Duration
}
