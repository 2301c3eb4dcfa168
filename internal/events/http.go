package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the gateway begins handling a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response status is decided.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
