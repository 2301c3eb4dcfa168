package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	eventbus "github.com/protectql/depthgate/internal/eventbus"
	events "github.com/protectql/depthgate/internal/events"
	language "github.com/protectql/depthgate/internal/language"
)

// maxUpstreamBody caps how much of an upstream response is buffered before
// relaying. Responses past the cap are treated as an upstream failure.
const maxUpstreamBody = 64 << 20

// forward sends req to the upstream endpoint as a single JSON POST and
// relays the response body and status. src supplies the client headers
// configured for pass-through. Upstream failures degrade to a GraphQL error
// body with a 502 status; the gateway itself never errors out mid-response.
func (h *Handler) forward(ctx context.Context, src *http.Request, req GraphQLRequest) (any, int) {
	payload, err := json.Marshal(req)
	if err != nil {
		return errorResponse(&language.Error{Message: "failed to encode request"}), http.StatusBadGateway
	}

	if h.opt.ForwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.ForwardTimeout)
		defer cancel()
	}

	up, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opt.Upstream, bytes.NewReader(payload))
	if err != nil {
		return errorResponse(&language.Error{Message: "failed to build upstream request"}), http.StatusBadGateway
	}
	up.Header.Set("Content-Type", "application/json")
	for _, name := range h.opt.ForwardHeaders {
		if vs := src.Header.Values(name); len(vs) > 0 {
			up.Header[http.CanonicalHeaderKey(name)] = vs
		}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ProxyStart{Upstream: h.opt.Upstream, OperationName: req.OperationName})

	resp, err := h.client.Do(up)
	if err != nil {
		eventbus.Publish(ctx, events.ProxyFinish{Upstream: h.opt.Upstream, Err: err, Duration: time.Since(start)})
		return errorResponse(&language.Error{Message: "upstream unavailable"}), http.StatusBadGateway
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	eventbus.Publish(ctx, events.ProxyFinish{
		Upstream: h.opt.Upstream,
		Status:   resp.StatusCode,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil || !json.Valid(body) {
		return errorResponse(&language.Error{Message: "invalid upstream response"}), http.StatusBadGateway
	}
	return json.RawMessage(body), resp.StatusCode
}
