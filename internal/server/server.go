package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	eventbus "github.com/protectql/depthgate/internal/eventbus"
	events "github.com/protectql/depthgate/internal/events"
	language "github.com/protectql/depthgate/internal/language"
	reqid "github.com/protectql/depthgate/internal/reqid"
	validation "github.com/protectql/depthgate/internal/validation"
)

// Handler is an http.Handler that fronts an upstream GraphQL endpoint.
// It parses each request, runs the validation phase, answers requests with
// violations locally in GraphQL spec error shape, and forwards clean
// requests upstream.
type Handler struct {
	rules  []validation.Rule
	opt    Options
	client *http.Client
}

type Options struct {
	// Upstream is the GraphQL endpoint clean requests are forwarded to.
	Upstream string

	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// ForwardTimeout bounds each upstream call. 0 means no bound beyond the
	// request context.
	ForwardTimeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// ForwardHeaders lists client HTTP headers copied onto the upstream
	// request. Header names are case-insensitive. Default is none.
	ForwardHeaders []string
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option        { return func(o *Options) { o.Timeout = d } }
func WithForwardTimeout(d time.Duration) Option { return func(o *Options) { o.ForwardTimeout = d } }
func WithPretty() Option                        { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option           { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithForwardHeaders(headers ...string) Option {
	return func(o *Options) { o.ForwardHeaders = headers }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a gateway handler that validates with rules before forwarding
// to the upstream GraphQL endpoint.
func New(upstream string, rules []validation.Rule, opts ...Option) (*Handler, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("upstream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q: scheme must be http or https", upstream)
	}
	op := Options{Upstream: upstream, Timeout: 10 * time.Second, ForwardTimeout: 15 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{rules: rules, opt: op, client: &http.Client{}}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse(&language.Error{Message: "method not allowed"}), h.opt.Pretty)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(berr), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		// Each batched request is validated and forwarded independently;
		// the composite response is always 200.
		out := make([]any, len(batch))
		for i := range batch {
			out[i], _ = h.handleOne(ctx, r, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	res, st := h.handleOne(ctx, r, req)
	status = st
	writeJSON(w, status, res, h.opt.Pretty)
}

// handleOne parses, validates, and (when clean) forwards a single GraphQL
// request, returning the response body and HTTP status. Requests answered
// locally are 200; only upstream results carry other statuses.
func (h *Handler) handleOne(ctx context.Context, r *http.Request, req GraphQLRequest) (any, int) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		if ge, ok := err.(*language.Error); ok {
			return errorResponse(ge), http.StatusOK
		}
		return errorResponse(&language.Error{Message: err.Error()}), http.StatusOK
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ValidationStart{Query: req.Query, OperationName: req.OperationName})
	violations := validation.Run(doc, h.rules...)
	eventbus.Publish(ctx, events.ValidationFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		Violations:    violations,
		Duration:      time.Since(start),
	})
	if len(violations) > 0 {
		return violationResponse(violations), http.StatusOK
	}

	return h.forward(ctx, r, req)
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
		}

		// Try array (batch)
		if len(body) > 0 && body[0] == '[' {
			var arr []GraphQLRequest
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
			}
			return GraphQLRequest{}, arr, nil
		}
		// Single
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, nil
	}

	return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
}

// ------------------ Response formatting ------------------

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

func errorResponse(err *language.Error) specResult {
	se := specError{Message: err.Message}
	for _, loc := range err.Locations {
		se.Locations = append(se.Locations, specLocation{Line: loc.Line, Column: loc.Column})
	}
	return specResult{Errors: []specError{se}}
}

// violationResponse renders validation findings per the GraphQL spec:
// data null, one error per violation, located at the offending node.
func violationResponse(violations []*validation.Violation) specResult {
	out := specResult{Errors: make([]specError, len(violations))}
	for i, v := range violations {
		se := specError{Message: v.Message}
		if v.Position != nil {
			se.Locations = []specLocation{{Line: v.Position.Line, Column: v.Position.Column}}
		}
		out.Errors[i] = se
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := false
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			wildcard = true
			allowed = true
		}
		if o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
