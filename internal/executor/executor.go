package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/auth"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/pkg/logging"
)

// Executor builds and sends endpoint invocations.
type Executor struct {
	catalog    api.Catalog
	resolver   *auth.Resolver
	env        credentials.Env
	httpClient *http.Client
	sleeper    Sleeper
	now        func() time.Time
	random     func() float64
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		e.httpClient = c
	}
}

// WithSleeper replaces the pause between 429 retries.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleeper = s
	}
}

// WithClock replaces the time source used for timing and Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithRandom replaces the jitter source. It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(e *Executor) {
		e.random = random
	}
}

// New creates an executor over catalog. Credentials are read from env only.
func New(catalog api.Catalog, resolver *auth.Resolver, env credentials.Env, opts ...Option) *Executor {
	e := &Executor{
		catalog:    catalog,
		resolver:   resolver,
		env:        env,
		httpClient: &http.Client{},
		sleeper:    SleeperFunc(time.Sleep),
		now:        time.Now,
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ api.Executor = (*Executor)(nil)

// preparedRequest is a fully built request. body is kept as bytes so every
// attempt sends the same payload.
type preparedRequest struct {
	method  string
	url     string
	headers headerSet
	body    []byte
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// Execute looks up the endpoint and runs the call.
func (e *Executor) Execute(ctx context.Context, in api.CallInput) (*api.RequestExecutionResult, error) {
	desc, ep, err := e.catalog.Endpoint(in.APIName, in.EndpointID)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, desc, ep, in)
}

// Run performs one invocation of ep. Any upstream status, including a 429
// that outlived its retries, is a successful result.
func (e *Executor) Run(ctx context.Context, desc *api.APIDescriptor, ep *api.EndpointDefinition, in api.CallInput) (*api.RequestExecutionResult, error) {
	start := e.now()
	callID := uuid.NewString()

	resolution, err := e.resolver.Resolve(ctx, desc, ep, e.env)
	if err != nil {
		return nil, err
	}

	prepared, err := e.prepare(desc, ep, in, resolution)
	if err != nil {
		return nil, err
	}

	timeoutMs := effectiveTimeoutMs(in.TimeoutMs, desc.Config.TimeoutMs)
	policy := api.ResolveRetryPolicy(desc.Config.Retry429, in.Retry429)

	logging.Debug("Executor", "[%s] %s %s (%s/%s, timeout %dms, maxRetries %d)",
		callID, prepared.method, prepared.url, desc.Name, ep.EndpointID, timeoutMs, policy.MaxRetries)

	resp, attempts, err := e.send(ctx, callID, prepared, time.Duration(timeoutMs)*time.Millisecond, policy)
	elapsed := e.now().Sub(start)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:   "upstream_request",
			Outcome:  "failure",
			API:      desc.Name,
			Target:   ep.EndpointID,
			Schemes:  resolution.AuthUsed,
			Attempts: attempts,
			Duration: elapsed,
		})
		if apiErr, ok := err.(*api.Error); ok {
			apiErr.WithDetail("apiName", desc.Name).WithDetail("endpointId", ep.EndpointID)
		}
		return nil, err
	}

	logging.Audit(logging.AuditEvent{
		Action:   "upstream_request",
		Outcome:  "success",
		API:      desc.Name,
		Target:   ep.EndpointID,
		Schemes:  resolution.AuthUsed,
		Status:   resp.status,
		Attempts: attempts,
		Duration: elapsed,
	})

	authUsed := resolution.AuthUsed
	if authUsed == nil {
		authUsed = []string{}
	}
	return &api.RequestExecutionResult{
		Request: api.RequestEcho{
			URL:             prepared.url,
			Method:          prepared.method,
			HeadersRedacted: redactHeaders(prepared.headers),
			EndpointID:      ep.EndpointID,
		},
		Response: decodeResponse(resp.status, resp.header, resp.body),
		TimingMs: elapsed.Milliseconds(),
		AuthUsed: authUsed,
	}, nil
}

// prepare builds the wire request. Every failure here happens before any
// network I/O.
func (e *Executor) prepare(desc *api.APIDescriptor, ep *api.EndpointDefinition, in api.CallInput, resolution *api.AuthResolution) (*preparedRequest, error) {
	expanded, err := expandPath(ep.Path, in.PathParams)
	if err != nil {
		return nil, err
	}
	query := serializeQuery(ep, in.Query)

	headers := headerSet{}
	headers.merge(desc.Config.Headers)
	extra, err := credentials.NewReader(e.env, desc.Name).ExtraHeaders()
	if err != nil {
		return nil, err
	}
	headers.merge(extra)
	headers.merge(in.Headers)
	if in.Accept != "" {
		headers.set(headerAccept, in.Accept)
	}

	cookies := make(map[string]string, len(in.Cookies))
	for k, v := range in.Cookies {
		cookies[k] = v
	}
	applyAuth(resolution.Schemes, headers, query, cookies)
	if cookie := cookieHeader(cookies); cookie != "" {
		headers.set(headerCookie, cookie)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType, _ = headers.get(headerContentType)
	}
	body, err := encodeBody(in.Body, in.Files, contentType)
	if err != nil {
		return nil, err
	}

	p := &preparedRequest{
		method:  strings.ToUpper(ep.Method),
		url:     buildURL(desc.BaseURL, expanded, query),
		headers: headers,
	}
	if body != nil {
		p.body = body.data
		if body.override {
			headers.set(headerContentType, body.contentType)
		} else if _, ok := headers.get(headerContentType); !ok && body.contentType != "" {
			headers.set(headerContentType, body.contentType)
		}
	}
	return p, nil
}

func buildURL(baseURL, expandedPath string, query url.Values) string {
	u := joinBaseAndPath(baseURL, expandedPath)
	if len(query) == 0 {
		return u
	}
	return u + "?" + query.Encode()
}

func effectiveTimeoutMs(call *int, configured int) int {
	if call != nil && *call > 0 {
		return *call
	}
	if configured > 0 {
		return configured
	}
	return api.DefaultTimeoutMs
}

// send drives the retry state machine and returns the last response together
// with the number of attempts made.
func (e *Executor) send(ctx context.Context, callID string, p *preparedRequest, timeout time.Duration, policy api.RetryPolicy) (*rawResponse, int, error) {
	var (
		state   = stateAttempt
		attempt int
		resp    *rawResponse
	)

	for state != stateDone {
		switch state {
		case stateAttempt:
			r, err := e.roundTrip(ctx, p, timeout)
			if err != nil {
				logging.Debug("Executor", "[%s] attempt %d failed: %v", callID, attempt+1, err)
				return nil, attempt + 1, err
			}
			resp = r
			state = stateEvaluate

		case stateEvaluate:
			if resp.status != http.StatusTooManyRequests || attempt >= policy.MaxRetries {
				state = stateDone
				continue
			}
			state = stateSleep

		case stateSleep:
			delay := retryDelay(policy, resp.header.Get(headerRetryAfter), attempt, e.now(), e.random)
			logging.Debug("Executor", "[%s] 429 on attempt %d, retrying in %s", callID, attempt+1, delay)
			if delay > 0 {
				e.sleeper.Sleep(delay)
			}
			attempt++
			state = stateAttempt
		}
	}
	return resp, attempt + 1, nil
}

// roundTrip performs a single attempt under its own deadline and reads the
// whole body before the deadline is released.
func (e *Executor) roundTrip(ctx context.Context, p *preparedRequest, timeout time.Duration) (*rawResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, p.method, p.url, body)
	if err != nil {
		return nil, api.NewRequestError("Request failed", map[string]any{"cause": err.Error()}).WithCause(err)
	}
	for name, value := range p.headers {
		req.Header.Set(name, value)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, attemptCtx, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, attemptCtx, timeout, err)
	}
	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func transportError(parent, attemptCtx context.Context, timeout time.Duration, err error) *api.Error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return api.NewRequestError(fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds()), nil).WithCause(err)
	}
	return api.NewRequestError("Request failed", map[string]any{"cause": err.Error()}).WithCause(err)
}
