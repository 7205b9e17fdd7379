package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/auth"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/oauth"
	"openapi-mcp/internal/openapi"
	"openapi-mcp/internal/registry"
)

const shopSpec = `
openapi: 3.0.3
info: {title: Shop, version: "2.0"}
paths:
  /items:
    get:
      operationId: listItems
      security:
        - HeaderKey: []
      parameters:
        - {name: tags, in: query, explode: false, schema: {type: array, items: {type: string}}}
      responses: {"200": {description: ok}}
    post:
      operationId: createItem
      security:
        - CC: [write]
      responses: {"201": {description: created}}
  /items/{itemId}:
    get:
      operationId: getItem
      parameters:
        - {name: itemId, in: path, required: true, schema: {type: string}}
      responses: {"200": {description: ok}}
  /limited:
    get:
      operationId: limited
      responses: {"200": {description: ok}}
  /upload:
    post:
      operationId: upload
      responses: {"200": {description: ok}}
components:
  securitySchemes:
    HeaderKey: {type: apiKey, in: header, name: X-API-Key}
    CC:
      type: oauth2
      flows:
        clientCredentials:
          tokenUrl: /oauth/token
          scopes: {write: Write}
`

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type upstream struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.requests = append(u.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		u.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) recorded() []recordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]recordedRequest(nil), u.requests...)
}

func (u *upstream) count() int {
	return len(u.recorded())
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func shopDescriptor(t *testing.T, cfg api.APIConfig) *api.APIDescriptor {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(shopSpec))
	require.NoError(t, err)
	cfg.Name = "shop"
	desc, err := registry.Describe(cfg, &openapi.Document{
		Spec:          doc,
		SecurityOrder: openapi.ReadSecurityOrder([]byte(shopSpec)),
	}, credentials.Env{})
	require.NoError(t, err)
	return desc
}

type harness struct {
	exec    *Executor
	sleeper *recordingSleeper
}

func newHarness(t *testing.T, u *upstream, cfg api.APIConfig, env credentials.Env) *harness {
	t.Helper()
	cfg.BaseURL = u.URL + "/"
	desc := shopDescriptor(t, cfg)
	sleeper := &recordingSleeper{}
	tokens := oauth.NewTokenCache(oauth.WithHTTPClient(u.Client()))
	exec := New(registry.New(desc), auth.NewResolver(tokens), env,
		WithHTTPClient(u.Client()),
		WithSleeper(sleeper),
		WithRandom(func() float64 { return 0.5 }),
	)
	return &harness{exec: exec, sleeper: sleeper}
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestExecute_APIKeyHeadersAndQuery(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `[{"id":1}]`))
	h := newHarness(t, u, api.APIConfig{Headers: map[string]string{"X-Team": "core", "X-Env": "config"}}, credentials.Env{
		"SHOP_HEADERKEY_API_KEY": "secret-key",
		"SHOP_HEADERS":           `{"X-Env":"env"}`,
	})

	res, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "SHOP",
		EndpointID: "listItems",
		Query:      map[string]any{"tags": []any{"a", "b"}, "page": 2.0},
		Headers:    map[string]string{"x-request": "call"},
		Cookies:    map[string]string{"theme": "dark"},
		Accept:     "application/json",
	})
	require.NoError(t, err)

	reqs := u.recorded()
	require.Len(t, reqs, 1)
	sent := reqs[0]
	assert.Equal(t, "GET", sent.Method)
	assert.Equal(t, "/items", sent.Path)
	assert.Equal(t, "page=2&tags=a%2Cb", sent.Query)
	assert.Equal(t, "secret-key", sent.Header.Get("X-API-Key"))
	assert.Equal(t, "core", sent.Header.Get("X-Team"))
	assert.Equal(t, "env", sent.Header.Get("X-Env"))
	assert.Equal(t, "call", sent.Header.Get("X-Request"))
	assert.Equal(t, "application/json", sent.Header.Get("Accept"))
	assert.Equal(t, "theme=dark", sent.Header.Get("Cookie"))

	assert.Equal(t, 200, res.Response.Status)
	assert.Equal(t, api.BodyTypeJSON, res.Response.BodyType)
	assert.Equal(t, []any{map[string]any{"id": 1.0}}, res.Response.BodyJSON)
	assert.Equal(t, []string{"HeaderKey"}, res.AuthUsed)
	assert.Equal(t, "listItems", res.Request.EndpointID)
	assert.Equal(t, "GET", res.Request.Method)
	assert.Equal(t, u.URL+"/items?page=2&tags=a%2Cb", res.Request.URL)

	assert.Equal(t, api.RedactionMarker, res.Request.HeadersRedacted["X-API-Key"])
	assert.Equal(t, api.RedactionMarker, res.Request.HeadersRedacted["Cookie"])
	assert.Equal(t, "core", res.Request.HeadersRedacted["X-Team"])

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")
}

func TestExecute_OAuthBearerAndJSONBody(t *testing.T) {
	var grants atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			grants.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"cc-token","token_type":"bearer","expires_in":3600}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := newHarness(t, u, api.APIConfig{OAuth2: &api.OAuth2Settings{}}, credentials.Env{
		"SHOP_CC_CLIENT_ID":     "id",
		"SHOP_CC_CLIENT_SECRET": "secret",
		"SHOP_CC_TOKEN_URL":     u.URL + "/oauth/token",
	})

	for range 2 {
		res, err := h.exec.Execute(context.Background(), api.CallInput{
			APIName:    "shop",
			EndpointID: "createItem",
			Body:       map[string]any{"name": "lamp"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.Response.Status)
		assert.Equal(t, api.BodyTypeEmpty, res.Response.BodyType)
		assert.Equal(t, []string{"CC"}, res.AuthUsed)
		assert.Equal(t, api.RedactionMarker, res.Request.HeadersRedacted["Authorization"])
	}
	assert.Equal(t, int32(1), grants.Load())

	var calls []recordedRequest
	for _, r := range u.recorded() {
		if r.Path == "/items" {
			calls = append(calls, r)
		}
	}
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer cc-token", calls[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json", calls[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"lamp"}`, string(calls[0].Body))
}

func TestExecute_PathParamsAndMissing(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	_, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "shop",
		EndpointID: "getItem",
		PathParams: map[string]any{"itemId": "a/b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/items/a%2Fb", u.recorded()[0].Path)

	_, err = h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "getItem"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindRequest))
	assert.Equal(t, 1, u.count())
}

func TestExecute_UnresolvedAuthSendsNothing(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	_, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "listItems"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindAuth))
	assert.Zero(t, u.count())
}

func TestExecute_UnknownEndpoint(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	_, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "nope"})
	assert.True(t, api.IsKind(err, api.KindEndpointNotFound))

	_, err = h.exec.Execute(context.Background(), api.CallInput{APIName: "other", EndpointID: "nope"})
	assert.True(t, api.IsKind(err, api.KindAPINotFound))
}

func TestExecute_InvalidExtraHeaders(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{"SHOP_HEADERS": `["x"]`})

	_, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "limited"})
	assert.True(t, api.IsKind(err, api.KindConfig))
	assert.Zero(t, u.count())
}

func retryOverride(maxRetries int) *api.RetryOverride {
	return &api.RetryOverride{MaxRetries: &maxRetries}
}

func TestExecute_429WithoutRetriesIsReturned(t *testing.T) {
	u := newUpstream(t, jsonResponse(http.StatusTooManyRequests, `{"error":"slow down"}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	res, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "limited"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.Response.Status)
	assert.Equal(t, 1, u.count())
	assert.Empty(t, h.sleeper.delays)
}

func TestExecute_429ThenSuccess(t *testing.T) {
	var n atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	res, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "shop",
		EndpointID: "limited",
		Retry429:   retryOverride(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Response.Status)
	require.NotNil(t, res.Response.BodyText)
	assert.Equal(t, "ok", *res.Response.BodyText)
	assert.Equal(t, 2, u.count())
	assert.Equal(t, []time.Duration{time.Second}, h.sleeper.delays)
}

func TestExecute_429RetriesExhausted(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "not-a-date")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	maxRetries, base, maxDelay := 2, 100, 150
	h := newHarness(t, u, api.APIConfig{Retry429: &api.RetryOverride{
		MaxRetries:  &maxRetries,
		BaseDelayMs: &base,
		MaxDelayMs:  &maxDelay,
	}}, credentials.Env{})

	res, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "limited"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.Response.Status)
	assert.Equal(t, 3, u.count())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 150 * time.Millisecond}, h.sleeper.delays)
}

func TestExecute_HugeRetryAfterIsCapped(t *testing.T) {
	var n atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.Header().Set("Retry-After", "10000000000")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	maxRetries, maxDelay := 1, 5000
	h := newHarness(t, u, api.APIConfig{Retry429: &api.RetryOverride{
		MaxRetries: &maxRetries,
		MaxDelayMs: &maxDelay,
	}}, credentials.Env{})

	res, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "limited"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.Response.Status)
	assert.Equal(t, 2, u.count())
	assert.Equal(t, []time.Duration{5 * time.Second}, h.sleeper.delays)
}

func TestExecute_RetryResendsBody(t *testing.T) {
	var n atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	_, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "shop",
		EndpointID: "upload",
		Body:       "payload",
		Retry429:   retryOverride(1),
	})
	require.NoError(t, err)
	reqs := u.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "payload", string(reqs[0].Body))
	assert.Equal(t, "payload", string(reqs[1].Body))
	assert.Equal(t, "text/plain", reqs[1].Header.Get("Content-Type"))
}

func TestExecute_Timeout(t *testing.T) {
	release := make(chan struct{})
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	timeout := 50
	_, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "shop",
		EndpointID: "limited",
		TimeoutMs:  &timeout,
	})
	require.Error(t, err)
	resp := api.AsErrorResponse(err)
	assert.Equal(t, api.KindRequest, resp.Code)
	assert.Equal(t, "Request timed out after 50ms", resp.Message)
	assert.Equal(t, "shop", resp.Details["apiName"])
	assert.Equal(t, "limited", resp.Details["endpointId"])
}

func TestExecute_TransportFailure(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})
	u.Close()

	_, err := h.exec.Execute(context.Background(), api.CallInput{APIName: "shop", EndpointID: "limited"})
	require.Error(t, err)
	resp := api.AsErrorResponse(err)
	assert.Equal(t, api.KindRequest, resp.Code)
	assert.Equal(t, "Request failed", resp.Message)
	assert.NotEmpty(t, resp.Details["cause"])
}

func TestExecute_MultipartReplacesCallerContentType(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	text := "hello"
	_, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:     "shop",
		EndpointID:  "upload",
		Headers:     map[string]string{"content-type": "multipart/form-data"},
		Body:        map[string]any{"title": "greeting"},
		Files:       map[string]api.FileDescriptor{"file": {Text: &text, Filename: "hello.txt"}},
		ContentType: "multipart/form-data",
	})
	require.NoError(t, err)

	sent := u.recorded()[0]
	assert.True(t, strings.HasPrefix(sent.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Contains(t, string(sent.Body), "greeting")
	assert.Contains(t, string(sent.Body), "hello")
}

func TestExecute_ExplicitContentTypeHeaderWins(t *testing.T) {
	u := newUpstream(t, jsonResponse(200, `{}`))
	h := newHarness(t, u, api.APIConfig{}, credentials.Env{})

	_, err := h.exec.Execute(context.Background(), api.CallInput{
		APIName:    "shop",
		EndpointID: "upload",
		Headers:    map[string]string{"Content-Type": "application/vnd.shop+json"},
		Body:       map[string]any{"a": 1.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.shop+json", u.recorded()[0].Header.Get("Content-Type"))
}
