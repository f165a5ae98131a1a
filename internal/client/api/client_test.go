package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/apitest"
	"github.com/dmitrijs2005/autoservice/internal/client/config"
)

type staticToken struct{ v atomic.Value }

func (s *staticToken) Token() string {
	v, _ := s.v.Load().(string)
	return v
}

func (s *staticToken) set(v string) { s.v.Store(v) }

func newClient(t *testing.T, srv *apitest.Server, opts ...api.Option) *api.Client {
	t.Helper()
	return api.New(config.APIConfig{
		BaseURL:       srv.URL,
		VersionPrefix: apitest.VersionPrefix,
		Timeout:       2 * time.Second,
	}, opts...)
}

func TestURL_Bases(t *testing.T) {
	c := api.New(config.APIConfig{BaseURL: "http://h:1/", VersionPrefix: "api/v1/"})
	assert.Equal(t, "http://h:1/api/v1/customers", c.URL(api.BaseV1, "/customers"))
	assert.Equal(t, "http://h:1/customers", c.URL(api.BaseRoot, "customers"))

	c = api.New(config.APIConfig{BaseURL: "http://h:1", VersionPrefix: ""})
	assert.Equal(t, "http://h:1/customers", c.URL(api.BaseV1, "/customers"))
}

func TestBearerHeader_FollowsTokenSource(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.com", "pw", "Ann", "Lee", "admin")
	tokens := &staticToken{}
	c := newClient(t, srv, api.WithTokenSource(tokens))
	ctx := context.Background()

	// no token: header absent, server rejects
	_, err := c.Get(ctx, api.BaseV1, "/customers")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, srv.LastRequest().Authorization)

	tok := srv.Token("a@x.com")
	tokens.set(tok)

	for _, base := range []api.Base{api.BaseV1, api.BaseRoot} {
		_, err := c.Get(ctx, base, "/customers")
		require.NoError(t, err)
		assert.Equal(t, "Bearer "+tok, srv.LastRequest().Authorization, base.String())
	}

	tokens.set("")
	_, _ = c.Get(ctx, api.BaseRoot, "/customers")
	assert.Empty(t, srv.LastRequest().Authorization)
}

func TestUnauthorized_RunsHandlersAndStillFails(t *testing.T) {
	srv := apitest.New(t)
	tokens := &staticToken{}
	tokens.set("stale")

	var calls int32
	c := newClient(t, srv, api.WithTokenSource(tokens))
	c.OnUnauthorized(func(ctx context.Context) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, ctx.Err())
	})

	_, err := c.Get(context.Background(), api.BaseV1, "/vehicles")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 401, api.StatusOf(err))
	assert.Equal(t, "token expired", api.MessageOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestUnauthorized_AnonymousSkipsHandlers(t *testing.T) {
	srv := apitest.New(t)
	var calls int32
	c := newClient(t, srv)
	c.OnUnauthorized(func(context.Context) { atomic.AddInt32(&calls, 1) })

	_, err := c.Do(context.Background(), api.Request{
		Method: http.MethodPost, Base: api.BaseV1, Path: "/auth/login",
		Body: map[string]string{"email": "nobody@x.com", "password": "x"}, Anonymous: true,
	})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestStatusMapping(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.com", "pw", "Ann", "Lee", "admin")
	tokens := &staticToken{}
	tokens.set(srv.Token("a@x.com"))
	c := newClient(t, srv, api.WithTokenSource(tokens))

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, api.ErrValidation},
		{http.StatusForbidden, api.ErrForbidden},
		{http.StatusNotFound, api.ErrNotFound},
		{http.StatusConflict, api.ErrConflict},
		{http.StatusTeapot, api.ErrRequest},
		{http.StatusInternalServerError, api.ErrServer},
	}
	for _, tt := range tests {
		srv.Fail(http.MethodGet, "/api/v1/parts", tt.status)
		_, err := c.Get(context.Background(), api.BaseV1, "/parts")
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
		assert.Equal(t, "injected failure", api.MessageOf(err))
	}
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := api.New(config.APIConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.Get(context.Background(), api.BaseRoot, "/customers")
	require.ErrorIs(t, err, api.ErrUnavailable)
	assert.Zero(t, api.StatusOf(err))
	assert.Empty(t, api.MessageOf(err))
}

func TestTimeout_IsUnavailable(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := api.New(config.APIConfig{BaseURL: slow.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), api.BaseRoot, "/x")
	require.ErrorIs(t, err, api.ErrUnavailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRequestIDAndJSONBody(t *testing.T) {
	var gotID, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(api.RequestIDHeader)
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c := api.New(config.APIConfig{BaseURL: srv.URL})
	resp, err := c.Post(context.Background(), api.BaseRoot, "/customers", map[string]string{"name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":1}`, string(resp.Data))
	assert.Len(t, gotID, 36)
	assert.Equal(t, "application/json", gotCT)
}

func TestRateLimit_WaitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := api.New(config.APIConfig{BaseURL: srv.URL, RateLimit: 0.001, Burst: 1})
	_, err := c.Get(context.Background(), api.BaseRoot, "/a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, api.BaseRoot, "/b")
	require.ErrorIs(t, err, api.ErrUnavailable)
}
