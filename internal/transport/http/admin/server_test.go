package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradewind/internal/breaker"
	"tradewind/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubStatus struct{}

func (stubStatus) Status() map[string]any {
	return map[string]any{"cycles_completed": 7, "tickers": []string{"AAPL"}}
}

type stubCycleStore struct {
	recs []store.CycleRecord
	err  error

	gotTicker string
	gotLimit  int
}

func (s *stubCycleStore) LogCycle(ctx context.Context, rec store.CycleRecord) error { return nil }

func (s *stubCycleStore) ListCycles(ctx context.Context, ticker string, limit int) ([]store.CycleRecord, error) {
	s.gotTicker, s.gotLimit = ticker, limit
	return s.recs, s.err
}

func (s *stubCycleStore) Close() error { return nil }

func newTestServer(t *testing.T, b *breaker.CircuitBreaker, cycles store.CycleStore) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Breaker: b,
		Cycles:  cycles,
		Status:  stubStatus{},
	})
	require.NoError(t, err)
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresBreaker(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, breaker.New(breaker.Config{}), nil)
	w := get(srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
}

func TestStatusMergesBreakerState(t *testing.T) {
	b := breaker.New(breaker.Config{})
	srv := newTestServer(t, b, nil)

	w := get(srv, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(7), gjson.Get(body, "cycles_completed").Int())
	assert.False(t, gjson.Get(body, "breaker_tripped").Bool())
	assert.False(t, gjson.Get(body, "breaker_reason").Exists())

	b.Trip("manual halt")
	w = get(srv, "/api/status")
	body = w.Body.String()
	assert.True(t, gjson.Get(body, "breaker_tripped").Bool())
	assert.Equal(t, "manual halt", gjson.Get(body, "breaker_reason").String())
	assert.True(t, gjson.Get(body, "breaker_tripped_at").Exists())
}

func TestBreakerEndpointAndReset(t *testing.T) {
	b := breaker.New(breaker.Config{})
	b.Trip("VIX above threshold (42.00 > 40.00)")
	srv := newTestServer(t, b, nil)

	w := get(srv, "/api/breaker")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "tripped").Bool())
	assert.Contains(t, gjson.Get(w.Body.String(), "reason").String(), "VIX")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/breaker/reset", nil)
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "reset").Bool())
	assert.True(t, gjson.Get(w.Body.String(), "was_tripped").Bool())

	tripped, _, _ := b.Status()
	assert.False(t, tripped)
}

func TestCyclesEndpoint(t *testing.T) {
	cycles := &stubCycleStore{recs: []store.CycleRecord{
		{CycleID: "c1", Ticker: "AAPL", Action: "BUY", Status: "filled"},
	}}
	srv := newTestServer(t, breaker.New(breaker.Config{}), cycles)

	w := get(srv, "/api/cycles?ticker=AAPL&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AAPL", cycles.gotTicker)
	assert.Equal(t, 5, cycles.gotLimit)
	assert.Equal(t, "c1", gjson.Get(w.Body.String(), "cycles.0.cycle_id").String())
}

func TestCyclesEndpointError(t *testing.T) {
	cycles := &stubCycleStore{err: errors.New("db locked")}
	srv := newTestServer(t, breaker.New(breaker.Config{}), cycles)

	w := get(srv, "/api/cycles")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "db locked")
}

func TestCyclesRouteAbsentWithoutStore(t *testing.T) {
	srv := newTestServer(t, breaker.New(breaker.Config{}), nil)
	w := get(srv, "/api/cycles")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
