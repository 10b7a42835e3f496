package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/roster"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/store/memstore"
	"github.com/libertypfc/Hockeybot-sub000/pkg/conf"
	"github.com/libertypfc/Hockeybot-sub000/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memKV is enough of redis for the session whitelist, the cap cache and
// selections.
type memKV struct {
	mu     sync.Mutex
	values map[string]string
	lists  map[string][]string
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string), lists: make(map[string][]string)}
}

func (m *memKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", kvstore.Nil
	}
	return v, nil
}

func (m *memKV) Set(key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.values[key] = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m.values[key] = string(raw)
	}
	return nil
}

func (m *memKV) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *memKV) Incr(key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memKV) RPush(key string, values ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		s, _ := v.(string)
		m.lists[key] = append(m.lists[key], s)
	}
	return nil
}

func (m *memKV) LRange(key string, _, _ int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lists[key]...), nil
}

func (m *memKV) LRem(key string, _ int64, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.lists[key][:0]
	for _, v := range m.lists[key] {
		if v != value {
			kept = append(kept, v)
		}
	}
	m.lists[key] = kept
	return nil
}

func (m *memKV) Expire(string, time.Duration) error { return nil }

type envelope struct {
	Status  int             `json:"status"`
	IsError bool            `json:"is_error"`
	Kind    errs.Kind       `json:"kind"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := conf.Config{
		Auth:      conf.Auth{Secret: "test-secret", TokenTTL: time.Hour},
		Engine:    conf.DefaultEngine(),
		Scheduler: conf.Scheduler{Interval: time.Minute},
	}
	return buildApp(cfg, memstore.New(), newMemKV())
}

func tokenFor(t *testing.T, app *App, actor auth.Actor) string {
	t.Helper()
	token, err := app.Auth.GenerateToken(actor)
	require.NoError(t, err)
	return token
}

func call(t *testing.T, app *App, method, path, token string, body interface{}, out interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.R.ServeHTTP(rec, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	assert.Equal(t, rec.Code, resp.Status)
	if out != nil && !resp.IsError {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

func TestSendError_MapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.NotFoundf("player", "p1"), http.StatusNotFound},
		{errs.New(errs.InsufficientCap, "no room"), http.StatusUnprocessableEntity},
		{errs.New(errs.OfferExpired, "too late"), http.StatusGone},
		{errs.New(errs.Timeout, "window closed"), http.StatusRequestTimeout},
		{errs.New(errs.Unauthorized, "not yours"), http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		sendError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	rec := httptest.NewRecorder()
	sendError(rec, errors.New("dial tcp 10.0.0.1:5432: refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestMiddleware_RequiresWhitelistedToken(t *testing.T) {
	app := testApp(t)

	resp := call(t, app, http.MethodGet, "/teams", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = call(t, app, http.MethodGet, "/teams", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	token := tokenFor(t, app, auth.Actor{ID: "agent-1", TeamID: "t1"})
	resp = call(t, app, http.MethodGet, "/teams", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, app, http.MethodPost, "/auth/logout", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, app, http.MethodGet, "/teams", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestAdminOnly(t *testing.T) {
	app := testApp(t)
	agent := tokenFor(t, app, auth.Actor{ID: "agent-1", TeamID: "t1"})

	resp := call(t, app, http.MethodPost, "/teams", agent, map[string]interface{}{"name": "Oilers", "cap_ceiling": 100}, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, errs.Unauthorized, resp.Kind)
}

func TestSigningFlow(t *testing.T) {
	app := testApp(t)
	admin := tokenFor(t, app, auth.Actor{ID: "commish", Admin: true})

	var team store.Team
	resp := call(t, app, http.MethodPost, "/teams", admin, map[string]interface{}{
		"name": "Oilers", "cap_ceiling": 1_000_000, "cap_floor": 200_000,
	}, &team)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Error)

	playerToken := tokenFor(t, app, auth.Actor{ID: "discord-42"})
	var player store.Player
	resp = call(t, app, http.MethodPost, "/players", playerToken, map[string]interface{}{
		"external_id": "discord-42", "name": "Connor",
	}, &player)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Error)

	// Warm the cap cache so the signing has to invalidate it.
	var summary roster.CapSummary
	call(t, app, http.MethodGet, "/teams/"+team.ID+"/cap", admin, nil, &summary)
	assert.Equal(t, int64(1_000_000), summary.AvailableCap)

	agent := tokenFor(t, app, auth.Actor{ID: "agent-1", TeamID: team.ID})
	resp = call(t, app, http.MethodPost, "/contracts/offer", agent, map[string]interface{}{
		"player_id": player.ID, "team_id": team.ID, "salary": 2_000_000, "term_days": 365,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, errs.InsufficientCap, resp.Kind)

	var offer store.Contract
	resp = call(t, app, http.MethodPost, "/contracts/offer", agent, map[string]interface{}{
		"player_id": player.ID, "team_id": team.ID, "salary": 400_000, "term_days": 365,
	}, &offer)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Error)

	resp = call(t, app, http.MethodPost, "/contracts/"+offer.ID+"/accept", agent, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	var signed store.Contract
	resp = call(t, app, http.MethodPost, "/contracts/"+offer.ID+"/accept", playerToken, nil, &signed)
	require.Equal(t, http.StatusOK, resp.Status, resp.Error)
	assert.Equal(t, store.ContractActive, signed.Status)

	call(t, app, http.MethodGet, "/teams/"+team.ID+"/cap", admin, nil, &summary)
	assert.Equal(t, int64(600_000), summary.AvailableCap)
	assert.Equal(t, int64(400_000), summary.TotalActiveSalary)

	var recent []map[string]interface{}
	call(t, app, http.MethodGet, "/transactions?team_id="+team.ID, admin, nil, &recent)
	require.NotEmpty(t, recent)
	assert.Equal(t, "contract_accepted", recent[len(recent)-1]["kind"])
}

func TestRecentTransactions_RejectsBadLimit(t *testing.T) {
	app := testApp(t)
	token := tokenFor(t, app, auth.Actor{ID: "agent-1"})
	resp := call(t, app, http.MethodGet, "/transactions?limit=-1", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}
