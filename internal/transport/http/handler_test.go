package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/registry"
	"github.com/codesync/codesync-backend/internal/security"
	"github.com/codesync/codesync-backend/internal/service"
	"github.com/codesync/codesync-backend/internal/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type api struct {
	t      *testing.T
	router http.Handler
	reg    *registry.Registry
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(st.Close)

	reg := registry.New()
	signer := security.NewJWTSigner([]byte("k"), "codesync", time.Hour, 0)
	authSvc := service.NewAuthService(st, signer, security.BcryptConfig{Cost: bcrypt.MinCost, MinLength: 6}, nil)
	roomSvc := service.NewRoomService(st, reg)

	router := NewRouter(Deps{
		Handler:        NewHandler(authSvc, roomSvc),
		Auth:           authSvc,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return &api{t: t, router: router, reg: reg}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *api) register(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: username, Email: username + "@example.com", Password: "secret1",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndBanner(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CodeSync")
}

func TestRegisterLoginMe(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	token := a.register("alice")

	rec := a.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[MeResponse](t, rec)
	assert.Equal(t, "alice", me.User.Username)
	assert.Equal(t, domain.DefaultColor, me.User.Color)

	rec = a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "Alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[AuthResponse](t, rec).Token)

	rec = a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	a.register("bob")

	cases := []struct {
		name   string
		body   RegisterRequest
		status int
		msg    string
	}{
		{"missing field", RegisterRequest{Username: "x", Password: "secret1"}, http.StatusBadRequest, "All fields required"},
		{"short password", RegisterRequest{Username: "x", Email: "x@x.io", Password: "123"}, http.StatusBadRequest, "Password min 6 chars"},
		{"username taken", RegisterRequest{Username: "BOB", Email: "new@x.io", Password: "secret1"}, http.StatusConflict, "username already taken"},
		{"email taken", RegisterRequest{Username: "bobby", Email: "bob@example.com", Password: "secret1"}, http.StatusConflict, "email already taken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decode[map[string]string](t, rec)["error"])
		})
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{"))
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No token"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestRoomsLifecycle(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	token := a.register("carol")

	rec := a.do(http.MethodPost, "/api/rooms", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RoomResponse](t, rec).Room
	assert.Len(t, created.RoomID, 8)
	assert.Equal(t, "carol", created.Owner)
	assert.Equal(t, "Room "+created.RoomID, created.Name)

	rec = a.do(http.MethodPost, "/api/rooms/"+created.RoomID+"/code", token, SaveCodeRequest{Lang: "python", Code: "print(1)"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	a.reg.Add(created.RoomID, domain.Participant{ConnID: "c1", Username: "carol"})

	rec = a.do(http.MethodGet, "/api/rooms/"+created.RoomID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[RoomResponse](t, rec).Room
	assert.Equal(t, map[string]string{"python": "print(1)"}, got.Code)
	assert.Equal(t, 1, got.ActiveUsers)

	rec = a.do(http.MethodGet, "/api/rooms", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[RoomsListResponse](t, rec)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.RoomID, list.Rooms[0].RoomID)
	assert.Empty(t, list.NextCursor)

	rec = a.do(http.MethodGet, "/api/stats", "", nil)
	assert.JSONEq(t, `{"activeRooms":1,"participants":1}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/rooms/NOPE", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/api/rooms?cursor=garbage!", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveCodeCreatesRoom(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	token := a.register("dave")

	rec := a.do(http.MethodPost, "/api/rooms/FRESH01/code", token, SaveCodeRequest{Lang: "go", Code: "package main"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/rooms/FRESH01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dave", decode[RoomResponse](t, rec).Room.Owner)

	rec = a.do(http.MethodPost, "/api/rooms/FRESH01/code", token, SaveCodeRequest{Code: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
