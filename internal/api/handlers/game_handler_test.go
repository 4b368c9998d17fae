package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
	services "github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/services/tetris"
)

const testSecret = "handler-secret"

func newTestServer(t *testing.T) (*httptest.Server, *services.SessionManager) {
	t.Helper()
	// 重力で状態が勝手に変わらないよう、落下間隔を十分に長くする
	sm := services.NewSessionManager(services.SessionConfig{DropInterval: time.Hour})
	auth := middleware.NewAuthenticator(testSecret, false)
	origins := []string{"http://localhost:3000"}
	server := httptest.NewServer(NewRouter(NewGameHandler(sm, auth, origins), auth, origins))
	t.Cleanup(func() {
		server.Close()
		sm.Shutdown()
	})
	return server, sm
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func createSession(t *testing.T, server *httptest.Server, userID string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/protected/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["session_id"])
	return body["session_id"]
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + sessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, v), string(msg))
}

func TestPublicHandler(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/public")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "public content")
}

func TestCreateSession_RequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/protected/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	server, _ := newTestServer(t)
	sessionID := createSession(t, server, "user-1")

	resp, err := http.Get(server.URL + "/api/sessions/" + sessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state services.SessionState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, sessionID, state.ID)
	assert.Equal(t, services.StatusWaiting, state.Status)
	assert.Equal(t, tetris.BoardWidth, state.Game.Width)

	missing, err := http.Get(server.URL + "/api/sessions/does-not-exist")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestWebSocket_PlayFlow(t *testing.T) {
	server, _ := newTestServer(t)
	sessionID := createSession(t, server, "user-1")
	conn := dial(t, server, sessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": tokenFor(t, "user-1")}))
	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_success", ack["type"])

	var state services.SessionState
	readJSON(t, conn, &state)
	assert.Equal(t, services.StatusPlaying, state.Status)
	startX := state.Game.Piece.X

	require.NoError(t, conn.WriteJSON(map[string]string{"action": services.ActionMoveLeft}))
	readJSON(t, conn, &state)
	assert.Equal(t, startX-1, state.Game.Piece.X)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": services.ActionPause}))
	readJSON(t, conn, &state)
	assert.Equal(t, tetris.PhasePaused, state.Game.Phase)
}

func TestWebSocket_RejectsOtherUser(t *testing.T) {
	server, _ := newTestServer(t)
	sessionID := createSession(t, server, "user-1")
	conn := dial(t, server, sessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": tokenFor(t, "user-2")}))
	// 所有者でない場合は auth_success を送らずにエラーだけを返す
	var resp map[string]string
	readJSON(t, conn, &resp)
	assert.NotEqual(t, "auth_success", resp["type"])
	assert.NotEmpty(t, resp["error"])
}

func TestWebSocket_BypassAuthPlaysOwnSession(t *testing.T) {
	sm := services.NewSessionManager(services.SessionConfig{DropInterval: time.Hour})
	auth := middleware.NewAuthenticator("", true)
	origins := []string{"http://localhost:3000"}
	server := httptest.NewServer(NewRouter(NewGameHandler(sm, auth, origins), auth, origins))
	t.Cleanup(func() {
		server.Close()
		sm.Shutdown()
	})

	resp, err := http.Post(server.URL+"/api/protected/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	sessionID := body["session_id"]
	require.NotEmpty(t, sessionID)

	conn := dial(t, server, sessionID)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": middleware.BypassToken}))

	var ack map[string]string
	readJSON(t, conn, &ack)
	require.Equal(t, "auth_success", ack["type"], ack["error"])

	var state services.SessionState
	readJSON(t, conn, &state)
	assert.Equal(t, services.StatusPlaying, state.Status)
	startX := state.Game.Piece.X

	require.NoError(t, conn.WriteJSON(map[string]string{"action": services.ActionMoveLeft}))
	readJSON(t, conn, &state)
	assert.Equal(t, startX-1, state.Game.Piece.X)
}

func TestWebSocket_RejectsBadAuth(t *testing.T) {
	server, _ := newTestServer(t)
	sessionID := createSession(t, server, "user-1")
	conn := dial(t, server, sessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "not-a-jwt"}))
	var resp map[string]string
	readJSON(t, conn, &resp)
	assert.NotEmpty(t, resp["error"])
}

func TestWebSocket_UnknownSession(t *testing.T) {
	server, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/missing/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
