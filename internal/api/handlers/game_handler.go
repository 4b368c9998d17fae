package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/services/tetris"
)

// authTimeout は WebSocket 接続後に認証メッセージを待つ時間です。
const authTimeout = 10 * time.Second

// GameHandler はゲーム関連のHTTPリクエスト（セッション作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager // ゲームセッションの管理サービス
	auth           *middleware.Authenticator
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//
//	sm      : セッションマネージャーへのポインタ
//	auth    : WebSocket の認証メッセージを検証する Authenticator
//	origins : WebSocket 接続を許可するオリジン（CORS と同じ設定）
//
// Returns:
//
//	*GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, auth *middleware.Authenticator, origins []string) *GameHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// ブラウザ以外のクライアントは Origin を送らない
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[GameHandler] Failed to encode response: %v", err)
	}
}

// CreateSession は新しいゲームセッションを作成するためのHTTPハンドラーです。
// 認証ミドルウェアの後ろで使い、コンテキストのユーザーIDをセッションの所有者にします。
func (h *GameHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		WriteErrorResponse(w, http.StatusUnauthorized, "ユーザーIDがコンテキストに見つかりません")
		return
	}

	sessionID, err := h.sessionManager.CreateSession(userID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create session for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("セッションの作成に失敗しました: %v", err))
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"session_id": sessionID, "message": "セッションを作成しました"})
}

// GetSession は特定のセッションの現在の状態を返すハンドラーです。
func (h *GameHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "セッションIDが必要です")
		return
	}

	state, ok := h.sessionManager.GetSessionState(sessionID)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
		return
	}

	WriteJSONResponse(w, http.StatusOK, state)
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// 認証メッセージを受け取った後、コネクションをセッションマネージャーに引き渡します。
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはセッションIDが必要です")
		return
	}
	if _, ok := h.sessionManager.GetSessionState(sessionID); !ok {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for session %s: %v", sessionID, err)
		return // Upgrade がすでにエラーレスポンスを書いている
	}

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Printf("[GameHandler] WebSocket auth failed for session %s: %v", sessionID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
	// 所有者の確認が済むまで auth_success は送らない
	if err := h.sessionManager.CheckClient(sessionID, userID); err != nil {
		h.rejectClient(conn, sessionID, userID, err)
		return
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})

	// 以降の読み書きは SessionManager の readPump / writePump が担当する
	if err := h.sessionManager.RegisterClient(sessionID, userID, conn); err != nil {
		// 確認から登録までの間にセッションが終了した場合
		h.rejectClient(conn, sessionID, userID, err)
		return
	}
	log.Printf("[GameHandler] User %s connected to session %s", userID, sessionID)
}

// rejectClient は接続を拒否した理由をクライアントに送り、コネクションを閉じます。
func (h *GameHandler) rejectClient(conn *websocket.Conn, sessionID, userID string, err error) {
	log.Printf("[GameHandler] Rejected client %s for session %s: %v", userID, sessionID, err)
	message := "セッションへの接続に失敗しました"
	switch {
	case errors.Is(err, tetris.ErrNotSessionOwner):
		message = "このセッションの所有者ではありません"
	case errors.Is(err, tetris.ErrSessionNotFound):
		message = "指定されたセッションは見つかりませんでした"
	case errors.Is(err, tetris.ErrSessionFinished):
		message = "このセッションはすでに終了しています"
	}
	conn.WriteJSON(map[string]string{"error": message})
	conn.Close()
}

// authenticate は最初のメッセージ {"type":"auth","token":...} を読み、ユーザーIDを返します。
func (h *GameHandler) authenticate(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read auth message: %w", err)
	}

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(message, &authMsg); err != nil {
		return "", fmt.Errorf("parse auth message: %w", err)
	}
	if authMsg.Type != "auth" {
		return "", fmt.Errorf("expected auth message, got %q", authMsg.Type)
	}

	return h.auth.ParseUserID(authMsg.Token)
}
