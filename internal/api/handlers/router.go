package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/api/middleware"
)

// NewRouter はAPIのルーティングを組み立てます。
// /api/protected 以下にだけ認証ミドルウェアを適用し、全体を CORS で包みます。
func NewRouter(gh *GameHandler, auth *middleware.Authenticator, origins []string) http.Handler {
	r := mux.NewRouter()

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", PublicHandlerFunc).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{sessionID}", gh.GetSession).Methods(http.MethodGet)
	// WebSocket は接続後の最初のメッセージで認証する
	r.HandleFunc("/api/sessions/{sessionID}/ws", gh.HandleWebSocketConnection).Methods(http.MethodGet)

	protectedRouter := r.PathPrefix("/api/protected").Subrouter()
	protectedRouter.Use(auth.Middleware)
	protectedRouter.HandleFunc("/sessions", gh.CreateSession).Methods(http.MethodPost)

	return middleware.CORSHandler(origins)(r)
}
