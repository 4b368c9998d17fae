package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
	ErrSessionFinished = errors.New("session already finished")
)

// セッションの状態
const (
	StatusWaiting  = "waiting"  // クライアント未接続
	StatusPlaying  = "playing"  // クライアント接続中
	StatusFinished = "finished" // 終了済み
)

// ActionRelease は押しっぱなしのキーリピートを止める操作です。
const ActionRelease = "release"

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID    string          // このクライアントに紐づくユーザーのID
	SessionID string          // このクライアントが操作しているセッションのID
	Conn      *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send      chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed    bool
	mu        sync.Mutex // closedフラグ保護用
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// PlayerInputEvent はクライアントからの操作入力を表す構造体です。
// Repeat が true の場合、ActionRelease が届くまでホスト側のタイマーで同じ操作を繰り返します。
type PlayerInputEvent struct {
	UserID    string `json:"-"`
	SessionID string `json:"-"`
	Action    string `json:"action"`
	Repeat    bool   `json:"repeat,omitempty"`
}

// keyRepeat は押しっぱなしになっている操作のリピート状態です。
type keyRepeat struct {
	action   string
	interval time.Duration
	next     time.Time
}

// Session は1人用のゲームセッションです。
type Session struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	EndedAt   time.Time  `json:"ended_at,omitempty"`
	Game      *GameState `json:"-"`
	repeat    *keyRepeat
}

// SessionState はWebSocketやHTTPで送るセッションの状態です。
type SessionState struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Game      Snapshot  `json:"game"`
}

// ToState はセッションを送信用の構造体に変換します。
func (s *Session) ToState() *SessionState {
	return &SessionState{
		ID:        s.ID,
		Status:    s.Status,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Game:      s.Game.Snapshot(),
	}
}

// SessionConfig はセッションマネージャーが作るゲームの設定です。
type SessionConfig struct {
	DropInterval time.Duration
	FieldWidth   int
	FieldHeight  int
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
//
// ゲーム状態を変更するのは Run のゴルーチンだけで、変更中は mu の書き込みロックを持ちます。
// HTTPハンドラーなど他のゴルーチンは読み取りロックで状態を参照します。
type SessionManager struct {
	sessions    map[string]*Session // sessionID -> Session
	clients     map[string]*Client  // sessionID -> Client (1セッションにつき1接続)
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	quitOnce    sync.Once
	mu          sync.RWMutex
	config      SessionConfig
	seed        func() *rand.Rand
}

// NewSessionManager は新しい SessionManager を作成し、メインイベントループをバックグラウンドで開始します。
func NewSessionManager(config SessionConfig) *SessionManager {
	sm := newSessionManager(config)
	go sm.Run()
	return sm
}

func newSessionManager(config SessionConfig) *SessionManager {
	if config.DropInterval <= 0 {
		config.DropInterval = DropInterval
	}
	if config.FieldWidth <= 0 {
		config.FieldWidth = tetris.BoardWidth
	}
	if config.FieldHeight <= 0 {
		config.FieldHeight = tetris.BoardHeight
	}

	sm := &SessionManager{
		sessions:    make(map[string]*Session),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inputEvents: make(chan PlayerInputEvent, 512),
		quit:        make(chan struct{}),
		config:      config,
		seed: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	return sm
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力、自動落下、キーリピートを全てこのゴルーチンで順番に処理します。
func (sm *SessionManager) Run() {
	gravity := time.NewTicker(sm.config.DropInterval)
	defer gravity.Stop()
	repeat := time.NewTicker(SoftDropRepeatInterval)
	defer repeat.Stop()

	for {
		select {
		case client := <-sm.register:
			sm.handleRegister(client)

		case client := <-sm.unregister:
			sm.handleUnregister(client)

		case event := <-sm.inputEvents:
			sm.handleInput(event, time.Now())

		case <-gravity.C:
			sm.tickAll()

		case now := <-repeat.C:
			sm.repeatAll(now)

		case <-sm.quit:
			log.Printf("[SessionManager] Shutdown signal received, leaving main loop")
			return
		}
	}
}

func (sm *SessionManager) handleRegister(client *Client) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[client.SessionID]
	if !ok {
		log.Printf("[SessionManager] Session %s vanished before client %s registered", client.SessionID, client.UserID)
		client.SafeClose()
		return
	}
	if existing, ok := sm.clients[client.SessionID]; ok && existing != client {
		log.Printf("[SessionManager] Replacing existing connection for session %s", client.SessionID)
		existing.SafeClose()
	}
	sm.clients[client.SessionID] = client

	if session.Status == StatusWaiting {
		session.Status = StatusPlaying
		if session.StartedAt.IsZero() {
			session.StartedAt = time.Now()
		}
	}
	log.Printf("[SessionManager] Client registered: %s (Session: %s)", client.UserID, client.SessionID)
	sm.broadcastLocked(session)
}

func (sm *SessionManager) handleUnregister(client *Client) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	registered, ok := sm.clients[client.SessionID]
	if !ok || registered != client {
		// 既に置き換えられた古い接続
		client.SafeClose()
		return
	}
	client.SafeClose()
	delete(sm.clients, client.SessionID)
	log.Printf("[SessionManager] Client unregistered: %s (Session: %s)", client.UserID, client.SessionID)

	// 切断中は重力を止めて再接続を待つ
	if session, ok := sm.sessions[client.SessionID]; ok && session.Status == StatusPlaying {
		session.Status = StatusWaiting
		session.repeat = nil
		if session.Game.Phase == tetris.PhaseActive {
			session.Game.TogglePause()
		}
	}
}

func (sm *SessionManager) handleInput(event PlayerInputEvent, now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[event.SessionID]
	if !ok || session.Status != StatusPlaying {
		log.Printf("[SessionManager] Received input for non-existent or non-playing session %s from user %s", event.SessionID, event.UserID)
		return
	}
	if session.OwnerID != event.UserID {
		log.Printf("[SessionManager] Input from unknown user %s in session %s", event.UserID, event.SessionID)
		return
	}

	if event.Action == ActionRelease {
		session.repeat = nil
		return
	}

	changed := ApplyPlayerInput(session.Game, event.Action)
	if event.Repeat {
		if interval, ok := repeatInterval(event.Action); ok {
			session.repeat = &keyRepeat{action: event.Action, interval: interval, next: now.Add(interval)}
		}
	}

	if session.Game.Finished {
		sm.endSessionLocked(session)
		return
	}
	if changed {
		sm.broadcastLocked(session)
	}
}

func repeatInterval(action string) (time.Duration, bool) {
	switch action {
	case ActionMoveLeft, ActionMoveRight:
		return ShiftRepeatInterval, true
	case ActionMoveDown, ActionSoftDrop:
		return SoftDropRepeatInterval, true
	}
	return 0, false
}

// tickAll はプレイ中の全セッションに重力を1段分適用します。
func (sm *SessionManager) tickAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, session := range sm.sessions {
		if session.Status != StatusPlaying || session.Game.Phase != tetris.PhaseActive {
			continue
		}
		before := session.Game.Phase
		session.Game.Tick()
		if session.Game.Phase == tetris.PhaseOver && before != tetris.PhaseOver {
			session.repeat = nil
			log.Printf("[SessionManager] Session %s game over. Score: %d, Lines: %d", session.ID, session.Game.Score, session.Game.LinesCleared)
		}
		sm.broadcastLocked(session)
	}
}

// repeatAll は押しっぱなしの操作のうち、次の実行時刻を過ぎたものを実行します。
func (sm *SessionManager) repeatAll(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, session := range sm.sessions {
		r := session.repeat
		if r == nil || session.Status != StatusPlaying || now.Before(r.next) {
			continue
		}
		r.next = now.Add(r.interval)
		if ApplyPlayerInput(session.Game, r.action) {
			sm.broadcastLocked(session)
		}
		if session.Game.Phase == tetris.PhaseOver {
			session.repeat = nil
		}
	}
}

// broadcastLocked はセッションの状態をクライアントに送信します。mu を持った状態で呼び出してください。
func (sm *SessionManager) broadcastLocked(session *Session) {
	client, ok := sm.clients[session.ID]
	if !ok {
		return
	}
	stateJSON, err := json.Marshal(session.ToState())
	if err != nil {
		log.Printf("[SessionManager] Error marshaling session state for %s: %v", session.ID, err)
		return
	}
	if !client.SafeSend(stateJSON) {
		log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
	}
}

// CreateSession は新しいゲームセッションを作成します。
//
// Parameters:
//
//	userID : セッションを所有するユーザーのID
//
// Returns:
//
//	string: 作成されたセッションのID
//	error : エラーが発生した場合
func (sm *SessionManager) CreateSession(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("create session: empty user id")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sessionID := uuid.New().String()
	sm.sessions[sessionID] = &Session{
		ID:        sessionID,
		OwnerID:   userID,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		Game:      NewGameStateWithSize(sm.config.FieldWidth, sm.config.FieldHeight, sm.seed()),
	}
	log.Printf("[SessionManager] Created new game session: %s for user %s", sessionID, userID)
	return sessionID, nil
}

// GetSessionState は指定されたセッションの現在の状態のコピーを返します。
func (sm *SessionManager) GetSessionState(sessionID string) (*SessionState, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return session.ToState(), true
}

// CheckClient はユーザーがセッションに接続できるかどうかを確認します。
// セッションが存在しない、所有者が違う、または終了済みの場合はエラーを返します。
func (sm *SessionManager) CheckClient(sessionID, userID string) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	switch {
	case !ok:
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	case session.OwnerID != userID:
		return fmt.Errorf("session %s: %w", sessionID, ErrNotSessionOwner)
	case session.Status == StatusFinished:
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionFinished)
	}
	return nil
}

// RegisterClient は新しいWebSocket接続をセッションに登録し、読み書きのゴルーチンを開始します。
//
// Parameters:
//
//	sessionID : 接続先のセッションID
//	userID    : 認証済みのユーザーID
//	conn      : WebSocketコネクション
//
// Returns:
//
//	error: セッションが存在しない、または所有者が違う場合
func (sm *SessionManager) RegisterClient(sessionID, userID string, conn *websocket.Conn) error {
	if err := sm.CheckClient(sessionID, userID); err != nil {
		return fmt.Errorf("register client: %w", err)
	}

	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 512),
	}

	select {
	case sm.register <- client:
	case <-sm.quit:
		return fmt.Errorf("register client %s: session manager stopped", sessionID)
	}

	go sm.readPump(client)
	go client.writePump()
	return nil
}

// EndSession はセッションを終了させ、クライアントを切断してセッションを削除します。
func (sm *SessionManager) EndSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return fmt.Errorf("end session %s: %w", sessionID, ErrSessionNotFound)
	}
	sm.endSessionLocked(session)
	return nil
}

func (sm *SessionManager) endSessionLocked(session *Session) {
	session.Status = StatusFinished
	session.EndedAt = time.Now()
	session.repeat = nil
	log.Printf("[SessionManager] Game session %s ended. Score: %d", session.ID, session.Game.Score)

	// 最後の状態を送ってから切断する
	sm.broadcastLocked(session)
	if client, ok := sm.clients[session.ID]; ok {
		client.SafeClose()
		delete(sm.clients, session.ID)
	}
	delete(sm.sessions, session.ID)
}

// readPump はクライアントからのWebSocketメッセージを読み込み、 inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(300 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(300 * time.Second))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SessionManager] WebSocket unexpected close error for user %s: %v", client.UserID, err)
			}
			return
		}
		client.Conn.SetReadDeadline(time.Now().Add(300 * time.Second))

		var inputEvent PlayerInputEvent
		if err := json.Unmarshal(message, &inputEvent); err != nil {
			log.Printf("[SessionManager] Failed to unmarshal input message from %s: %v, message: %s", client.UserID, err, message)
			continue
		}
		// 接続に紐づくIDで上書きする
		inputEvent.UserID = client.UserID
		inputEvent.SessionID = client.SessionID

		select {
		case sm.inputEvents <- inputEvent:
		default:
			log.Printf("[SessionManager] Input events channel is full, dropping message from user %s", client.UserID)
		}
	}
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(60 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// マネージャーがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing message for user %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Client] Error sending ping for user %s: %v", c.UserID, err)
				return
			}
		}
	}
}

// Shutdown はSessionManagerを安全にシャットダウンします
func (sm *SessionManager) Shutdown() {
	log.Printf("[SessionManager] Shutting down...")
	sm.quitOnce.Do(func() { close(sm.quit) })

	sm.mu.Lock()
	for sessionID, client := range sm.clients {
		client.SafeClose()
		delete(sm.clients, sessionID)
	}
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	log.Printf("[SessionManager] Shutdown complete")
}
