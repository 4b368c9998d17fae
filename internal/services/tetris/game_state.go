package tetris

import (
	"errors"
	"math/rand"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

// ErrGameNotOver はゲームオーバーでないときに続行/終了の選択をしようとした場合のエラーです。
var ErrGameNotOver = errors.New("tetris: restart decision is only valid when the game is over")

// GameState は1人分のゲーム状態（ボード、操作中のピース、スコア、進行状態）です。
// ホスト側（セッションマネージャーや端末クライアント）がこの構造体を所有し、
// 1度に1つの操作だけを呼び出します。内部でゴルーチンやロックは使いません。
type GameState struct {
	Field        *tetris.Field
	Current      *tetris.Piece
	Score        int
	LinesCleared int
	Pieces       int          // このゲームで出現したピースの数
	Phase        tetris.Phase
	Finished     bool // ゲームオーバー後に終了が選ばれた
	rand         *rand.Rand
}

// NewGameState は新しいゲームを始めた状態を返します。
//
// Parameters:
//
//	r : ピース生成用の乱数ジェネレータ。nilの場合は現在時刻で初期化します。
//
// Returns:
//
//	*GameState: 初期化されたゲーム状態のポインタ
func NewGameState(r *rand.Rand) *GameState {
	return NewGameStateWithSize(tetris.BoardWidth, tetris.BoardHeight, r)
}

// NewGameStateWithSize は指定したボードサイズで新しいゲームを始めます。
func NewGameStateWithSize(width, height int, r *rand.Rand) *GameState {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &GameState{
		Field: tetris.NewField(width, height),
		rand:  r,
	}
	s.Reset()
	return s
}

// Reset はボード、スコア、進行状態を初期化し、最初のピースを出現させます。
func (s *GameState) Reset() {
	s.Field.Reset()
	s.Score = 0
	s.LinesCleared = 0
	s.Pieces = 0
	s.Phase = tetris.PhaseActive
	s.Finished = false
	s.SpawnNewPiece()
}

// SpawnX はピースが出現する列です（ボードの中央）。
func (s *GameState) SpawnX() int {
	return s.Field.Width()/2 - 1
}

// SpawnNewPiece は7種類から一様にランダムに選んだピースを、回転0でボード中央の最上段に出現させます。
// 乱数を使うのはここだけです。
func (s *GameState) SpawnNewPiece() {
	shape := tetris.Shape(s.rand.Intn(tetris.ShapeCount))
	s.Current = tetris.NewPiece(shape, s.SpawnX(), 0)
	s.Pieces++
}

// Tick は重力で1段分ゲームを進めます。
// 着地した場合は固定、ライン消去、次のピースの出現、ゲームオーバー判定を行います。
func (s *GameState) Tick() Snapshot {
	if s.Phase == tetris.PhaseActive && !s.Current.MoveDown(s.Field, s.Phase) {
		s.land()
	}
	return s.Snapshot()
}

// MoveLeft はピースを左に動かします。
func (s *GameState) MoveLeft() bool {
	return s.Current.MoveLeft(s.Field, s.Phase)
}

// MoveRight はピースを右に動かします。
func (s *GameState) MoveRight() bool {
	return s.Current.MoveRight(s.Field, s.Phase)
}

// Rotate はピースを時計回りに回転させます。
func (s *GameState) Rotate() bool {
	return s.Current.Rotate(s.Field, s.Phase)
}

// MoveDown はプレイヤー操作でピースを1段落とします。
// 一時停止中は動かさずにtrueを返します。
// 着地した場合はfalseを返し、Tickと同じ着地処理を行います。
func (s *GameState) MoveDown() bool {
	if s.Phase == tetris.PhaseOver {
		return false
	}
	if s.Current.MoveDown(s.Field, s.Phase) {
		return true
	}
	s.land()
	return false
}

// HardDrop はピースを着地するまで落とし、そのまま着地処理を行います。
func (s *GameState) HardDrop() bool {
	if s.Phase != tetris.PhaseActive {
		return false
	}
	for s.Current.MoveDown(s.Field, s.Phase) {
	}
	s.land()
	return true
}

// land は下に動けなくなったピースの処理です。
//
// ピースが出現位置の最上段 (Y == 0) のまま動けない場合は、次のピースを置く余地がないので
// 固定せずにゲームオーバーにします。判定は出現位置の行だけを見ています。
func (s *GameState) land() {
	if s.Current.Y == 0 {
		s.Phase = tetris.PhaseOver
		return
	}
	s.Field.MergePiece(s.Current)
	cleared := s.Field.ClearLines()
	s.Score += cleared
	s.LinesCleared += cleared
	s.SpawnNewPiece()
}

// TogglePause はプレイ中と一時停止を切り替えます。ゲームオーバー中は何もしません。
func (s *GameState) TogglePause() tetris.Phase {
	switch s.Phase {
	case tetris.PhaseActive:
		s.Phase = tetris.PhasePaused
	case tetris.PhasePaused:
		s.Phase = tetris.PhaseActive
	}
	return s.Phase
}

// RestartDecision はゲームオーバー後の続行/終了を反映します。
//
// Parameters:
//
//	continuePlaying : trueなら新しいゲームを始め、falseならセッションを終了します
//
// Returns:
//
//	error: ゲームオーバーでない場合は ErrGameNotOver
func (s *GameState) RestartDecision(continuePlaying bool) error {
	if s.Phase != tetris.PhaseOver {
		return ErrGameNotOver
	}
	if continuePlaying {
		s.Reset()
		return nil
	}
	s.Finished = true
	return nil
}

// Snapshot は描画側に渡すためのゲーム状態のコピーです。
type Snapshot struct {
	Field        [][]tetris.Block `json:"field"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Piece        *tetris.Piece    `json:"piece"`
	Color        tetris.RGB       `json:"color"`
	Score        int              `json:"score"`
	LinesCleared int              `json:"lines_cleared"`
	Phase        tetris.Phase     `json:"phase"`
	Finished     bool             `json:"finished"`
}

// Snapshot は現在の状態のコピーを返します。返り値を変更してもゲーム状態には影響しません。
func (s *GameState) Snapshot() Snapshot {
	return Snapshot{
		Field:        s.Field.Rows(),
		Width:        s.Field.Width(),
		Height:       s.Field.Height(),
		Piece:        s.Current.Clone(),
		Color:        s.Current.Shape.Color(),
		Score:        s.Score,
		LinesCleared: s.LinesCleared,
		Phase:        s.Phase,
		Finished:     s.Finished,
	}
}
