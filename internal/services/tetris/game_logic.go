package tetris

import (
	"time"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

// ホスト側のタイマー設定です。コアの操作は呼び出し間隔に依存しないので、
// 重力やキーリピートの速さはここの値でホストが決めます。
const (
	DropInterval           = 500 * time.Millisecond // 自動落下の間隔
	ShiftRepeatInterval    = 100 * time.Millisecond // 左右キー押しっぱなしのリピート間隔
	SoftDropRepeatInterval = 50 * time.Millisecond  // 下キー押しっぱなしのリピート間隔
)

// プレイヤーが送ってくる操作の種類です。
const (
	ActionMoveLeft  = "move_left"
	ActionMoveRight = "move_right"
	ActionMoveDown  = "move_down"
	ActionSoftDrop  = "soft_drop" // move_down の別名
	ActionRotate    = "rotate"
	ActionHardDrop  = "hard_drop"
	ActionPause     = "pause"
	ActionRestart   = "restart" // ゲームオーバー後に続行
	ActionQuit      = "quit"    // ゲームオーバー後に終了
)

// ApplyPlayerInput はプレイヤーの入力（アクション）に基づいて、ゲーム状態を更新します。
//
// Parameters:
//
//	state  : 更新するゲーム状態のポインタ
//	action : プレイヤーが実行したアクション（例: "move_left", "rotate"）
//
// Returns:
//
//	bool: ゲーム状態が実際に変更された場合はtrue、変更されなかった場合はfalse
func ApplyPlayerInput(state *GameState, action string) bool {
	if state == nil || state.Finished {
		return false
	}

	switch action {
	case ActionMoveLeft:
		return state.MoveLeft()
	case ActionMoveRight:
		return state.MoveRight()
	case ActionMoveDown, ActionSoftDrop:
		if state.Phase == tetris.PhasePaused {
			return false // 一時停止中は成功扱いだが何も動かない
		}
		// 着地した場合も、固定と次のピースの出現（またはゲームオーバー）で状態は変わる
		phase, pieces := state.Phase, state.Pieces
		moved := state.MoveDown()
		return moved || state.Pieces != pieces || state.Phase != phase
	case ActionRotate:
		return state.Rotate()
	case ActionHardDrop:
		return state.HardDrop()
	case ActionPause:
		before := state.Phase
		return state.TogglePause() != before
	case ActionRestart:
		return state.RestartDecision(true) == nil
	case ActionQuit:
		return state.RestartDecision(false) == nil
	}
	return false
}
