package tetris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

func newTestState(t *testing.T) *GameState {
	t.Helper()
	state := NewGameState(rand.New(rand.NewSource(1)))
	require.NotNil(t, state.Current)
	return state
}

// setPiece は乱数に頼らずにテストで使うピースを差し替えます。
func setPiece(state *GameState, shape tetris.Shape, x, y int) {
	state.Current = tetris.NewPiece(shape, x, y)
}

func fillRowExcept(f *tetris.Field, y int, skip ...int) {
	for x := 0; x < f.Width(); x++ {
		f.Set(x, y, tetris.BlockOf(tetris.ShapeZ))
	}
	for _, x := range skip {
		f.Set(x, y, tetris.BlockEmpty)
	}
}

func TestNewGameState(t *testing.T) {
	state := newTestState(t)

	assert.Equal(t, 0, state.Score)
	assert.Equal(t, tetris.PhaseActive, state.Phase)
	assert.False(t, state.Finished)
	assert.Equal(t, 1, state.Pieces)
	assert.Equal(t, tetris.BoardWidth*tetris.BoardHeight, state.Field.EmptyCount())

	assert.Equal(t, 4, state.Current.X)
	assert.Equal(t, 0, state.Current.Y)
	assert.Equal(t, 0, state.Current.Rotation)
	assert.True(t, state.Current.Shape.Valid())
}

func TestNewGameState_NilRandIsSeeded(t *testing.T) {
	state := NewGameState(nil)
	assert.NotNil(t, state.Current)
}

func TestSpawnNewPiece_UsesEveryShape(t *testing.T) {
	state := newTestState(t)
	seen := make(map[tetris.Shape]bool)
	for i := 0; i < 500; i++ {
		state.SpawnNewPiece()
		seen[state.Current.Shape] = true
		assert.Equal(t, state.SpawnX(), state.Current.X)
		assert.Equal(t, 0, state.Current.Y)
	}
	assert.Len(t, seen, tetris.ShapeCount)
}

func TestTick_FallsOneRow(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeO, 4, 0)

	snap := state.Tick()
	assert.Equal(t, 1, state.Current.Y)
	assert.Equal(t, 1, snap.Piece.Y)
	assert.Equal(t, tetris.PhaseActive, snap.Phase)
}

func TestTick_LocksAndSpawns(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeO, 0, tetris.BoardHeight-2)
	pieces := state.Pieces

	state.Tick()

	assert.Equal(t, pieces+1, state.Pieces)
	assert.Equal(t, tetris.BlockOf(tetris.ShapeO), state.Field.Get(0, tetris.BoardHeight-1))
	assert.Equal(t, tetris.BlockOf(tetris.ShapeO), state.Field.Get(1, tetris.BoardHeight-2))
	assert.Equal(t, 0, state.Current.Y)
	assert.Equal(t, 0, state.Score)
}

func TestTick_LockClearsLinesAndScores(t *testing.T) {
	state := newTestState(t)
	// 下2行を左端2列だけ空けておき、Oミノで埋める
	fillRowExcept(state.Field, tetris.BoardHeight-1, 0, 1)
	fillRowExcept(state.Field, tetris.BoardHeight-2, 0, 1)
	setPiece(state, tetris.ShapeO, 0, tetris.BoardHeight-2)

	state.Tick()

	assert.Equal(t, 2, state.Score)
	assert.Equal(t, 2, state.LinesCleared)
	assert.Equal(t, tetris.BoardWidth*tetris.BoardHeight, state.Field.EmptyCount())
}

func TestTick_GameOverAtSpawnRow(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeO, 4, 0)
	state.Field.Set(4, 2, tetris.BlockOf(tetris.ShapeI))
	empty := state.Field.EmptyCount()

	snap := state.Tick()

	assert.Equal(t, tetris.PhaseOver, snap.Phase)
	assert.Equal(t, empty, state.Field.EmptyCount(), "piece is not locked on game over")

	// ゲームオーバー中は何も動かない
	state.Tick()
	assert.False(t, state.MoveLeft())
	assert.False(t, state.MoveRight())
	assert.False(t, state.Rotate())
	assert.False(t, state.MoveDown())
	assert.False(t, state.HardDrop())
	assert.Equal(t, tetris.PhaseOver, state.TogglePause())
}

func TestMoveDown_FailureAtSpawnRowEndsGame(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeI, 4, 0)
	state.Field.Set(5, 2, tetris.BlockOf(tetris.ShapeT)) // 横向きの I は行1を使う

	assert.False(t, state.MoveDown())
	assert.Equal(t, tetris.PhaseOver, state.Phase)
}

func TestMoveDown_FailureBelowSpawnRowLocks(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeO, 4, tetris.BoardHeight-2)
	pieces := state.Pieces

	assert.False(t, state.MoveDown())
	assert.Equal(t, tetris.PhaseActive, state.Phase)
	assert.Equal(t, pieces+1, state.Pieces)
}

func TestMoveLeft_AgainstWall(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeO, 4, 5)
	for i := 0; i < 10; i++ {
		state.MoveLeft()
	}
	assert.Equal(t, 0, state.Current.X)
}

func TestHardDrop(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeI, 3, 2)
	pieces := state.Pieces

	assert.True(t, state.HardDrop())
	assert.Equal(t, pieces+1, state.Pieces)
	for x := 3; x < 7; x++ {
		assert.Equal(t, tetris.BlockOf(tetris.ShapeI), state.Field.Get(x, tetris.BoardHeight-1))
	}
}

func TestTogglePause(t *testing.T) {
	state := newTestState(t)
	setPiece(state, tetris.ShapeT, 4, 5)

	assert.Equal(t, tetris.PhasePaused, state.TogglePause())
	assert.False(t, state.MoveLeft())
	assert.False(t, state.MoveRight())
	assert.False(t, state.Rotate())
	assert.False(t, state.HardDrop())
	assert.True(t, state.MoveDown(), "down under pause succeeds without moving")
	state.Tick()
	assert.Equal(t, 4, state.Current.X)
	assert.Equal(t, 5, state.Current.Y)
	assert.Equal(t, 0, state.Current.Rotation)

	assert.Equal(t, tetris.PhaseActive, state.TogglePause())
	assert.True(t, state.MoveLeft())
}

func TestRestartDecision(t *testing.T) {
	state := newTestState(t)
	assert.ErrorIs(t, state.RestartDecision(true), ErrGameNotOver)

	state.Score = 7
	state.Field.Set(0, 19, tetris.BlockOf(tetris.ShapeL))
	state.Phase = tetris.PhaseOver

	require.NoError(t, state.RestartDecision(true))
	assert.Equal(t, 0, state.Score)
	assert.Equal(t, tetris.PhaseActive, state.Phase)
	assert.Equal(t, tetris.BoardWidth*tetris.BoardHeight, state.Field.EmptyCount())
	assert.False(t, state.Finished)

	state.Phase = tetris.PhaseOver
	require.NoError(t, state.RestartDecision(false))
	assert.True(t, state.Finished)
}

func TestSnapshot_IsCopy(t *testing.T) {
	state := newTestState(t)
	snap := state.Snapshot()
	snap.Field[0][0] = tetris.BlockOf(tetris.ShapeT)
	snap.Piece.X = 9

	assert.True(t, state.Field.Get(0, 0).IsEmpty())
	assert.Equal(t, 4, state.Current.X)
	assert.Equal(t, state.Current.Shape.Color(), snap.Color)
	assert.Equal(t, tetris.BoardWidth, snap.Width)
	assert.Equal(t, tetris.BoardHeight, snap.Height)
}

func TestScoreNeverDecreasesDuringPlay(t *testing.T) {
	state := NewGameState(rand.New(rand.NewSource(42)))
	last := 0
	for i := 0; i < 2000 && state.Phase != tetris.PhaseOver; i++ {
		switch i % 5 {
		case 0:
			state.MoveLeft()
		case 1:
			state.Rotate()
		case 2:
			state.MoveRight()
		}
		state.Tick()
		assert.GreaterOrEqual(t, state.Score, last)
		last = state.Score
	}
}
