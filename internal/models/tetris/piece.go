package tetris

// Piece は操作中のテトリミノの状態（種類、回転状態、ボード上の位置、展開済みの行列）を表します。
// X, Y はピース行列の左上のボード座標です。
type Piece struct {
	Shape    Shape  `json:"shape"`
	Rotation int    `json:"rotation"` // 0..3
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Matrix   Matrix `json:"matrix"`
}

// NewPiece は回転状態0のピースを (x, y) に作ります。
func NewPiece(shape Shape, x, y int) *Piece {
	return &Piece{
		Shape:  shape,
		X:      x,
		Y:      y,
		Matrix: BuildMatrix(shape, 0),
	}
}

// MoveLeft はピースを1マス左に動かします。
// 一時停止中、または壁やブロックに衝突する場合は動かさずにfalseを返します。
func (p *Piece) MoveLeft(f *Field, phase Phase) bool {
	return p.shift(f, phase, -1)
}

// MoveRight はピースを1マス右に動かします。
func (p *Piece) MoveRight(f *Field, phase Phase) bool {
	return p.shift(f, phase, 1)
}

func (p *Piece) shift(f *Field, phase Phase, dx int) bool {
	if phase != PhaseActive {
		return false
	}
	if Intersects(p.X+dx, p.Y, &p.Matrix, f) {
		return false
	}
	p.X += dx
	return true
}

// MoveDown はピースを1マス下に動かします。
// 一時停止中は重力が止まっているだけなので、動かさずにtrueを返します。
// falseが返った場合、呼び出し側はピースが着地したとみなします。
//
// Parameters:
//
//	f     : ボード
//	phase : 現在のゲームの進行状態
//
// Returns:
//
//	bool: 落下した（または一時停止中の）場合はtrue、着地した場合はfalse
func (p *Piece) MoveDown(f *Field, phase Phase) bool {
	switch phase {
	case PhasePaused:
		return true
	case PhaseOver:
		return false
	}
	if Intersects(p.X, p.Y+1, &p.Matrix, f) {
		return false
	}
	p.Y++
	return true
}

// Rotate はピースを時計回りに90度回転させます。
// 回転後の形を現在の位置に置いて衝突する場合は、壁蹴りはせずに回転を取り消します。
func (p *Piece) Rotate(f *Field, phase Phase) bool {
	if phase != PhaseActive {
		return false
	}
	next := NextRotation(p.Rotation)
	m := BuildMatrix(p.Shape, next)
	if Intersects(p.X, p.Y, &m, f) {
		return false
	}
	p.Rotation = next
	p.Matrix = m
	return true
}

// Clone は現在のPieceのコピーを返します。
func (p *Piece) Clone() *Piece {
	newP := *p
	return &newP
}
