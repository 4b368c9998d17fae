package tetris

// MatrixSize はピース行列の一辺の長さです。
const MatrixSize = 4

// Block はボードやピース行列の1マスの値を表します。
// ゼロ値が空のマスなので、var で宣言したボードは最初から空です。
type Block int

const (
	BlockEmpty Block = iota // 0: 空のマス
)

// BlockOf はShapeに対応するブロック値を返します (Shape 0-6 -> Block 1-7)。
func BlockOf(shape Shape) Block {
	return Block(shape + 1)
}

// IsEmpty はマスが空かどうかを返します。
func (b Block) IsEmpty() bool {
	return b == BlockEmpty
}

// Shape はブロックの元になったShapeを返します。空のマスの場合はfalseです。
func (b Block) Shape() (Shape, bool) {
	if b == BlockEmpty {
		return 0, false
	}
	return Shape(b - 1), true
}

// Matrix はピースを 4x4 の座標グリッドに展開したものです。
// Matrix[row][col] でアクセスします。
type Matrix [MatrixSize][MatrixSize]Block

// BuildMatrix は回転マスクを展開してピース行列を作ります。
// 衝突判定や固定処理はマスクではなくこの行列の座標で動きます。
//
// Parameters:
//
//	shape    : テトリミノの種類
//	rotation : 回転状態 (0..3)
//
// Returns:
//
//	Matrix: 埋まっているマスにBlockOf(shape)、それ以外にBlockEmptyが入った行列
func BuildMatrix(shape Shape, rotation int) Matrix {
	mask := RotationMask(shape, rotation)
	block := BlockOf(shape)

	var m Matrix
	for row := 0; row < MatrixSize; row++ {
		for col := 0; col < MatrixSize; col++ {
			if mask&(0x8000>>(row*MatrixSize+col)) != 0 {
				m[row][col] = block
			}
		}
	}
	return m
}

// Each は埋まっているマスごとに fn(col, row, block) を呼び出します。
func (m *Matrix) Each(fn func(col, row int, b Block)) {
	for row := 0; row < MatrixSize; row++ {
		for col := 0; col < MatrixSize; col++ {
			if !m[row][col].IsEmpty() {
				fn(col, row, m[row][col])
			}
		}
	}
}

// Count は埋まっているマスの数を返します。
func (m *Matrix) Count() int {
	n := 0
	m.Each(func(int, int, Block) { n++ })
	return n
}
