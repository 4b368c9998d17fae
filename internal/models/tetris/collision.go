package tetris

// Intersects はピース行列をボード上の (x, y) に置いたときに、
// 壁や既存のブロックと衝突するかどうかを判定します。
// 左右・下への移動、回転の可否は全てこの関数で判定します。
//
// ボード外の座標はインデックスを参照する前に弾くので、
// ここでは範囲外の座標を渡しても安全です。
//
// Parameters:
//
//	x, y : ピース行列の左上のボード座標
//	m    : 判定するピース行列
//	f    : ボード
//
// Returns:
//
//	bool: 衝突する場合はtrue、しない場合はfalse
func Intersects(x, y int, m *Matrix, f *Field) bool {
	for row := 0; row < MatrixSize; row++ {
		for col := 0; col < MatrixSize; col++ {
			if m[row][col].IsEmpty() {
				continue // 空のマスは判定に関係しない
			}
			bx := x + col
			by := y + row
			if !f.InBounds(bx, by) {
				return true
			}
			if !f.Get(bx, by).IsEmpty() {
				return true
			}
		}
	}
	return false
}
