package tetris

const (
	BoardWidth  = 10 // デフォルトのボードの幅
	BoardHeight = 20 // デフォルトのボードの高さ
)

// Field は固定済みのブロックを保持するゲームボードです。
// cells[y][x] でアクセスします。yは行、xは列です。
// 幅と高さは生成後に変わりません。
type Field struct {
	width  int
	height int
	cells  [][]Block
}

// NewField は指定されたサイズの空のボードを作ります。
func NewField(width, height int) *Field {
	f := &Field{width: width, height: height}
	f.Reset()
	return f
}

// NewBoard はデフォルトサイズ (10x20) の空のボードを作ります。
func NewBoard() *Field {
	return NewField(BoardWidth, BoardHeight)
}

func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

// Get は (x, y) のマスを返します。範囲外の座標は呼び出し側の誤りです。
func (f *Field) Get(x, y int) Block {
	return f.cells[y][x]
}

// Set は (x, y) のマスを更新します。範囲外の座標は呼び出し側の誤りです。
func (f *Field) Set(x, y int, b Block) {
	f.cells[y][x] = b
}

// InBounds は (x, y) がボード内かどうかを返します。
func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// Reset はボードを全て空に戻します。
func (f *Field) Reset() {
	f.cells = make([][]Block, f.height)
	for y := range f.cells {
		f.cells[y] = make([]Block, f.width)
	}
}

// Rows は描画用にボードの内容のコピーを返します。
func (f *Field) Rows() [][]Block {
	rows := make([][]Block, f.height)
	for y, row := range f.cells {
		rows[y] = append([]Block(nil), row...)
	}
	return rows
}

// EmptyCount は空のマスの数を返します。
func (f *Field) EmptyCount() int {
	n := 0
	for _, row := range f.cells {
		for _, b := range row {
			if b.IsEmpty() {
				n++
			}
		}
	}
	return n
}

// MergePiece は着地したピースをボードに固定します。
// ピース行列の埋まっているマスを、そのままボードの対応するマスにコピーします。
// 呼び出し側は、ピースが Intersects で衝突しない位置にあることを保証してください。
//
// Parameters:
//
//	p : ボードに固定するピース
func (f *Field) MergePiece(p *Piece) {
	p.Matrix.Each(func(col, row int, b Block) {
		f.Set(p.X+col, p.Y+row, b)
	})
}

// ClearLines は揃ったラインを全て消し、上のブロックを落とします。
// 下の行から順に調べ、揃っていない行だけを新しいボードの下から詰めていきます。
// 消した行数と同じ数の空行が上に入るので、行数は常にHeightのままです。
//
// Returns:
//
//	int: 消したライン数（そのままスコアの増分になります）
func (f *Field) ClearLines() int {
	cleared := 0
	rows := make([][]Block, f.height)
	destY := f.height - 1

	for y := f.height - 1; y >= 0; y-- {
		if isLineFull(f.cells[y]) {
			cleared++
			continue
		}
		rows[destY] = f.cells[y]
		destY--
	}
	for ; destY >= 0; destY-- {
		rows[destY] = make([]Block, f.width)
	}

	f.cells = rows
	return cleared
}

func isLineFull(row []Block) bool {
	for _, b := range row {
		if b.IsEmpty() {
			return false
		}
	}
	return true
}
