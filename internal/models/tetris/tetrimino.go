package tetris

import "fmt"

// Shape はテトリミノの種類を表します。
// 値はピースカタログ（rotationMasks）のインデックスと一致します。
type Shape int

const (
	ShapeT Shape = iota // 0: T-ミノ
	ShapeS              // 1: S-ミノ
	ShapeZ              // 2: Z-ミノ
	ShapeI              // 3: I-ミノ
	ShapeJ              // 4: J-ミノ
	ShapeL              // 5: L-ミノ
	ShapeO              // 6: O-ミノ
)

// ShapeCount はカタログに登録されているテトリミノの種類数です。
const ShapeCount = 7

// RotationCount は1種類のテトリミノが持つ回転状態の数です。
const RotationCount = 4

// rotationMasks は各Shapeの各回転状態を16ビットのマスクで表したテーブルです。
// [Shape][Rotation]
//
// 4x4 のウィンドウの (row, col) は、ビット 15-(row*4+col) に対応します。
// つまり 0x8000 >> (row*4+col) が立っていればそのマスが埋まっています。
// 1つの16進数の桁が1行分（上の行から順に）になるので、例えば T の 0x4E00 は
//
//	0100  -> 4
//	1110  -> E
//	0000  -> 0
//	0000  -> 0
//
// と読めます。テーブルを作り直す場合はこの規則で各行を4ビットずつ並べてください。
var rotationMasks = [ShapeCount][RotationCount]uint16{
	ShapeT: {0x4E00, 0x4C40, 0x0E40, 0x4640},
	ShapeS: {0x6C00, 0x8C40, 0x6C00, 0x8C40},
	ShapeZ: {0xC600, 0x4C80, 0xC600, 0x4C80},
	ShapeI: {0x0F00, 0x4444, 0x0F00, 0x4444},
	ShapeJ: {0xE200, 0xC880, 0x8E00, 0x44C0},
	ShapeL: {0x2E00, 0xC440, 0xE800, 0x88C0},
	ShapeO: {0xCC00, 0xCC00, 0xCC00, 0xCC00},
}

// RGB は描画側がブロックの色を決めるための色情報です。
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var shapeColors = [ShapeCount]RGB{
	ShapeT: {255, 0, 0},
	ShapeS: {0, 255, 0},
	ShapeZ: {0, 0, 255},
	ShapeI: {255, 255, 0},
	ShapeJ: {255, 0, 255},
	ShapeL: {0, 255, 255},
	ShapeO: {255, 255, 255},
}

var shapeNames = [ShapeCount]string{"T", "S", "Z", "I", "J", "L", "O"}

// RotationMask は指定されたShapeと回転状態の16ビットマスクを返します。
// 範囲外のShapeや回転はプログラムの誤りなのでpanicします。
//
// Parameters:
//
//	shape    : テトリミノの種類 (ShapeT..ShapeO)
//	rotation : 回転状態 (0..3)
//
// Returns:
//
//	uint16: 回転状態のマスク
func RotationMask(shape Shape, rotation int) uint16 {
	if !shape.Valid() {
		panic(fmt.Sprintf("tetris: invalid shape %d", shape))
	}
	if rotation < 0 || rotation >= RotationCount {
		panic(fmt.Sprintf("tetris: invalid rotation %d for shape %s", rotation, shape))
	}
	return rotationMasks[shape][rotation]
}

// NextRotation は時計回りに90度回転した後の回転状態を返します（3の次は0）。
func NextRotation(rotation int) int {
	return (rotation + 1) % RotationCount
}

// Shapes はカタログ順に全てのShapeを返します。
func Shapes() []Shape {
	shapes := make([]Shape, ShapeCount)
	for i := range shapes {
		shapes[i] = Shape(i)
	}
	return shapes
}

// Valid はShapeがカタログに存在するかどうかを返します。
func (s Shape) Valid() bool {
	return s >= 0 && s < ShapeCount
}

// Color はShapeの表示色を返します。
func (s Shape) Color() RGB {
	if !s.Valid() {
		return RGB{}
	}
	return shapeColors[s]
}

func (s Shape) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

// MarshalText はShapeを "T", "S" などの文字列としてJSONに出力します。
func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("tetris: invalid shape %d", int(s))
	}
	return []byte(shapeNames[s]), nil
}

// UnmarshalText は "T", "S" などの文字列からShapeを復元します。
func (s *Shape) UnmarshalText(text []byte) error {
	shape, ok := ParseShape(string(text))
	if !ok {
		return fmt.Errorf("tetris: unknown shape %q", text)
	}
	*s = shape
	return nil
}

// ParseShape は文字列のテトリミノタイプ（"T", "S" など）をShapeに変換します。
func ParseShape(s string) (Shape, bool) {
	for i, name := range shapeNames {
		if name == s {
			return Shape(i), true
		}
	}
	return ShapeT, false
}
