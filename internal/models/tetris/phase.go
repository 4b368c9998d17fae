package tetris

import "fmt"

// Phase はゲームの進行状態です。
type Phase int

const (
	PhaseActive Phase = iota // プレイ中
	PhasePaused              // 一時停止中（描画は続く）
	PhaseOver                // ゲームオーバー
)

var phaseNames = [...]string{"active", "paused", "over"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("tetris: invalid phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("tetris: unknown phase %q", text)
}
