package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
)

const (
	cellWidth = 2 // 1マスを2文字幅で描く
	originX   = 2
	originY   = 1
)

var borderStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)

func blockStyle(b tetris.Block) tcell.Style {
	shape, ok := b.Shape()
	if !ok {
		return tcell.StyleDefault
	}
	c := shape.Color()
	return tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

func (g *Game) drawCell(x, y int, style tcell.Style) {
	sx := originX + cellWidth + x*cellWidth
	for i := 0; i < cellWidth; i++ {
		g.screen.SetContent(sx+i, originY+y, ' ', nil, style)
	}
}

func (g *Game) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		g.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (g *Game) draw() {
	g.screen.Clear()
	snap := g.state.Snapshot()

	// 枠
	for y := 0; y <= snap.Height; y++ {
		g.drawText(originX, originY+y, "<!", borderStyle)
		g.drawText(originX+cellWidth+snap.Width*cellWidth, originY+y, "!>", borderStyle)
	}
	for x := 0; x < snap.Width; x++ {
		g.drawCell(x, snap.Height, borderStyle.Reverse(true))
	}

	for y, row := range snap.Field {
		for x, b := range row {
			if !b.IsEmpty() {
				g.drawCell(x, y, blockStyle(b))
			}
		}
	}

	if p := snap.Piece; p != nil && snap.Phase != tetris.PhaseOver {
		p.Matrix.Each(func(col, row int, b tetris.Block) {
			if !b.IsEmpty() {
				g.drawCell(p.X+col, p.Y+row, blockStyle(b))
			}
		})
	}

	status := fmt.Sprintf("Skor: %d", snap.Score)
	if snap.Phase == tetris.PhasePaused {
		status += " (PAUSED)"
	}
	textX := originX + 2*cellWidth + snap.Width*cellWidth + 2
	g.drawText(textX, originY, status, tcell.StyleDefault)
	if snap.Phase == tetris.PhaseOver {
		g.drawText(textX, originY+2, "Game over. Continue? (y/n)", tcell.StyleDefault.Bold(true))
	}

	g.screen.Show()
}
