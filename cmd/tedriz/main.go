// tedriz は端末で遊ぶ1人用の落ち物パズルです。
// ゲームのコアは internal/services/tetris の GameState をそのまま使います。
package main

import (
	"log"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/models/tetris"
	services "github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/services/tetris"
)

type Game struct {
	screen tcell.Screen
	state  *services.GameState
	drop   time.Duration
}

func NewGame(cfg *config.Config) (*Game, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Game{
		screen: screen,
		state:  services.NewGameStateWithSize(cfg.FieldWidth, cfg.FieldHeight, r),
		drop:   cfg.DropInterval,
	}, nil
}

// handleInput はキー入力を1つ処理します。ゲームを終了する場合は false を返します。
func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if g.state.Phase == tetris.PhaseOver {
			return g.handleGameOverKey(ev)
		}
		if ev.Key() == tcell.KeyEscape {
			return false
		}
		if action, ok := actionForKey(ev); ok {
			if action == services.ActionQuit {
				return false
			}
			services.ApplyPlayerInput(g.state, action)
		}
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

// handleGameOverKey は "Continue? (y/n)" への応答を処理します。
func (g *Game) handleGameOverKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape {
		g.state.RestartDecision(false)
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}
	switch ev.Rune() {
	case 'y', 'Y':
		g.state.RestartDecision(true)
	case 'n', 'N':
		g.state.RestartDecision(false)
	}
	return !g.state.Finished
}

func actionForKey(ev *tcell.EventKey) (string, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return services.ActionMoveLeft, true
	case tcell.KeyRight:
		return services.ActionMoveRight, true
	case tcell.KeyDown:
		return services.ActionMoveDown, true
	case tcell.KeyUp:
		return services.ActionRotate, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return services.ActionHardDrop, true
		case 'p', 'P':
			return services.ActionPause, true
		case 'q', 'Q':
			return services.ActionQuit, true
		}
	}
	return "", false
}

func (g *Game) run() {
	ticker := time.NewTicker(g.drop)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return // Fini された
			}
			eventChan <- ev
		}
	}()

	g.draw()
	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}
		case <-ticker.C:
			g.state.Tick()
		}
		g.draw()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	game, err := NewGame(cfg)
	if err != nil {
		log.Fatalf("failed to initialize screen: %v", err)
	}
	game.run()
	game.screen.Fini()
	log.Printf("Final score: %d", game.state.Score)
}
