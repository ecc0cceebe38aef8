package valentine

import (
	"fmt"
	"strings"

	"github.com/ashureev/valentine/internal/compat"
	"github.com/containerd/errdefs"
)

// GameKind names one of the compatibility games.
type GameKind string

const (
	// GameFlames is the FLAMES elimination game.
	GameFlames GameKind = "flames"
	// GameLove is the love percentage calculator.
	GameLove GameKind = "love"
)

// ParseGameKind validates a game name from the outside world.
func ParseGameKind(s string) (GameKind, error) {
	switch GameKind(strings.ToLower(strings.TrimSpace(s))) {
	case GameFlames:
		return GameFlames, nil
	case GameLove:
		return GameLove, nil
	default:
		return "", fmt.Errorf("unknown game %q: %w", s, errdefs.ErrInvalidArgument)
	}
}

// ResultCountdown is how many ticks a result stays up before the proposal.
const ResultCountdown = 6

// game is the shared sub-state of both compatibility games.
type game struct {
	kind    GameKind
	state   State
	compute func(a, b string) compat.Result

	nameA     string
	nameB     string
	result    *compat.Result
	countdown int
	timer     pending
}

func newGame(kind GameKind) *game {
	g := &game{kind: kind, countdown: ResultCountdown}
	switch kind {
	case GameFlames:
		g.state = StateFlames
		g.compute = compat.FlamesResult
	case GameLove:
		g.state = StateLoveCalculator
		g.compute = compat.LoveResult
	}
	return g
}

func (g *game) showing() bool {
	return g.result != nil
}

func (g *game) ready() bool {
	return strings.TrimSpace(g.nameA) != "" && strings.TrimSpace(g.nameB) != ""
}

func (g *game) run() {
	r := g.compute(g.nameA, g.nameB)
	g.result = &r
	g.countdown = ResultCountdown
}

func (g *game) reset() {
	g.timer.cancel()
	g.result = nil
	g.countdown = ResultCountdown
}

func (g *game) view() GameView {
	v := GameView{
		NameA:     g.nameA,
		NameB:     g.nameB,
		Countdown: g.countdown,
		Showing:   g.showing(),
	}
	if g.result != nil {
		r := *g.result
		v.Result = &r
	}
	return v
}
