// Package valentine implements the Valentine session state machine.
//
// A Machine owns one visitor's session. Every user action and every timer
// callback is applied under the machine's lock, so transitions never run
// concurrently even though HTTP handlers and timers live on different
// goroutines.
package valentine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/valentine/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
)

// State is the screen a session is on.
type State string

// Session states. INTRO is initial and SUCCESS is terminal.
const (
	StateIntro          State = "INTRO"
	StateQuestions      State = "QUESTIONS"
	StateMessage        State = "MESSAGE"
	StateFlames         State = "FLAMES"
	StateLoveCalculator State = "LOVE_CALCULATOR"
	StateProposal       State = "PROPOSAL"
	StateSuccess        State = "SUCCESS"
)

const (
	// complimentTicks is how long a compliment stays up before the next question.
	complimentTicks = 2

	defaultTick = time.Second

	defaultViewportWidth  = 1024
	defaultViewportHeight = 768
	noButtonMargin        = 200
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = fmt.Errorf("session closed: %w", errdefs.ErrNotFound)

func wrongState(op string, s State) error {
	return fmt.Errorf("%s is not available in state %s: %w", op, s, errdefs.ErrFailedPrecondition)
}

// IsWrongState reports whether err came from an action issued in a state
// that does not offer it.
func IsWrongState(err error) bool {
	return errdefs.IsFailedPrecondition(err)
}

// Random is the source of every random choice a session makes.
// *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Float64() float64
}

// Sink receives best-effort audit writes. Create, Update and Close must not
// block.
type Sink interface {
	Create(name string)
	Update(patch domain.Patch)
	Close()
	// Wait blocks until writes accepted before Close are done or ctx ends.
	Wait(ctx context.Context) error
}

// Viewport is the client's visible area, used to relocate the decline button.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Options configures a Machine. Zero values select defaults.
type Options struct {
	Scheduler Scheduler
	Random    Random
	Sink      Sink
	Content   *Content
	// Tick is the length of one time unit.
	Tick time.Duration
	// Observer is called with a fresh snapshot after every change,
	// outside the machine's lock.
	Observer func(Snapshot)
}

// Machine is one visitor's session.
type Machine struct {
	mu sync.Mutex

	sched    Scheduler
	rng      Random
	sink     Sink
	content  Content
	tick     time.Duration
	observer func(Snapshot)

	// id tells this session apart from earlier ones under the same key;
	// versions restart at zero with every new session.
	id      string
	version uint64
	gen     uint64
	closed  bool

	state   State
	name    string
	qIndex  int
	answers []domain.Answer

	advance     pending
	draft       string
	compliments []string
	compliment  string
	theme       Theme

	games map[GameKind]*game

	noAttempts int
	noButton   Point
	final      domain.FinalResponse
}

// New creates a session in the INTRO state.
func New(opts Options) *Machine {
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock{}
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	content := DefaultContent()
	if opts.Content != nil && len(opts.Content.Questions) > 0 {
		content = *opts.Content
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}

	return &Machine{
		sched:       opts.Scheduler,
		rng:         opts.Random,
		sink:        opts.Sink,
		content:     content,
		tick:        opts.Tick,
		observer:    opts.Observer,
		id:          uuid.NewString(),
		state:       StateIntro,
		compliments: append([]string(nil), content.Compliments...),
		games: map[GameKind]*game{
			GameFlames: newGame(GameFlames),
			GameLove:   newGame(GameLove),
		},
		final: domain.FinalPending,
	}
}

// Snapshot returns the current session view.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Start submits the visitor's name, kept as typed. A blank name is ignored.
func (m *Machine) Start(name string) (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateIntro {
			return wrongState("start", m.state)
		}
		if strings.TrimSpace(name) == "" {
			return errNoChange
		}
		m.name = name
		m.enter(StateQuestions)
		m.sink.Create(name)
		return nil
	})
}

// Answer submits an answer to the current question. The answer is recorded
// as typed and the next question shown after the compliment delay. Blank answers,
// choices outside the option list and answers submitted while the previous
// one is still pending are ignored.
func (m *Machine) Answer(text string) (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateQuestions {
			return wrongState("answer", m.state)
		}
		if m.advance.active() {
			return errNoChange
		}
		if !m.content.Questions[m.qIndex].accepts(text) {
			return errNoChange
		}

		m.draft = text
		m.compliment = m.drawCompliment()
		if len(m.content.Themes) > 0 {
			m.theme = m.content.Themes[m.rng.Intn(len(m.content.Themes))]
		}
		m.schedule(&m.advance, complimentTicks, m.recordAnswer)
		return nil
	})
}

// drawCompliment removes and returns a random unused compliment. Once the
// pool is empty no compliment is shown.
func (m *Machine) drawCompliment() string {
	if len(m.compliments) == 0 {
		return ""
	}
	i := m.rng.Intn(len(m.compliments))
	c := m.compliments[i]
	m.compliments = append(m.compliments[:i], m.compliments[i+1:]...)
	return c
}

func (m *Machine) recordAnswer() {
	m.answers = append(m.answers, domain.Answer{
		Question: m.content.Questions[m.qIndex].Text,
		Answer:   m.draft,
	})
	m.draft = ""
	m.compliment = ""
	m.sink.Update(domain.Patch{Answers: append([]domain.Answer{}, m.answers...)})

	if m.qIndex < len(m.content.Questions)-1 {
		m.qIndex++
		return
	}
	m.enter(StateMessage)
}

// Continue leaves the letter and opens FLAMES with the visitor's name filled in.
func (m *Machine) Continue() (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateMessage {
			return wrongState("continue", m.state)
		}
		m.games[GameFlames].nameA = m.name
		m.enter(StateFlames)
		return nil
	})
}

// OpenLoveCalculator switches from the FLAMES input screen to the love
// calculator with the visitor's name filled in.
func (m *Machine) OpenLoveCalculator() (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateFlames || m.games[GameFlames].showing() {
			return wrongState("open love calculator", m.state)
		}
		love := m.games[GameLove]
		if love.nameA == "" {
			love.nameA = m.name
		}
		m.enter(StateLoveCalculator)
		return nil
	})
}

// SetNames records the two names typed into a game.
func (m *Machine) SetNames(kind GameKind, a, b string) (Snapshot, error) {
	return m.do(func() error {
		g, err := m.activeGame(kind, "set names")
		if err != nil {
			return err
		}
		if g.showing() {
			return wrongState("set names", m.state)
		}
		g.nameA, g.nameB = a, b
		return nil
	})
}

// Compute runs the game on its current names and starts the countdown to
// the proposal. It is ignored while either name is blank or a result is up.
func (m *Machine) Compute(kind GameKind) (Snapshot, error) {
	return m.do(func() error {
		g, err := m.activeGame(kind, "compute")
		if err != nil {
			return err
		}
		if g.showing() || !g.ready() {
			return errNoChange
		}
		g.run()
		m.scheduleCountdown(g)
		return nil
	})
}

func (m *Machine) scheduleCountdown(g *game) {
	m.schedule(&g.timer, 1, func() {
		g.countdown--
		if g.countdown <= 0 {
			g.countdown = 0
			m.enter(StateProposal)
			return
		}
		m.scheduleCountdown(g)
	})
}

// Retry clears a shown result and returns the game to its input screen.
func (m *Machine) Retry(kind GameKind) (Snapshot, error) {
	return m.do(func() error {
		g, err := m.activeGame(kind, "retry")
		if err != nil {
			return err
		}
		if !g.showing() {
			return errNoChange
		}
		g.reset()
		return nil
	})
}

// Accept answers the proposal with yes. The session is then over.
func (m *Machine) Accept() (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateProposal {
			return wrongState("accept", m.state)
		}
		m.final = domain.FinalYes
		m.enter(StateSuccess)

		yes, final := 1, domain.FinalYes
		m.sink.Update(domain.Patch{YesAttempts: &yes, FinalResponse: &final})
		return nil
	})
}

// Decline answers the proposal with no. The session stays on the proposal,
// the attempt is counted and the decline button jumps somewhere else in vp.
func (m *Machine) Decline(vp Viewport) (Snapshot, error) {
	return m.do(func() error {
		if m.state != StateProposal {
			return wrongState("decline", m.state)
		}
		m.noAttempts++
		m.noButton = m.relocate(vp)

		no := m.noAttempts
		m.sink.Update(domain.Patch{NoAttempts: &no})
		return nil
	})
}

func (m *Machine) relocate(vp Viewport) Point {
	w, h := vp.Width, vp.Height
	if w <= 0 || h <= 0 {
		w, h = defaultViewportWidth, defaultViewportHeight
	}
	return Point{
		X: m.rng.Float64()*(w-noButtonMargin) - (w/2 - noButtonMargin/2),
		Y: m.rng.Float64()*(h-noButtonMargin) - (h/2 - noButtonMargin/2),
	}
}

// Close cancels pending timers and closes the sink without waiting for it.
// Later operations return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelTimers()
	m.mu.Unlock()

	m.sink.Close()
}

// Wait blocks until the sink has written everything the session sent it,
// or until ctx ends. Call it after Close.
func (m *Machine) Wait(ctx context.Context) error {
	return m.sink.Wait(ctx)
}

func (m *Machine) activeGame(kind GameKind, op string) (*game, error) {
	g, ok := m.games[kind]
	if !ok {
		return nil, fmt.Errorf("unknown game %q: %w", kind, errdefs.ErrInvalidArgument)
	}
	if m.state != g.state {
		return nil, wrongState(op, m.state)
	}
	return g, nil
}

// enter moves to s. Timers belong to the state that scheduled them, so
// every pending timer is cancelled on the way out.
func (m *Machine) enter(s State) {
	m.cancelTimers()
	m.state = s
}

func (m *Machine) cancelTimers() {
	m.advance.cancel()
	for _, g := range m.games {
		g.timer.cancel()
	}
}

// errNoChange marks an ignored action: no error for the caller, no notification.
var errNoChange = errors.New("no change")

func (m *Machine) do(op func() error) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}

	err := op()
	if errors.Is(err, errNoChange) {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	if err != nil {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, err
	}

	m.version++
	snap := m.snapshotLocked()
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(snap)
	}
	return snap, nil
}

// schedule arms slot to run fn after ticks time units, replacing whatever
// slot held before. fn runs under the machine's lock.
func (m *Machine) schedule(slot *pending, ticks int, fn func()) {
	slot.cancel()
	m.gen++
	gen := m.gen
	slot.gen = gen
	slot.timer = m.sched.AfterFunc(time.Duration(ticks)*m.tick, func() {
		m.mu.Lock()
		if m.closed || slot.gen != gen {
			m.mu.Unlock()
			return
		}
		slot.timer = nil
		slot.gen = 0
		fn()

		m.version++
		snap := m.snapshotLocked()
		observer := m.observer
		m.mu.Unlock()

		if observer != nil {
			observer(snap)
		}
	})
}

type nopSink struct{}

func (nopSink) Create(string)       {}
func (nopSink) Update(domain.Patch) {}
func (nopSink) Close()              {}

func (nopSink) Wait(context.Context) error { return nil }
