package valentine

import (
	"github.com/ashureev/valentine/internal/compat"
	"github.com/ashureev/valentine/internal/domain"
)

// GameView is the client-facing state of one compatibility game.
type GameView struct {
	NameA     string         `json:"name_a"`
	NameB     string         `json:"name_b"`
	Result    *compat.Result `json:"result,omitempty"`
	Countdown int            `json:"countdown"`
	Showing   bool           `json:"showing"`
}

// QuestionView is the question currently on screen.
type QuestionView struct {
	Index int `json:"index"`
	Total int `json:"total"`
	Question
}

// Point is a screen offset from the viewport center, in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ProposalView is the state of the proposal screen.
type ProposalView struct {
	Headline   string `json:"headline"`
	Plea       string `json:"plea,omitempty"`
	NoAttempts int    `json:"no_attempts"`
	NoButton   Point  `json:"no_button"`
}

// Snapshot is an immutable copy of a session, shaped for rendering.
type Snapshot struct {
	SessionID     string               `json:"session_id"`
	Version       uint64               `json:"version"`
	State         State                `json:"state"`
	DisplayName   string               `json:"display_name,omitempty"`
	Question      *QuestionView        `json:"question,omitempty"`
	Answers       []domain.Answer      `json:"answers"`
	Advancing     bool                 `json:"advancing"`
	Compliment    string               `json:"compliment,omitempty"`
	Theme         Theme                `json:"theme,omitempty"`
	Letter        []string             `json:"letter,omitempty"`
	Flames        GameView             `json:"flames"`
	Love          GameView             `json:"love"`
	Proposal      *ProposalView        `json:"proposal,omitempty"`
	FinalResponse domain.FinalResponse `json:"final_response"`
	Celebrate     bool                 `json:"celebrate"`
	Success       string               `json:"success,omitempty"`
}

// Game returns the view of the given game.
func (s Snapshot) Game(kind GameKind) GameView {
	if kind == GameLove {
		return s.Love
	}
	return s.Flames
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     m.id,
		Version:       m.version,
		State:         m.state,
		DisplayName:   m.name,
		Answers:       append([]domain.Answer{}, m.answers...),
		Advancing:     m.advance.active(),
		Compliment:    m.compliment,
		Theme:         m.theme,
		Flames:        m.games[GameFlames].view(),
		Love:          m.games[GameLove].view(),
		FinalResponse: m.final,
		Celebrate:     m.state == StateSuccess,
	}

	switch m.state {
	case StateQuestions:
		snap.Question = &QuestionView{
			Index:    m.qIndex,
			Total:    len(m.content.Questions),
			Question: m.content.Questions[m.qIndex],
		}
	case StateMessage:
		snap.Letter = letter(m.name)
	case StateProposal:
		snap.Proposal = &ProposalView{
			Headline:   proposalHeadline(m.name, m.noAttempts),
			Plea:       proposalPlea(m.noAttempts),
			NoAttempts: m.noAttempts,
			NoButton:   m.noButton,
		}
	case StateSuccess:
		snap.Success = successMessage(m.name)
	}

	return snap
}
