// Package domain contains core domain types for the Valentine service.
package domain

import (
	"time"
)

// FinalResponse is the visitor's answer to the proposal.
type FinalResponse string

const (
	// FinalPending means the proposal has not been accepted yet.
	FinalPending FinalResponse = "PENDING"
	// FinalYes means the proposal was accepted. It is terminal.
	FinalYes FinalResponse = "YES"
)

// Answer is one recorded question/answer pair.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Response is the persisted audit record of one visitor session.
type Response struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	CreatedAt     time.Time     `json:"created_at"`
	Answers       []Answer      `json:"answers"`
	YesAttempts   int           `json:"yes_attempts"`
	NoAttempts    int           `json:"no_attempts"`
	FinalResponse FinalResponse `json:"final_response"`
}

// NewResponse returns a fresh pending record for name.
func NewResponse(name string, now time.Time) *Response {
	return &Response{
		Name:          name,
		CreatedAt:     now,
		Answers:       []Answer{},
		FinalResponse: FinalPending,
	}
}

// Patch is a partial update of a Response. Nil fields are left untouched.
type Patch struct {
	Answers       []Answer       `json:"answers,omitempty"`
	YesAttempts   *int           `json:"yes_attempts,omitempty"`
	NoAttempts    *int           `json:"no_attempts,omitempty"`
	FinalResponse *FinalResponse `json:"final_response,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Answers == nil && p.YesAttempts == nil && p.NoAttempts == nil && p.FinalResponse == nil
}

// Apply merges the patch into r.
func (p Patch) Apply(r *Response) {
	if p.Answers != nil {
		r.Answers = append([]Answer(nil), p.Answers...)
	}
	if p.YesAttempts != nil {
		r.YesAttempts = *p.YesAttempts
	}
	if p.NoAttempts != nil {
		r.NoAttempts = *p.NoAttempts
	}
	if p.FinalResponse != nil {
		r.FinalResponse = *p.FinalResponse
	}
}
