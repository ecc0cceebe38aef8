// Package compat implements the name-compatibility games: the FLAMES
// elimination game and the hash-derived love percentage.
//
// Every function here is pure and total over all strings, including empty
// ones.
package compat

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label is a FLAMES outcome.
type Label string

// FLAMES outcomes in counting-out order.
const (
	Friends   Label = "Friends"
	Love      Label = "Love"
	Affection Label = "Affection"
	Marriage  Label = "Marriage"
	Enemy     Label = "Enemy"
	Soulmates Label = "Soulmates"
)

// Labels returns the FLAMES labels in counting-out order.
func Labels() []Label {
	return []Label{Friends, Love, Affection, Marriage, Enemy, Soulmates}
}

const (
	minPercentage = 50
	percentSpread = 50
)

// Normalize lower-cases name and strips every whitespace rune.
func Normalize(name string) string {
	lowered := cases.Lower(language.Und).String(name)
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, lowered)
}

// isSpace reports whether r is whitespace in the browser's sense: Unicode
// space separators plus the line terminators and U+FEFF. Unlike
// unicode.IsSpace, U+0085 is not whitespace.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// Flames plays the classic FLAMES game for two names.
func Flames(a, b string) Label {
	count := remaining(Normalize(a), Normalize(b))
	if count == 0 {
		return Soulmates
	}

	labels := Labels()
	index := 0
	for len(labels) > 1 {
		index = (index + count - 1) % len(labels)
		labels = append(labels[:index], labels[index+1:]...)
		// The paper game restarts from the top when the struck label was last.
		if index == len(labels) {
			index = 0
		}
	}
	return labels[0]
}

// remaining cancels shared UTF-16 code units pairwise and reports how many
// are left. Each unit of a, scanned left to right, cancels the first
// still-uncancelled occurrence of the same unit in b. A character outside
// the BMP counts as its two surrogate halves.
func remaining(a, b string) int {
	left := utf16.Encode([]rune(a))
	right := utf16.Encode([]rune(b))
	cancelled := make([]bool, len(right))

	matched := 0
	for _, u := range left {
		for j, candidate := range right {
			if !cancelled[j] && candidate == u {
				cancelled[j] = true
				matched++
				break
			}
		}
	}
	return len(left) + len(right) - 2*matched
}

// Percentage derives a love percentage in [50, 99] from two names.
// The names are normalized and concatenated first-then-second, then hashed
// over their UTF-16 code units with h = h*31 + c in 32-bit signed arithmetic.
func Percentage(a, b string) int {
	combined := Normalize(a + b)

	var h int32
	for _, unit := range utf16.Encode([]rune(combined)) {
		h = h*31 + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return minPercentage + int(abs%percentSpread)
}

type tier struct {
	min     int
	message string
}

var ladder = []tier{
	{95, "Perfect Match! You two are meant to be together! 💕✨"},
	{90, "Soulmates! Your love is written in the stars! 🌟💖"},
	{85, "Amazing Connection! True love is in the air! 💘🦋"},
	{80, "Strong Bond! Your hearts beat as one! 💓💫"},
	{75, "Beautiful Chemistry! Love is blooming! 🌹💝"},
	{70, "Great Match! Your love story is just beginning! 📖💕"},
	{65, "Sweet Connection! Romance is in the air! 🌸💗"},
	{60, "Lovely Pair! Your bond is growing stronger! 🌺💖"},
	{55, "Good Compatibility! Love is on the horizon! 🌅💕"},
}

const fallbackMessage = "Promising Start! Every love story has a beginning! 🌱💝"

// Message maps a percentage to its celebratory message.
func Message(percentage int) string {
	for _, t := range ladder {
		if percentage >= t.min {
			return t.message
		}
	}
	return fallbackMessage
}

// Messages returns every message from most to least enthusiastic.
func Messages() []string {
	out := make([]string, 0, len(ladder)+1)
	for _, t := range ladder {
		out = append(out, t.message)
	}
	return append(out, fallbackMessage)
}

// Result is the outcome of one compatibility game.
type Result struct {
	Label      Label  `json:"label,omitempty"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// FlamesResult computes the FLAMES label together with the love percentage.
func FlamesResult(a, b string) Result {
	pct := Percentage(a, b)
	return Result{
		Label:      Flames(a, b),
		Percentage: pct,
		Message:    Message(pct),
	}
}

// LoveResult computes the love percentage and its message.
func LoveResult(a, b string) Result {
	pct := Percentage(a, b)
	return Result{
		Percentage: pct,
		Message:    Message(pct),
	}
}
