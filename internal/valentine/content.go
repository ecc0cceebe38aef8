package valentine

import "strings"

// QuestionType tells the client how to collect an answer.
type QuestionType string

const (
	// QuestionText takes free text.
	QuestionText QuestionType = "text"
	// QuestionChoice takes exactly one of the listed options.
	QuestionChoice QuestionType = "choice"
)

// Question is one prompt of the QUESTIONS screen.
type Question struct {
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// accepts reports whether answer is valid for q. Free text must not be
// blank; a choice must match an option exactly.
func (q Question) accepts(answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	if q.Type != QuestionChoice {
		return true
	}
	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

// Theme is the card palette a compliment is shown on.
type Theme string

// Card palettes.
const (
	ThemeRose     Theme = "rose"
	ThemeGold     Theme = "gold"
	ThemeLavender Theme = "lavender"
	ThemeSky      Theme = "sky"
	ThemePeach    Theme = "peach"
)

// Content is the fixed copy a session walks through.
type Content struct {
	Questions   []Question
	Compliments []string
	Themes      []Theme
}

// DefaultContent returns the stock questions, compliments and themes.
func DefaultContent() Content {
	return Content{
		Questions: []Question{
			{
				Text: "If you could describe our connection in one word, what would it be? ✨",
				Type: QuestionText,
			},
			{
				Text: "Which of these romantic settings feels most like 'us'? 🌹",
				Type: QuestionChoice,
				Options: []string{
					"Walking on a moonlit beach 🌊",
					"Cuddling by a warm fireplace 🔥",
					"Dancing under the city lights 🌃",
					"Picnic in a field of flowers 🌸",
				},
			},
			{
				Text: "What is the one thing I do that makes you feel most loved? 💌",
				Type: QuestionText,
			},
			{
				Text: "If we were characters in a love story, what kind would it be? 📖",
				Type: QuestionChoice,
				Options: []string{
					"A passionate fairytale 🏰",
					"A sweet high school romance 🎒",
					"An adventurous duo 🌍",
					"A soulful, eternal bond ♾️",
				},
			},
			{
				Text: "What is your wish for us this Valentine's Day? 💝",
				Type: QuestionText,
			},
		},
		Compliments: []string{
			"You're such a sweetheart! 💖",
			"I love how you think! 🧠✨",
			"That's so fascinating! 🦋",
			"You're amazing! 🌹",
			"Every answer makes me fall more! 🥰",
			"You have the most beautiful soul! ✨",
			"You're perfection! 💫",
			"You just melted my heart! 🫠",
			"I could listen to you forever! 🎶",
		},
		Themes: []Theme{ThemeRose, ThemeGold, ThemeLavender, ThemeSky, ThemePeach},
	}
}

func letter(name string) []string {
	return []string{
		"Dearest " + name + ",",
		"From the moment I met you, the world has seemed a little brighter. " +
			"Your smile is my favorite sunrise, and your laughter is a melody I could listen to forever. 🌹",
		"Every answer you gave just now made me adore you even more. " +
			"I cherish every moment we share, and I dream of creating countless more loving memories with you. 🥰",
		"You are truly magical. ✨",
	}
}

func proposalHeadline(name string, noAttempts int) string {
	if noAttempts == 0 {
		return name + ", will you be my Valentine? 💖"
	}
	return "My heart beats only for you... 🥺"
}

func proposalPlea(noAttempts int) string {
	switch {
	case noAttempts == 0:
		return ""
	case noAttempts <= 2:
		return "Every moment with you is magic... ✨"
	case noAttempts <= 5:
		return "You are my favorite person! 🌹"
	default:
		return "I can't imagine a world without you! 😭"
	}
}

func successMessage(name string) string {
	return "You just made me the happiest person in the world, " + name +
		"! Get ready for the best Valentine's Day ever! 🌹🎁"
}
