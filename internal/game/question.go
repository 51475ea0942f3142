package game

import "math/rand"

// QuestionType selects which attribute of the question the player must name:
// the written color name, or the color it is rendered in.
type QuestionType string

const (
	QuestionText  QuestionType = "TEXT"
	QuestionColor QuestionType = "COLOR"
)

// Color is one entry of the fixed answer palette.
type Color struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Colors is the answer palette shared by every question.
var Colors = []Color{
	{ID: "red", Name: "あか", Hex: "#EF4444"},
	{ID: "blue", Name: "あお", Hex: "#3B82F6"},
	{ID: "green", Name: "みどり", Hex: "#22C55E"},
	{ID: "yellow", Name: "きいろ", Hex: "#EAB308"},
	{ID: "purple", Name: "むらさき", Hex: "#A855F7"},
	{ID: "orange", Name: "オレンジ", Hex: "#F97316"},
}

// Question is ephemeral and local: each client generates its own stream, so
// the two players answer independent questions and only scores synchronize.
type Question struct {
	Text  Color        `json:"text"`
	Color Color        `json:"color"`
	Type  QuestionType `json:"type"`
}

// Answer reports whether the picked color id answers the asked attribute.
func (q Question) Answer(colorID string) bool {
	if q.Type == QuestionText {
		return colorID == q.Text.ID
	}
	return colorID == q.Color.ID
}

// generateQuestion draws a label and a render color independently; they match
// only by chance, which is the whole trick.
func generateQuestion(rng *rand.Rand) Question {
	q := Question{
		Text:  Colors[rng.Intn(len(Colors))],
		Color: Colors[rng.Intn(len(Colors))],
		Type:  QuestionText,
	}
	if rng.Intn(2) == 0 {
		q.Type = QuestionColor
	}
	return q
}
