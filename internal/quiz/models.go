// Package quiz holds the question model consumed by the SCORM exporter and
// the readers that load it from GIFT, YAML or JSON files.
package quiz

import "strings"

type AnswerType string

const (
	SingleChoice   AnswerType = "SINGLE_CHOICE"
	MultipleChoice AnswerType = "MULTIPLE_CHOICE"
	MatchingPair   AnswerType = "MATCHING_PAIR"
	Cloze          AnswerType = "CLOZE"
	Numeric        AnswerType = "NUMERIC"
	Bool           AnswerType = "BOOL"
	External       AnswerType = "EXTERNAL"
	None           AnswerType = "NONE"
)

type Answer struct {
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Correct  bool    `json:"correct,omitempty" yaml:"correct,omitempty"`
	Weight   float64 `json:"weight,omitempty" yaml:"weight,omitempty"` // percent of the score, 0 means all or nothing
	Feedback string  `json:"feedback,omitempty" yaml:"feedback,omitempty"`

	Match string `json:"match,omitempty" yaml:"match,omitempty"` // right-hand side of a matching pair

	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"` // numeric answers
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`

	URI string `json:"uri,omitempty" yaml:"uri,omitempty"` // scorm: reference of an external answer
}

type AnswerList struct {
	Type    AnswerType `json:"type" yaml:"type"`
	Answers []Answer   `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// Fragment is one piece of a question body: either text or an answer list.
type Fragment struct {
	Text    string      `json:"text,omitempty" yaml:"text,omitempty"`
	Answers *AnswerList `json:"answers,omitempty" yaml:"answers,omitempty"`
}

func (f Fragment) IsText() bool { return f.Answers == nil }

type Question struct {
	Title    string     `json:"title,omitempty" yaml:"title,omitempty"`
	Body     []Fragment `json:"body" yaml:"body"`
	Feedback string     `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// AnswerLists returns the answer lists of the body in order.
func (q Question) AnswerLists() []*AnswerList {
	var out []*AnswerList
	for _, f := range q.Body {
		if f.Answers != nil {
			out = append(out, f.Answers)
		}
	}
	return out
}

// PlainText joins the text fragments of the body.
func (q Question) PlainText() string {
	var sb strings.Builder
	for _, f := range q.Body {
		if f.IsText() {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.TrimSpace(f.Text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Quiz is the document form of a question file.
type Quiz struct {
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
}
