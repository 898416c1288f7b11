// Package scorm turns questions into SCORM 1.2 content packages: one SCO
// page per question, a shared bundle of runtime assets and, for questions
// pointing at existing packages, the merged external resources.
package scorm

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-scorm/internal/quiz"
)

// Type is the page kind a question is exported as.
type Type string

const (
	SingleChoice   Type = "SINGLE_CHOICE"
	MultipleChoice Type = "MULTIPLE_CHOICE"
	MatchingPair   Type = "MATCHING_PAIR"
	Cloze          Type = "CLOZE"
	Bool           Type = "BOOL"
	External       Type = "EXTERNAL"
	None           Type = "NONE"
)

var (
	ErrUnsupportedQuestion = errors.New("unsupported question")
	ErrCanceled            = errors.New("export canceled")
	ErrOutsideBaseDir      = errors.New("external package outside base directory")
)

// Classify decides the page kind of a question.
//
// A body made of one text and one answer list maps straight to that list's
// kind, numeric answers being rendered as cloze gaps. Any other shape is
// scanned as a whole: an external reference anywhere wins, matching pairs
// and multiple choice lists must stand alone, and the remaining answer
// kinds are merged into a single cloze page.
func Classify(q quiz.Question) (Type, error) {
	if len(q.Body) == 2 && q.Body[0].IsText() && !q.Body[1].IsText() {
		return direct(q.Body[1].Answers.Type)
	}

	lists := q.AnswerLists()
	for _, l := range lists {
		if l.Type == quiz.External {
			return External, nil
		}
	}

	var matching, multiple, gaps int
	for _, l := range lists {
		switch l.Type {
		case quiz.MatchingPair:
			matching++
		case quiz.MultipleChoice:
			multiple++
		case quiz.None:
		default:
			gaps++
		}
	}
	switch {
	case matching > 1 || (matching == 1 && multiple+gaps > 0):
		return "", fmt.Errorf("%w: matching pairs cannot share a question with other answers", ErrUnsupportedQuestion)
	case matching == 1:
		return MatchingPair, nil
	case multiple > 1 || (multiple == 1 && gaps > 0):
		return "", fmt.Errorf("%w: multiple choice cannot share a question with other answers", ErrUnsupportedQuestion)
	case multiple == 1:
		return MultipleChoice, nil
	case gaps > 0:
		return Cloze, nil
	}
	return None, nil
}

func direct(t quiz.AnswerType) (Type, error) {
	switch t {
	case quiz.SingleChoice:
		return SingleChoice, nil
	case quiz.MultipleChoice:
		return MultipleChoice, nil
	case quiz.MatchingPair:
		return MatchingPair, nil
	case quiz.Cloze, quiz.Numeric:
		return Cloze, nil
	case quiz.Bool:
		return Bool, nil
	case quiz.External:
		return External, nil
	case quiz.None:
		return None, nil
	}
	return "", fmt.Errorf("%w: answer type %q", ErrUnsupportedQuestion, t)
}
