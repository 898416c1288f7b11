package scorm

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math/rand/v2"
	"strings"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mind-engage/mindengage-scorm/internal/quiz"
)

//go:embed templates
var templateFS embed.FS

// pageData feeds templates/page.html.tmpl. Exactly one of Choice, Matching
// and Cloze is set, matching Kind; none pages carry only text.
type pageData struct {
	Lang       string
	Title      string
	Stylesheet string
	Common     string
	Kind       Type
	KindClass  string
	Scored     bool
	Intro      template.HTML
	Outro      template.HTML

	Choice   *choicePage
	Matching *matchingPage
	Cloze    *clozePage

	Script pageScript
}

type labelView struct {
	ID    string
	Label template.HTML
}

type choicePage struct {
	Multiple bool
	Answers  []labelView
}

type matchingPage struct {
	Geometry Geometry
	Targets  []labelView
	Keys     []labelView
}

type clozePage struct {
	Segments []clozeSegment
}

type clozeSegment struct {
	Text template.HTML
	Gap  *gapView
}

type gapView struct {
	ID      string
	Select  bool
	Options []labelView
	Width   int
	Size    int
}

// pageScript is handed to Quiz.init in common/quiz.js.
type pageScript struct {
	Kind     Type              `json:"kind"`
	Feedback string            `json:"feedback,omitempty"`
	Choices  []choiceScore     `json:"choices,omitempty"`
	Solution map[string]string `json:"solution,omitempty"`
	Gaps     []gapScore        `json:"gaps,omitempty"`
}

type choiceScore struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight"`
	Feedback string  `json:"feedback,omitempty"`
}

type gapScore struct {
	ID      string       `json:"id"`
	Kind    string       `json:"kind"`
	Correct []string     `json:"correct,omitempty"`
	Answers []string     `json:"answers,omitempty"`
	Ranges  [][2]float64 `json:"ranges,omitempty"`
}

const (
	gapSelect  = "select"
	gapText    = "text"
	gapNumeric = "numeric"
)

var pageTemplates = loadPageTemplates()

func loadPageTemplates() map[Type]*template.Template {
	base := template.Must(template.New("page").Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/page.html.tmpl"))
	files := map[Type]string{
		SingleChoice:   "choice",
		MultipleChoice: "choice",
		Bool:           "choice",
		MatchingPair:   "matching",
		Cloze:          "cloze",
		None:           "none",
	}
	out := make(map[Type]*template.Template, len(files))
	for typ, name := range files {
		t := template.Must(base.Clone())
		out[typ] = template.Must(t.ParseFS(templateFS, "templates/"+name+".html.tmpl"))
	}
	return out
}

func renderPage(d pageData) ([]byte, error) {
	t, ok := pageTemplates[d.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no page template for %s", ErrUnsupportedQuestion, d.Kind)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "page", d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type pageBuilder struct {
	lang language.Tag
	rnd  *rand.Rand
}

// build fills the page parameters of q, already classified as typ.
func (b *pageBuilder) build(typ Type, q quiz.Question, d pageData) (pageData, error) {
	d.Kind = typ
	d.KindClass = strings.ReplaceAll(strings.ToLower(string(typ)), "_", "-")
	d.Scored = typ != None
	d.Script = pageScript{Kind: typ, Feedback: q.Feedback}
	switch typ {
	case SingleChoice, MultipleChoice, Bool:
		idx := firstList(q, quiz.SingleChoice, quiz.MultipleChoice, quiz.Bool)
		if idx < 0 {
			return d, fmt.Errorf("%w: no choice answers", ErrUnsupportedQuestion)
		}
		d.Intro, d.Outro = around(q, idx)
		b.choices(&d, q.Body[idx].Answers, typ)
	case MatchingPair:
		idx := firstList(q, quiz.MatchingPair)
		if idx < 0 {
			return d, fmt.Errorf("%w: no matching pairs", ErrUnsupportedQuestion)
		}
		d.Intro, d.Outro = around(q, idx)
		b.matching(&d, q.Body[idx].Answers)
	case Cloze:
		if err := b.cloze(&d, q); err != nil {
			return d, err
		}
	case None:
		d.Intro, _ = around(q, len(q.Body))
	default:
		return d, fmt.Errorf("%w: %s has no page", ErrUnsupportedQuestion, typ)
	}
	return d, nil
}

func firstList(q quiz.Question, types ...quiz.AnswerType) int {
	for i, f := range q.Body {
		if f.IsText() {
			continue
		}
		for _, t := range types {
			if f.Answers.Type == t {
				return i
			}
		}
	}
	return -1
}

// around joins the text fragments before and after body index idx.
func around(q quiz.Question, idx int) (before, after template.HTML) {
	var pre, post []string
	for i, f := range q.Body {
		if !f.IsText() || strings.TrimSpace(f.Text) == "" {
			continue
		}
		if i < idx {
			pre = append(pre, strings.TrimSpace(f.Text))
		} else {
			post = append(post, strings.TrimSpace(f.Text))
		}
	}
	return template.HTML(strings.Join(pre, " ")), template.HTML(strings.Join(post, " "))
}

func (b *pageBuilder) choices(d *pageData, l *quiz.AnswerList, typ Type) {
	weights := choiceWeights(l, typ == MultipleChoice)
	title := cases.Title(b.lang)
	page := &choicePage{Multiple: typ == MultipleChoice}
	for i, a := range l.Answers {
		id := fmt.Sprintf("a%d", i)
		label := a.Text
		if typ == Bool {
			label = title.String(label)
		}
		page.Answers = append(page.Answers, labelView{ID: id, Label: template.HTML(label)})
		d.Script.Choices = append(d.Script.Choices, choiceScore{ID: id, Weight: weights[i], Feedback: a.Feedback})
	}
	d.Choice = page
}

// choiceWeights returns the score percentage each answer contributes.
// Explicit weights are used as given. A correct answer without a weight
// is worth 100 for single choice, while multiple choice splits 100 among
// the correct answers and takes the same share off for every wrong pick.
func choiceWeights(l *quiz.AnswerList, multiple bool) []float64 {
	out := make([]float64, len(l.Answers))
	weighted := false
	correct, implicit := 0, 0
	for _, a := range l.Answers {
		if a.Weight != 0 {
			weighted = true
		}
		if a.Correct {
			correct++
			if a.Weight == 0 {
				implicit++
			}
		}
	}
	for i, a := range l.Answers {
		switch {
		case weighted && a.Weight == 0 && a.Correct && !multiple:
			out[i] = 100
		case weighted && a.Weight == 0 && a.Correct:
			out[i] = 100 / float64(implicit)
		case weighted:
			out[i] = a.Weight
		case !multiple:
			if a.Correct {
				out[i] = 100
			}
		case correct > 0:
			share := 100 / float64(correct)
			if a.Correct {
				out[i] = share
			} else {
				out[i] = -share
			}
		}
	}
	return out
}

func (b *pageBuilder) matching(d *pageData, l *quiz.AnswerList) {
	n := len(l.Answers)
	order := placement(n, b.rnd)
	labels := make([]string, 0, 2*n)
	page := &matchingPage{}
	d.Script.Solution = make(map[string]string, n)
	for i, a := range l.Answers {
		page.Targets = append(page.Targets, labelView{ID: fmt.Sprintf("t%d", i), Label: template.HTML(a.Text)})
		labels = append(labels, a.Text, a.Match)
	}
	for pos, i := range order {
		key := fmt.Sprintf("k%d", pos)
		page.Keys = append(page.Keys, labelView{ID: key, Label: template.HTML(l.Answers[i].Match)})
		d.Script.Solution[fmt.Sprintf("t%d", i)] = key
	}
	page.Geometry = layout(n, longest(labels))
	d.Matching = page
}

func (b *pageBuilder) cloze(d *pageData, q quiz.Question) error {
	page := &clozePage{}
	gaps := 0
	for _, f := range q.Body {
		if f.IsText() {
			page.Segments = append(page.Segments, clozeSegment{Text: template.HTML(f.Text)})
			continue
		}
		l := f.Answers
		if l.Type == quiz.None {
			continue
		}
		id := fmt.Sprintf("g%d", gaps)
		gaps++
		view, score, err := b.gap(id, l)
		if err != nil {
			return err
		}
		page.Segments = append(page.Segments, clozeSegment{Gap: view})
		d.Script.Gaps = append(d.Script.Gaps, score)
	}
	d.Cloze = page
	return nil
}

func (b *pageBuilder) gap(id string, l *quiz.AnswerList) (*gapView, gapScore, error) {
	view := &gapView{ID: id}
	score := gapScore{ID: id}
	var labels []string
	switch l.Type {
	case quiz.SingleChoice, quiz.Bool:
		view.Select = true
		score.Kind = gapSelect
		for pos, i := range placement(len(l.Answers), b.rnd) {
			a := l.Answers[i]
			opt := fmt.Sprintf("%s-o%d", id, pos)
			view.Options = append(view.Options, labelView{ID: opt, Label: template.HTML(a.Text)})
			if a.Correct {
				score.Correct = append(score.Correct, opt)
			}
			labels = append(labels, a.Text)
		}
	case quiz.Cloze:
		score.Kind = gapText
		for _, a := range l.Answers {
			score.Answers = append(score.Answers, EncryptClozeText(a.Text, b.rnd))
			labels = append(labels, a.Text)
		}
	case quiz.Numeric:
		score.Kind = gapNumeric
		for _, a := range l.Answers {
			if !a.Correct {
				continue
			}
			score.Ranges = append(score.Ranges, [2]float64{a.Value - a.Tolerance, a.Value + a.Tolerance})
			labels = append(labels, fmt.Sprintf("%g", a.Value))
		}
	default:
		return nil, score, fmt.Errorf("%w: %s answers inside a cloze text", ErrUnsupportedQuestion, l.Type)
	}
	n := longest(labels)
	view.Width = cellWidth(n)
	view.Size = n + 2
	return view, score, nil
}
