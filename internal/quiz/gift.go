package quiz

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports malformed GIFT input.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("gift: line %d: %s", e.Line, e.Msg) }

// ParseGIFT reads questions in the GIFT text format. Questions are separated
// by blank lines; "//" comment lines and $CATEGORY lines are ignored.
//
// Supported answer blocks: {=right ~wrong} (single choice), weighted
// {~%50%a ~%50%b} (multiple choice), {=a -> b} (matching pairs), {=a =b}
// (short answer, exported as cloze), {#3.14:0.01} and {#1..2} (numeric),
// {T} / {FALSE} (true/false), {} (essay, no scoring) and
// {scorm:package.zip?id=RES} (external SCORM content).
func ParseGIFT(r io.Reader) ([]Question, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var (
		out   []Question
		block []string
		start int
		line  int
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		q, err := parseGIFTQuestion(strings.Join(block, "\n"), start)
		block = block[:0]
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	}
	for sc.Scan() {
		line++
		text := sc.Text()
		trimmed := strings.TrimSpace(text)
		switch {
		case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "$CATEGORY:"):
			continue
		case trimmed == "":
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			start = line
		}
		block = append(block, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseGIFTQuestion(src string, line int) (Question, error) {
	var q Question
	s := strings.TrimSpace(src)
	if strings.HasPrefix(s, "::") {
		end := indexUnescaped(s[2:], "::")
		if end < 0 {
			return q, &ParseError{Line: line, Msg: "unterminated title"}
		}
		q.Title = strings.TrimSpace(unescapeGIFT(s[2 : 2+end]))
		s = strings.TrimSpace(s[2+end+2:])
	}
	s = stripFormatMarker(s)

	runes := []rune(s)
	var cur strings.Builder
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			cur.WriteRune(c)
			if i+1 < len(runes) {
				cur.WriteRune(runes[i+1])
				i++
			}
			continue
		case '}':
			return q, &ParseError{Line: line, Msg: "unexpected '}'"}
		case '{':
			j := i + 1
			for ; j < len(runes); j++ {
				if runes[j] == '\\' {
					j++
					continue
				}
				if runes[j] == '{' {
					return q, &ParseError{Line: line, Msg: "nested answer block"}
				}
				if runes[j] == '}' {
					break
				}
			}
			if j >= len(runes) {
				return q, &ParseError{Line: line, Msg: "unterminated answer block"}
			}
			if text := cur.String(); len(q.Body) == 0 || strings.TrimSpace(text) != "" {
				q.Body = append(q.Body, Fragment{Text: unescapeGIFT(text)})
			}
			list, feedback, err := parseAnswerBlock(string(runes[i+1 : j]))
			if err != nil {
				return q, &ParseError{Line: line, Msg: err.Error()}
			}
			if feedback != "" {
				q.Feedback = feedback
			}
			q.Body = append(q.Body, Fragment{Answers: list})
			cur.Reset()
			i = j
			continue
		}
		cur.WriteRune(c)
	}
	if tail := cur.String(); strings.TrimSpace(tail) != "" || len(q.Body) == 0 {
		q.Body = append(q.Body, Fragment{Text: unescapeGIFT(tail)})
	}
	return q, nil
}

func stripFormatMarker(s string) string {
	for _, m := range []string{"[html]", "[moodle]", "[plain]", "[markdown]"} {
		if strings.HasPrefix(strings.ToLower(s), m) {
			return strings.TrimSpace(s[len(m):])
		}
	}
	return s
}

type rawAnswer struct {
	marker rune
	text   string
}

func parseAnswerBlock(content string) (*AnswerList, string, error) {
	c := strings.TrimSpace(content)
	var general string
	if i := indexUnescaped(c, "####"); i >= 0 {
		general = strings.TrimSpace(unescapeGIFT(c[i+4:]))
		c = strings.TrimSpace(c[:i])
	}

	switch {
	case c == "":
		return &AnswerList{Type: None}, general, nil
	case strings.HasPrefix(c, "scorm:"):
		return &AnswerList{Type: External, Answers: []Answer{{URI: c}}}, general, nil
	case strings.HasPrefix(c, "#"):
		list, err := parseNumeric(c[1:])
		return list, general, err
	}
	if list, ok := parseBool(c); ok {
		return list, general, nil
	}

	raws, err := splitAnswers(c)
	if err != nil {
		return nil, "", err
	}
	var (
		hasTilde, weighted, matching bool
		eqCount                      int
		answers                      []Answer
	)
	for _, ra := range raws {
		a, err := parseChoice(ra)
		if err != nil {
			return nil, "", err
		}
		switch ra.marker {
		case '~':
			hasTilde = true
		case '=':
			eqCount++
		}
		if a.Weight != 0 {
			weighted = true
		}
		if indexUnescaped(a.Text, "->") >= 0 {
			matching = true
		}
		answers = append(answers, a)
	}

	list := &AnswerList{Answers: answers}
	switch {
	case matching:
		list.Type = MatchingPair
		for i := range list.Answers {
			a := &list.Answers[i]
			k := indexUnescaped(a.Text, "->")
			if k < 0 || raws[i].marker != '=' {
				return nil, "", fmt.Errorf("matching answer %q must read =left -> right", a.Text)
			}
			a.Match = strings.TrimSpace(unescapeGIFT(a.Text[k+2:]))
			a.Text = strings.TrimSpace(a.Text[:k])
			a.Correct = true
		}
	case !hasTilde:
		list.Type = Cloze
	case eqCount == 1:
		// One = answer stays a radio list; ~%N% answers earn partial credit.
		list.Type = SingleChoice
	case weighted || eqCount > 1:
		list.Type = MultipleChoice
		for i := range list.Answers {
			a := &list.Answers[i]
			a.Correct = a.Weight > 0 || (a.Weight == 0 && raws[i].marker == '=')
		}
	default:
		return nil, "", fmt.Errorf("answer block %q has no correct answer", c)
	}
	for i := range list.Answers {
		list.Answers[i].Text = unescapeGIFT(list.Answers[i].Text)
	}
	return list, general, nil
}

func splitAnswers(c string) ([]rawAnswer, error) {
	var out []rawAnswer
	runes := []rune(c)
	var cur *rawAnswer
	var sb strings.Builder
	closeCur := func() {
		if cur != nil {
			cur.text = strings.TrimSpace(sb.String())
			out = append(out, *cur)
		}
		sb.Reset()
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			sb.WriteRune(r)
			sb.WriteRune(runes[i+1])
			i++
			continue
		}
		if r == '=' || r == '~' {
			closeCur()
			cur = &rawAnswer{marker: r}
			continue
		}
		if cur == nil && !isSpace(r) {
			return nil, fmt.Errorf("answer block %q must start with '=' or '~'", c)
		}
		sb.WriteRune(r)
	}
	closeCur()
	if len(out) == 0 {
		return nil, fmt.Errorf("empty answer block")
	}
	return out, nil
}

func parseChoice(ra rawAnswer) (Answer, error) {
	a := Answer{Correct: ra.marker == '='}
	t := ra.text
	if strings.HasPrefix(t, "%") {
		end := strings.Index(t[1:], "%")
		if end < 0 {
			return a, fmt.Errorf("unterminated weight in %q", t)
		}
		w, err := strconv.ParseFloat(t[1:1+end], 64)
		if err != nil {
			return a, fmt.Errorf("invalid weight in %q", t)
		}
		a.Weight = w
		t = strings.TrimSpace(t[end+2:])
	}
	if i := indexUnescaped(t, "#"); i >= 0 {
		a.Feedback = strings.TrimSpace(unescapeGIFT(t[i+1:]))
		t = strings.TrimSpace(t[:i])
	}
	a.Text = t
	return a, nil
}

func parseBool(c string) (*AnswerList, bool) {
	head, feedback := c, ""
	if i := indexUnescaped(c, "#"); i >= 0 {
		head, feedback = strings.TrimSpace(c[:i]), strings.TrimSpace(unescapeGIFT(c[i+1:]))
		if j := indexUnescaped(feedback, "#"); j >= 0 {
			feedback = strings.TrimSpace(feedback[:j])
		}
	}
	var v bool
	switch strings.ToUpper(head) {
	case "T", "TRUE":
		v = true
	case "F", "FALSE":
	default:
		return nil, false
	}
	return &AnswerList{Type: Bool, Answers: []Answer{
		{Text: "true", Correct: v, Feedback: feedback},
		{Text: "false", Correct: !v, Feedback: feedback},
	}}, true
}

func parseNumeric(c string) (*AnswerList, error) {
	c = strings.TrimSpace(c)
	var specs []rawAnswer
	if indexUnescaped(c, "=") >= 0 {
		raws, err := splitAnswers(c)
		if err != nil {
			return nil, err
		}
		specs = raws
	} else {
		specs = []rawAnswer{{marker: '=', text: c}}
	}
	list := &AnswerList{Type: Numeric}
	for _, ra := range specs {
		a, err := parseChoice(ra)
		if err != nil {
			return nil, err
		}
		spec := a.Text
		switch {
		case strings.Contains(spec, ".."):
			parts := strings.SplitN(spec, "..", 2)
			lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil || hi < lo {
				return nil, fmt.Errorf("invalid numeric range %q", spec)
			}
			a.Value, a.Tolerance = (lo+hi)/2, (hi-lo)/2
		case strings.Contains(spec, ":"):
			parts := strings.SplitN(spec, ":", 2)
			v, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			tol, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid numeric answer %q", spec)
			}
			a.Value, a.Tolerance = v, tol
		default:
			v, err := strconv.ParseFloat(strings.TrimSpace(spec), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric answer %q", spec)
			}
			a.Value = v
		}
		a.Correct = a.Weight >= 0
		list.Answers = append(list.Answers, a)
	}
	return list, nil
}

// indexUnescaped finds sub in s, ignoring occurrences preceded by a
// backslash escape.
func indexUnescaped(s, sub string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}

func unescapeGIFT(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == 'n' {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
