package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatGIFT Format = "gift"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromName guesses the input format from a file name.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gift", ".txt":
		return FormatGIFT, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown question file type %q", filepath.Ext(name))
}

// Load reads a question file. GIFT files take their title from the file
// name.
func Load(path string) (Quiz, error) {
	f, err := FormatFromName(path)
	if err != nil {
		return Quiz{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Quiz{}, errors.Wrapf(err, "read %s", path)
	}
	qz, err := Decode(bytes.NewReader(b), f)
	if err != nil {
		return Quiz{}, errors.Wrapf(err, "parse %s", path)
	}
	if qz.Title == "" {
		base := filepath.Base(path)
		qz.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return qz, nil
}

// Decode reads a quiz in the given format.
func Decode(r io.Reader, f Format) (Quiz, error) {
	switch f {
	case FormatGIFT:
		qs, err := ParseGIFT(r)
		if err != nil {
			return Quiz{}, err
		}
		return Quiz{Questions: qs}, nil
	case FormatYAML:
		var qz Quiz
		if err := yaml.NewDecoder(r).Decode(&qz); err != nil && err != io.EOF {
			return Quiz{}, err
		}
		return qz, qz.check()
	case FormatJSON:
		var qz Quiz
		if err := json.NewDecoder(r).Decode(&qz); err != nil {
			return Quiz{}, err
		}
		return qz, qz.check()
	}
	return Quiz{}, fmt.Errorf("unsupported format %q", f)
}

func (qz Quiz) check() error {
	for i, q := range qz.Questions {
		for _, l := range q.AnswerLists() {
			switch l.Type {
			case SingleChoice, MultipleChoice, MatchingPair, Cloze, Numeric, Bool, External, None:
			default:
				return fmt.Errorf("question %d: unknown answer list type %q", i+1, l.Type)
			}
		}
	}
	return nil
}
