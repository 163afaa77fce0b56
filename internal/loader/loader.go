// Package loader decodes YAML survey definitions into the flow model.
//
// The authoring format keeps the "unset" vs "explicit edge" distinction of
// the model: a question or option without a next block falls back to
// sequential order, while an explicit block is either {question: N} or
// {end: true}.
package loader

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/espalierhq/espalier/pkg/flow"
)

type surveyDoc struct {
	ID        int64         `mapstructure:"id"`
	Title     string        `mapstructure:"title"`
	Version   string        `mapstructure:"version"`
	Questions []questionDoc `mapstructure:"questions"`
}

type questionDoc struct {
	ID      int64       `mapstructure:"id"`
	Order   int         `mapstructure:"order"`
	Type    string      `mapstructure:"type"`
	Text    string      `mapstructure:"text"`
	Next    *nextDoc    `mapstructure:"next"`
	Options []optionDoc `mapstructure:"options"`
	// Settings carries per-type authoring knobs (e.g. a rating scale);
	// they pass through into question metadata untouched.
	Settings map[string]string `mapstructure:"settings"`
}

type optionDoc struct {
	ID    int64    `mapstructure:"id"`
	Order int      `mapstructure:"order"`
	Text  string   `mapstructure:"text"`
	Next  *nextDoc `mapstructure:"next"`
}

// nextDoc is the tagged authoring form of a determinant.
type nextDoc struct {
	Question int64 `mapstructure:"question"`
	End      bool  `mapstructure:"end"`
}

func (n *nextDoc) determinant() (*flow.Determinant, error) {
	switch {
	case n.End && n.Question != 0:
		return nil, fmt.Errorf("next cannot both end the survey and point at question %d", n.Question)
	case n.End:
		d := flow.End()
		return &d, nil
	case n.Question != 0:
		d, err := flow.ToQuestion(n.Question)
		if err != nil {
			return nil, err
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("next block must set either 'question' or 'end'")
	}
}

// FromFile reads and decodes a survey definition from a YAML file.
func FromFile(path string) (*flow.Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading survey definition: %w", err)
	}
	return FromBytes(data)
}

// FromBytes decodes a survey definition from YAML.
func FromBytes(data []byte) (*flow.Survey, error) {
	// Decode to a generic document first, then through mapstructure, so
	// unknown keys surface as errors instead of vanishing.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing survey definition: %w", err)
	}

	var doc surveyDoc
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding survey definition: %w", err)
	}

	return build(&doc)
}

func build(doc *surveyDoc) (*flow.Survey, error) {
	if doc.ID <= 0 {
		return nil, fmt.Errorf("survey id must be positive, got %d", doc.ID)
	}

	questions := make([]flow.Question, 0, len(doc.Questions))
	for _, qd := range doc.Questions {
		q := flow.Question{
			ID:         qd.ID,
			Text:       qd.Text,
			Type:       flow.QuestionType(qd.Type),
			OrderIndex: qd.Order,
			Metadata:   qd.Settings,
		}
		if !q.Type.Valid() {
			return nil, fmt.Errorf("question %d: unknown type %q", qd.ID, qd.Type)
		}

		if qd.Next != nil {
			det, err := qd.Next.determinant()
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", qd.ID, err)
			}
			q.DefaultNext = det
		}

		for _, od := range qd.Options {
			opt := flow.Option{
				ID:         od.ID,
				Text:       od.Text,
				OrderIndex: od.Order,
			}
			if od.Next != nil {
				det, err := od.Next.determinant()
				if err != nil {
					return nil, fmt.Errorf("option %d of question %d: %w", od.ID, qd.ID, err)
				}
				opt.Next = det
			}
			q.Options = append(q.Options, opt)
		}

		questions = append(questions, q)
	}

	s := flow.NewSurvey(doc.ID, doc.Title, doc.Version, questions)
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	return s, nil
}
