package flow

import (
	"encoding/json"
	"fmt"
)

// DeterminantKind discriminates the two possible outcomes of a question.
type DeterminantKind string

const (
	// GoToQuestion routes the respondent to a specific question.
	GoToQuestion DeterminantKind = "goto_question"
	// EndSurvey terminates the survey.
	EndSurvey DeterminantKind = "end_survey"
)

// Determinant is the resolved instruction for what happens after a question
// is answered: either "go to question N" or "end the survey". It is a closed
// sum type constructed only through ToQuestion and End, so "end" is never
// represented by a magic number or a nullable id.
type Determinant struct {
	kind   DeterminantKind
	target int64
}

// ToQuestion builds a determinant routing to the question with the given id.
// The id must be positive; whether it references an existing question in the
// same survey is checked by Validate.
func ToQuestion(id int64) (Determinant, error) {
	if id <= 0 {
		return Determinant{}, fmt.Errorf("determinant target must be a positive question id, got %d", id)
	}
	return Determinant{kind: GoToQuestion, target: id}, nil
}

// MustToQuestion is ToQuestion for ids known to be valid (e.g. literals in
// tests). It panics on a non-positive id.
func MustToQuestion(id int64) Determinant {
	d, err := ToQuestion(id)
	if err != nil {
		panic(err)
	}
	return d
}

// End builds the terminating determinant.
func End() Determinant {
	return Determinant{kind: EndSurvey}
}

// Kind reports which of the two variants this determinant is.
func (d Determinant) Kind() DeterminantKind { return d.kind }

// IsEnd reports whether the determinant terminates the survey.
func (d Determinant) IsEnd() bool { return d.kind == EndSurvey }

// Target returns the destination question id. The boolean is false for
// EndSurvey determinants, which carry no target.
func (d Determinant) Target() (int64, bool) {
	if d.kind != GoToQuestion {
		return 0, false
	}
	return d.target, true
}

// IsZero reports whether d is the (invalid) zero value rather than a
// constructed determinant.
func (d Determinant) IsZero() bool { return d.kind == "" }

func (d Determinant) String() string {
	if d.IsEnd() {
		return "end"
	}
	return fmt.Sprintf("question %d", d.target)
}

// determinantDoc is the tagged wire form: a kind plus an optional target,
// never a bare nullable number.
type determinantDoc struct {
	Kind   DeterminantKind `json:"kind" yaml:"kind"`
	Target int64           `json:"target,omitempty" yaml:"target,omitempty"`
}

// MarshalJSON encodes the determinant in its tagged representation.
func (d Determinant) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero determinant")
	}
	doc := determinantDoc{Kind: d.kind}
	if d.kind == GoToQuestion {
		doc.Target = d.target
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the tagged representation back through the
// validating constructors.
func (d *Determinant) UnmarshalJSON(data []byte) error {
	var doc determinantDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	dec, err := FromParts(doc.Kind, doc.Target)
	if err != nil {
		return err
	}
	*d = dec
	return nil
}

// FromParts rebuilds a determinant from its tagged persisted form. It is the
// single entry point for storage adapters, funnelling them through the same
// constructor validation as everyone else.
func FromParts(kind DeterminantKind, target int64) (Determinant, error) {
	switch kind {
	case EndSurvey:
		if target != 0 {
			return Determinant{}, fmt.Errorf("end determinant must not carry a target, got %d", target)
		}
		return End(), nil
	case GoToQuestion:
		return ToQuestion(target)
	default:
		return Determinant{}, fmt.Errorf("unknown determinant kind %q", kind)
	}
}
