package flow

// Resolve computes the single applicable determinant for an answered
// question. It is a pure function: identical inputs always yield an
// identical determinant.
//
// For branching-capable questions, selectedOptionID must identify one of
// the question's own options; anything else fails with *OptionNotOwnedError,
// guarding against option ids leaking in from a different question. The
// option's next step applies, or the sequential fallback when the author
// left it unset. A branching question without enumerated options (a free
// rating scale, say) takes the fallback, matching the edge the validator
// assigns it. Non-branching questions ignore selectedOptionID and use the
// question default, with the same fallback policy.
//
// The result is always a fully-formed determinant. By the time flow leaves
// this function, "end" and "unset" are not distinguishable anymore: both
// have resolved into one of exactly two determinant kinds.
func Resolve(s *Survey, q *Question, selectedOptionID int64) (Determinant, error) {
	if q.Type.BranchingCapable() {
		if len(q.Options) == 0 {
			return s.fallback(q), nil
		}
		opt, ok := q.Option(selectedOptionID)
		if !ok {
			return Determinant{}, &OptionNotOwnedError{QuestionID: q.ID, OptionID: selectedOptionID}
		}
		if opt.Next != nil {
			return *opt.Next, nil
		}
		return s.fallback(q), nil
	}

	if q.DefaultNext != nil {
		return *q.DefaultNext, nil
	}
	return s.fallback(q), nil
}
