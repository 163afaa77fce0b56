package flow

// Validate decides whether a survey's graph is safe to activate. It returns
// nil when the graph is well-formed, or a *ValidationError aggregating every
// structural finding: dangling references, cycles (with their full path),
// and unreachable termination.
//
// The traversal is read-only and carries no state between calls, so it is
// safe to run concurrently for different surveys and to re-run on demand.
func Validate(s *Survey) error {
	if err := s.CheckShape(); err != nil {
		return &ValidationError{Findings: []error{err}}
	}

	v := &graphCheck{survey: s}
	v.buildEdges()
	v.findCycles()
	v.checkEndpoint()

	if len(v.findings) == 0 {
		return nil
	}
	return &ValidationError{Findings: v.findings}
}

// Activate runs Validate and flips the survey's validated flag on success.
// Activation is all-or-nothing: any finding leaves the flag untouched.
func Activate(s *Survey) error {
	if err := Validate(s); err != nil {
		return err
	}
	s.Validated = true
	return nil
}

// graphCheck holds the working state of one validation run.
type graphCheck struct {
	survey   *Survey
	edges    map[int64][]Determinant
	findings []error
}

// buildEdges materializes the outgoing edges of every question: one edge per
// option for branching types, the default edge otherwise, substituting the
// sequential fallback wherever the author left the step unset. Explicit
// edges to unknown questions become dangling-reference findings and are not
// traversed.
func (v *graphCheck) buildEdges() {
	v.edges = make(map[int64][]Determinant, len(v.survey.Questions))

	for i := range v.survey.Questions {
		q := &v.survey.Questions[i]
		var out []Determinant

		if q.Type.BranchingCapable() {
			for j := range q.Options {
				opt := &q.Options[j]
				det := opt.Next
				if det == nil {
					d := v.survey.fallback(q)
					out = append(out, d)
					continue
				}
				if v.checkTarget(q.ID, opt.ID, *det) {
					out = append(out, *det)
				}
			}
			// A branching question with no options can still fall through.
			if len(q.Options) == 0 {
				out = append(out, v.survey.fallback(q))
			}
		} else {
			det := q.DefaultNext
			if det == nil {
				out = append(out, v.survey.fallback(q))
			} else if v.checkTarget(q.ID, 0, *det) {
				out = append(out, *det)
			}
		}

		v.edges[q.ID] = out
	}
}

// checkTarget records a dangling-reference finding for explicit edges whose
// target question does not exist. End edges always pass.
func (v *graphCheck) checkTarget(questionID, optionID int64, det Determinant) bool {
	target, ok := det.Target()
	if !ok {
		return true
	}
	if _, exists := v.survey.Question(target); !exists {
		v.findings = append(v.findings, &DanglingReferenceError{
			QuestionID: questionID,
			OptionID:   optionID,
			TargetID:   target,
		})
		return false
	}
	return true
}

// Colors of the depth-first traversal.
const (
	colorWhite = iota // unvisited
	colorGray         // on the recursion stack
	colorBlack        // fully explored
)

// findCycles runs a depth-first traversal from every question, maintaining
// an explicit recursion stack. Revisiting a question that is still on the
// stack is a cycle; the full path is reported for diagnostics. EndSurvey
// edges are terminal and never pushed.
func (v *graphCheck) findCycles() {
	color := make(map[int64]int, len(v.survey.Questions))
	var stack []int64

	var visit func(id int64)
	visit = func(id int64) {
		color[id] = colorGray
		stack = append(stack, id)

		for _, det := range v.edges[id] {
			target, ok := det.Target()
			if !ok {
				continue
			}
			switch color[target] {
			case colorWhite:
				visit(target)
			case colorGray:
				v.findings = append(v.findings, &CycleError{Path: cyclePath(stack, target)})
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack
	}

	for i := range v.survey.Questions {
		if color[v.survey.Questions[i].ID] == colorWhite {
			visit(v.survey.Questions[i].ID)
		}
	}
}

// cyclePath slices the recursion stack from the first occurrence of target
// and closes the loop, so the reported path starts and ends on the same id.
func cyclePath(stack []int64, target int64) []int64 {
	start := 0
	for i, id := range stack {
		if id == target {
			start = i
			break
		}
	}
	path := make([]int64, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, target)
	return path
}

// checkEndpoint verifies that at least one question reachable from the
// survey's first question carries an EndSurvey edge. A question is an
// endpoint iff any of its outgoing edges terminates the survey.
func (v *graphCheck) checkEndpoint() {
	first := v.survey.First()
	if first == nil {
		v.findings = append(v.findings, &NoEndpointError{})
		return
	}

	reachable := []int64{first.ID}
	seen := map[int64]bool{first.ID: true}

	for i := 0; i < len(reachable); i++ {
		for _, det := range v.edges[reachable[i]] {
			if det.IsEnd() {
				return // terminable path exists
			}
			target, _ := det.Target()
			if !seen[target] {
				seen[target] = true
				reachable = append(reachable, target)
			}
		}
	}

	v.findings = append(v.findings, &NoEndpointError{QuestionIDs: reachable})
}
