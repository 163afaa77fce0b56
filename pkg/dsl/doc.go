/*
Package dsl provides a fluent Go builder for constructing survey graphs
programmatically.

It lets tests and embedding applications define surveys in type-safe Go
instead of external YAML, with IDE autocompletion and compile-time checking
of the structure.

Example usage:

	b := dsl.New(1, "Visit feedback")

	b.Add(1, "Did you enjoy your visit?").
		SingleChoice().
		Option(10, "Yes").GoTo(3).
		Option(11, "No") // unset: falls through to the next question

	b.Add(2, "What went wrong?").FreeText()

	b.Add(3, "Anything to add?").FreeText().End()

	s, err := b.Build()
	// s is a *flow.Survey ready for validation and activation.
*/
package dsl
