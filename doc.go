/*
Package espalier is a conditional survey flow engine: surveys are directed
graphs where answers to branching questions decide which question a
respondent sees next.

Every edge of the graph is a determinant, a closed two-variant value that
either points at a question or ends the survey. Authors leave edges unset to
get the sequential fallback (next question by order, or the end when there
is none). A validator proves, before a survey is activated, that the graph
has no cycles, no references to missing questions, and at least one path to
the end; only activated surveys accept respondents.

# Architecture

The flow core (pkg/flow) is pure: it holds the model, the validator, the
resolver and the answer state machine, and performs no I/O. Stores satisfy
the two small interfaces in pkg/ports; pkg/session drives walks over them
with per-response locking. Adapters under internal/ supply Postgres survey
storage, Redis response storage, an HTTP API and a terminal runner.

# Usage

The root package wires the common case:

	package main

	import (
		"context"
		"log"

		"github.com/espalierhq/espalier"
	)

	func main() {
		ctx := context.Background()
		eng := espalier.New()

		s, err := eng.LoadFile(ctx, "survey.yaml")
		if err != nil {
			log.Fatal(err)
		}

		walker := eng.Walker()
		event, err := walker.Start(ctx, s.ID, "respondent-1")
		if err != nil {
			log.Fatal(err)
		}

		// Render event.Question, collect an answer, then:
		// event, err = walker.Answer(ctx, event.Response.ID, ans)
		// until event.Kind == session.EventCompleted.
		_ = event
	}

For custom persistence, pass WithSurveyStore and WithResponseStore, or use
the stores and walker directly.
*/
package espalier
