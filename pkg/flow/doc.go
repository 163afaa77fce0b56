/*
Package flow implements the conditional survey-flow core: the question graph
model, the structural validator that gates activation, the answer-time
resolver, and the per-response state machine.

The package performs pure computation over values passed in by the caller.
Loading survey definitions and persisting responses are the responsibility of
the surrounding adapters (see pkg/ports); the only contract the core imposes
on them is that the version tag used to populate a Survey is threaded into
every Response created from it and re-checked on every transition.
*/
package flow
