/*
Package session glues the flow core to its stores for the delivery path.

Walker is the conversation-facing orchestrator: it starts responses pinned
to the survey's current version and turns each raw answer into a "show
question X" or "survey complete" event. Manager serializes access to a
single response within this process; it is an optimization against wasted
work, not the correctness mechanism — the flow core's visited-set and
version guards are what actually reject concurrent double-submits, because
the response store may be a distributed cache shared with other processes.
*/
package session
