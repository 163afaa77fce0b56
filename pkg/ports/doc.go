/*
Package ports defines the driven ports (interfaces) for the Espalier flow
core.

These interfaces decouple the core from external implementations, allowing
survey definitions and response state to live in various backends (memory,
Redis, Postgres). The single cross-cutting contract is version threading:
the Version tag of the Survey a store hands out is the tag every Response
started from it captures, and the flow core re-checks it on every
transition.
*/
package ports
