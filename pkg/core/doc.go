// Package core implements the multi-modal embedding engine behind
// modalvec.
//
// It covers five concerns: a thread-safe embedding cache with TTL and
// frequency-aware LRU eviction, per-modality embedding generation
// (text, numerical, categorical, temporal, structured), fusion and
// ensemble combination of heterogeneous vectors, similarity metrics
// and clustering with silhouette scoring, and heuristic adaptation of
// model selection weights from observed latencies.
//
// # Failure contract
//
// Configuration errors (unknown model names, no model for a modality)
// are surfaced to the caller. Generation and clustering failures are
// not: the caller always receives a well-shaped result whose Success
// flag is false and whose FallbackCause carries the suppressed error,
// and the failure is logged through the injected Logger. Callers must
// check Success before trusting a result.
//
// # Observability
//
// The engine supports pluggable structured logging through the Logger
// interface; every suppressed error is reported through it.
package core
