// Package resilience provides fault isolation for external service calls.
//
// The digest makes exactly one attempt per item, so there is no retry layer here.
// Circuit breakers stop a run from hammering a collaborator that is clearly down:
// once a breaker opens, remaining items fail fast and are dropped by the pipeline
// like any other per-item failure.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ClaudeAPIConfig())
//	text, err := circuitbreaker.Do(cb, func() (string, error) {
//	    return callExternalService()
//	})
package resilience
