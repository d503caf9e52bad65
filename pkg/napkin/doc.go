// Package napkin is a resilient HTTP client for the Napkin visual-generation
// API.
//
// A Client executes one logical request at a time through Execute, Get or
// Post. Each logical request is made of up to MaxRetries+1 attempts. Every
// attempt gets its own timeout, and transient failures (HTTP 429, HTTP 5xx,
// connection faults, timeouts and malformed bodies) are retried with capped
// exponential backoff plus jitter:
//
//	wait(n) = min(5s, 300ms * 2^n + U[0, 200ms))
//
// Terminal failures are returned as *Fault values tagged with a FaultKind.
// The client never classifies failures itself; callers pass any error through
// errors.Classify to obtain the user-facing error code.
//
//	client, err := napkin.New(napkin.Config{APIKey: key})
//	if err != nil {
//		return err
//	}
//	resp, err := client.Get(ctx, "/v1/visual/"+id+"/status")
package napkin
