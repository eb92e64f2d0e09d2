// Package resilience groups the fault tolerance patterns used by outbound calls.
//
// Comic hosts are fetched through per-host circuit breakers (see circuitbreaker),
// so a host that keeps failing is skipped quickly instead of slowing every sync.
// Webhook deliveries are deliberately not retried: a failed delivery leaves the
// cache entry untouched and the next scheduled run picks the target up again.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.HostConfig("comic.example.com"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return client.Do(req)
//	})
package resilience
