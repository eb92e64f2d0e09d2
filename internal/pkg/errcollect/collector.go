// Package errcollect provides a goroutine-safe, append-only error collector used at
// every fan-out point of a sync run, so that one failure never aborts sibling work.
package errcollect

import (
	"fmt"
	"strings"
	"sync"
)

// multiError is implemented by errors.Join results and by AggregateError.
type multiError interface {
	Unwrap() []error
}

// Collector accumulates errors in insertion order.
// The zero value is ready to use.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add stores each non-nil error.
// An error that wraps several errors (Unwrap() []error) is flattened recursively
// into its leaves; any other error, including a plain string error, is one item.
func (c *Collector) Add(errs ...error) {
	var flat []error
	for _, err := range errs {
		flat = flatten(flat, err)
	}
	if len(flat) == 0 {
		return
	}

	c.mu.Lock()
	c.errs = append(c.errs, flat...)
	c.mu.Unlock()
}

// AddSettled folds in the rejected outcomes of a batch of settled operations.
// results holds one entry per operation; nil entries are successes and are skipped.
func (c *Collector) AddSettled(results []error) {
	c.Add(results...)
}

// Merge appends every error held by other. Merging a collector into itself is a no-op.
func (c *Collector) Merge(other *Collector) {
	if other == nil || other == c {
		return
	}
	c.Add(other.Errors()...)
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// AssertEmpty returns nil when nothing was collected, otherwise an *AggregateError
// holding every collected error.
func (c *Collector) AssertEmpty() error {
	errs := c.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{errs: errs}
}

func flatten(dst []error, err error) []error {
	if err == nil {
		return dst
	}
	if me, ok := err.(multiError); ok {
		for _, inner := range me.Unwrap() {
			dst = flatten(dst, inner)
		}
		return dst
	}
	return append(dst, err)
}

// AggregateError is the compound failure returned by Collector.AssertEmpty.
// It supports errors.Is and errors.As against every collected error.
type AggregateError struct {
	errs []error
}

// Error lists every collected error, one per line after a count header.
func (e *AggregateError) Error() string {
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(e.errs))
	for _, err := range e.errs {
		b.WriteString("\n\t* ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// Len returns the number of collected errors.
func (e *AggregateError) Len() int {
	return len(e.errs)
}
