package errcollect

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Add(t *testing.T) {
	tests := []struct {
		name    string
		add     []error
		wantLen int
	}{
		{
			name:    "single error is one item",
			add:     []error{errors.New("boom")},
			wantLen: 1,
		},
		{
			name:    "plain string error is not split into characters",
			add:     []error{fmt.Errorf("%s", "a long message")},
			wantLen: 1,
		},
		{
			name:    "joined pair flattens to two",
			add:     []error{errors.Join(errors.New("a"), errors.New("b"))},
			wantLen: 2,
		},
		{
			name:    "nested joins flatten recursively",
			add:     []error{errors.Join(errors.New("a"), errors.Join(errors.New("b"), errors.New("c")))},
			wantLen: 3,
		},
		{
			name:    "nil ignored",
			add:     []error{nil, errors.New("a"), nil},
			wantLen: 1,
		},
		{
			name:    "single-wrap errors are kept whole",
			add:     []error{fmt.Errorf("ctx: %w", errors.New("a"))},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Add(tt.add...)
			assert.Equal(t, tt.wantLen, c.Len())
		})
	}
}

func TestCollector_NoContentDedup(t *testing.T) {
	var c Collector
	err := errors.New("same")
	c.Add(err)
	c.Add(err)
	c.Add(errors.New("same"))

	assert.Equal(t, 3, c.Len())
}

func TestCollector_AddSettled(t *testing.T) {
	c := New()
	c.AddSettled([]error{nil, errors.New("a"), nil, errors.New("b")})

	require.Equal(t, 2, c.Len())
	assert.EqualError(t, c.Errors()[0], "a")
	assert.EqualError(t, c.Errors()[1], "b")
}

func TestCollector_Merge(t *testing.T) {
	parent := New()
	parent.Add(errors.New("index"))

	child := New()
	child.Add(errors.New("run 1"), errors.New("run 2"))

	parent.Merge(child)
	parent.Merge(nil)
	parent.Merge(parent)

	assert.Equal(t, 3, parent.Len())
	assert.Equal(t, 2, child.Len())
}

func TestCollector_AddAggregateFlattens(t *testing.T) {
	inner := New()
	inner.Add(errors.New("a"), errors.New("b"))

	outer := New()
	outer.Add(inner.AssertEmpty())

	assert.Equal(t, 2, outer.Len())
}

func TestCollector_AssertEmpty(t *testing.T) {
	c := New()
	assert.NoError(t, c.AssertEmpty())

	sentinel := errors.New("sentinel")
	c.Add(sentinel, errors.New("other"))

	err := c.AssertEmpty()
	require.Error(t, err)

	var agg *AggregateError
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, 2, agg.Len())
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, "2 errors occurred:\n\t* sentinel\n\t* other", err.Error())
}

func TestAggregateError_SingleMessage(t *testing.T) {
	c := New()
	c.Add(errors.New("only"))
	assert.EqualError(t, c.AssertEmpty(), "only")
}

func TestCollector_Errors_ReturnsCopy(t *testing.T) {
	c := New()
	c.Add(errors.New("a"))

	errs := c.Errors()
	errs[0] = errors.New("mutated")

	assert.EqualError(t, c.Errors()[0], "a")
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(fmt.Errorf("err %d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}
