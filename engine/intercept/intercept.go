// Package intercept implements ordered value-transform chains used for
// derived stats and permission gates.
package intercept

import "errors"

// ErrReentrant is the panic value raised when a chain is modified while it
// is being evaluated.
var ErrReentrant = errors.New("intercept: chain modified during evaluation")

// Func transforms a value given a context.
type Func[T, C any] func(value T, ctx C) T

// Link is a registered interceptor. The pointer returned by Add is the
// handle used to remove it.
type Link[T, C any] struct {
	fn    Func[T, C]
	final bool
}

// Chain folds a base value through its links in insertion order.
type Chain[T, C any] struct {
	links []*Link[T, C]
	depth int // nested Value calls in progress
}

// Add appends fn. When final is true the fold stops after fn runs.
func (c *Chain[T, C]) Add(fn Func[T, C], final bool) *Link[T, C] {
	if c.depth > 0 {
		panic(ErrReentrant)
	}
	l := &Link[T, C]{fn: fn, final: final}
	c.links = append(c.links, l)
	return l
}

// Remove unregisters the link returned by Add. Reports whether it was found.
func (c *Chain[T, C]) Remove(l *Link[T, C]) bool {
	if c.depth > 0 {
		panic(ErrReentrant)
	}
	for i, existing := range c.links {
		if existing == l {
			c.links = append(c.links[:i], c.links[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered links.
func (c *Chain[T, C]) Len() int {
	return len(c.links)
}

// Value folds base through every link, left to right.
func (c *Chain[T, C]) Value(base T, ctx C) T {
	c.depth++
	defer func() { c.depth-- }()

	v := base
	for _, l := range c.links {
		v = l.fn(v, ctx)
		if l.final {
			break
		}
	}
	return v
}
