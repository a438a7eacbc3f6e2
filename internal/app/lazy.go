package app

import (
	"context"
	"sync"
)

// Lazy builds the container on first use so commands that only touch the
// config file (config init, version) work before a database exists.
type Lazy struct {
	opts *Options

	once      sync.Once
	container *Container
	err       error
}

// NewLazy returns a holder that builds with *opts on the first Get. opts is
// read at that time, after flags are parsed.
func NewLazy(opts *Options) *Lazy {
	return &Lazy{opts: opts}
}

// Options returns the build options.
func (l *Lazy) Options() Options {
	return *l.opts
}

// Get builds the container once and returns it.
func (l *Lazy) Get(ctx context.Context) (*Container, error) {
	l.once.Do(func() {
		l.container, l.err = BuildContainer(ctx, *l.opts)
	})
	return l.container, l.err
}

// Close releases the container if it was built.
func (l *Lazy) Close() error {
	if l.container == nil {
		return nil
	}
	return l.container.Close()
}
