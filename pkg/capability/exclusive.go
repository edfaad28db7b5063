package capability

import (
	"context"
	"sync"

	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

// Resources hands out one mutex per external resource name. Concurrent
// automation against the same external surface (one shared browser UI)
// corrupts that surface, so at most one invocation runs against a
// resource at a time; later ones wait.
type Resources struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewResources creates an empty resource lock set.
func NewResources() *Resources {
	return &Resources{locks: make(map[string]*sync.Mutex)}
}

func (r *Resources) lock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[name]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[name] = l
	return l
}

// Exclusive wraps a Capability so that all invocations sharing the same
// resource name run mutually excluded, even across distinct capabilities.
type Exclusive struct {
	inner     Capability
	resource  string
	resources *Resources
}

// NewExclusive wraps inner with mutual exclusion on resource.
func NewExclusive(inner Capability, resource string, resources *Resources) *Exclusive {
	return &Exclusive{inner: inner, resource: resource, resources: resources}
}

func (e *Exclusive) Name() string { return e.inner.Name() }

// Resource returns the shared resource this capability serializes on.
func (e *Exclusive) Resource() string { return e.resource }

func (e *Exclusive) Invoke(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
	mu := e.resources.lock(e.resource)
	mu.Lock()
	defer mu.Unlock()

	// A context that expired while queued fails before touching the
	// external surface.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.inner.Invoke(ctx, cmd)
}
