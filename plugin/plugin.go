// Package plugin runs extension hooks at fixed points of the collect flow.
//
// Hooks receive the tree being processed and may inspect or modify it. A
// failing or panicking hook is reported and skipped; it never aborts the
// command that ran it.
package plugin

import (
	"fmt"
	"sync"

	"github.com/bbt-i18n/bbt/interpolation"
	"github.com/bbt-i18n/bbt/keytree"
)

// Hook names a lifecycle point.
type Hook string

const (
	// CollectCompleted runs on the freshly collected tree.
	CollectCompleted Hook = "collect::completed"
	// CollectBeforeDiff runs on the collected tree right before it is merged
	// with the master table.
	CollectBeforeDiff Hook = "collect::before_diff"
	// CollectAfterDiff runs on the merged tree before it is saved.
	CollectAfterDiff Hook = "collect::after_diff"
)

// Context is handed to every hook.
type Context struct {
	// Langs is the configured locale list; the first entry is the reference.
	Langs []string
	// Warn prints a warning to the user.
	Warn func(format string, args ...any)
}

func (c *Context) warnf(format string, args ...any) {
	if c != nil && c.Warn != nil {
		c.Warn(format, args...)
	}
}

// HookFunc is a hook implementation.
type HookFunc func(tree *keytree.ValueTree, ctx *Context) error

// Plugin bundles hooks under a name.
type Plugin struct {
	Name  string
	Hooks map[Hook]HookFunc
	// TokenHook, when set, replaces the default interpolation tokens.
	TokenHook interpolation.TokenHook
}

// Registry holds the active plugins in registration order.
type Registry struct {
	// OnError receives hook failures. Defaults to ignoring them.
	OnError func(plugin string, hook Hook, err error)

	mu      sync.Mutex
	plugins []*Plugin
}

// NewRegistry returns a registry preloaded with plugins.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register adds a plugin and returns a function that removes it again.
func (r *Registry) Register(p Plugin) (unregister func()) {
	entry := &p
	r.mu.Lock()
	r.plugins = append(r.plugins, entry)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, q := range r.plugins {
			if q == entry {
				r.plugins = append(r.plugins[:i], r.plugins[i+1:]...)
				return
			}
		}
	}
}

// Names lists the registered plugins.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		names = append(names, p.Name)
	}
	return names
}

// Run invokes hook on every plugin that implements it, in registration
// order.
func (r *Registry) Run(hook Hook, tree *keytree.ValueTree, ctx *Context) {
	r.mu.Lock()
	plugins := append([]*Plugin(nil), r.plugins...)
	r.mu.Unlock()

	for _, p := range plugins {
		fn, ok := p.Hooks[hook]
		if !ok {
			continue
		}
		if err := safeRun(fn, tree, ctx); err != nil && r.OnError != nil {
			r.OnError(p.Name, hook, err)
		}
	}
}

// TokenHook returns the first registered interpolation token hook, or nil.
func (r *Registry) TokenHook() interpolation.TokenHook {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plugins {
		if p.TokenHook != nil {
			return p.TokenHook
		}
	}
	return nil
}

func safeRun(fn HookFunc, tree *keytree.ValueTree, ctx *Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return fn(tree, ctx)
}
