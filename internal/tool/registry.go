package tool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"deskpilot/internal/domain"
)

// Factory builds a single tool instance. Build may fail (missing binary,
// unreachable browser, bad config); the registry logs and skips it so one
// broken tool never takes down discovery.
type Factory struct {
	Name  string
	Build func() (domain.Tool, error)
}

// Registry holds the discovered tools and the descriptor set advertised to
// the model. The descriptor set is fixed after Discover returns.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]domain.Tool
	descriptors []domain.ToolDescriptor
	logger      *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Discover runs every factory and registers the tools that build cleanly.
// Factories that error are logged and skipped.
func (r *Registry) Discover(factories []Factory) {
	for _, f := range factories {
		t, err := f.Build()
		if err != nil {
			r.logger.Warn("skipping tool", "name", f.Name, "err", err)
			continue
		}
		if err := r.Register(t); err != nil {
			r.logger.Warn("skipping tool", "name", f.Name, "err", err)
		}
	}
}

func (r *Registry) Register(t domain.Tool) error {
	desc := t.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[desc.Name]; dup {
		return fmt.Errorf("duplicate tool name %q", desc.Name)
	}
	r.tools[desc.Name] = t
	r.descriptors = append(r.descriptors, desc)
	sort.Slice(r.descriptors, func(i, j int) bool {
		return r.descriptors[i].Name < r.descriptors[j].Name
	})
	r.logger.Debug("registered tool", "name", desc.Name)
	return nil
}

// Resolve looks a tool up by name. The second return reports whether the
// name is registered.
func (r *Registry) Resolve(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the advertised descriptor set, sorted by name.
func (r *Registry) Descriptors() []domain.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolDescriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ArgsString extracts a string argument from a tool input map, stringifying
// non-string values.
func ArgsString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
