// Package registry maps orchestrator and activity names to functions.
package registry

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/petrijr/taskhub/pkg/api"
)

// Registry is safe for concurrent use. The worker decides when
// registration is allowed; the registry only rejects bad names.
type Registry struct {
	mu            sync.RWMutex
	orchestrators map[string]api.Orchestrator
	activities    map[string]api.Activity
}

var _ api.RegistryView = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		orchestrators: make(map[string]api.Orchestrator),
		activities:    make(map[string]api.Activity),
	}
}

// AddOrchestrator registers fn under name and returns the name, which
// identifies the orchestrator on the wire.
func (r *Registry) AddOrchestrator(name string, fn api.Orchestrator) (string, error) {
	if err := validate("orchestrator", name, fn == nil); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orchestrators[name]; exists {
		return "", fmt.Errorf("orchestrator %q: %w", name, api.ErrDuplicateName)
	}
	r.orchestrators[name] = fn
	return name, nil
}

// AddActivity registers fn under name and returns the name.
func (r *Registry) AddActivity(name string, fn api.Activity) (string, error) {
	if err := validate("activity", name, fn == nil); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[name]; exists {
		return "", fmt.Errorf("activity %q: %w", name, api.ErrDuplicateName)
	}
	r.activities[name] = fn
	return name, nil
}

func validate(kind, name string, nilFn bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is required: %w", kind, api.ErrInvalidName)
	}
	if nilFn {
		return fmt.Errorf("%s %q has no function: %w", kind, name, api.ErrInvalidName)
	}
	return nil
}

func (r *Registry) Orchestrator(name string) (api.Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.orchestrators[name]
	if !ok {
		return nil, fmt.Errorf("orchestrator %q: %w", name, api.ErrUnknownOrchestrator)
	}
	return fn, nil
}

func (r *Registry) Activity(name string) (api.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.activities[name]
	if !ok {
		return nil, fmt.Errorf("activity %q: %w", name, api.ErrUnknownActivity)
	}
	return fn, nil
}

// OrchestratorNames returns the registered orchestrator names, sorted.
func (r *Registry) OrchestratorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.orchestrators)
}

// ActivityNames returns the registered activity names, sorted.
func (r *Registry) ActivityNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.activities)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FunctionName derives a registration name from a function value: the
// final identifier of its symbol, so main.SayHello becomes "SayHello".
// Closures get compiler names such as "func1" and should be registered
// under an explicit name instead.
func FunctionName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	// Method values carry a "-fm" suffix.
	return strings.TrimSuffix(name, "-fm")
}
