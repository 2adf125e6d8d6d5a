// Package task holds the registry of evaluation tasks. A task adapts one kind
// of validation corpus to the inference and scoring pipeline; concrete tasks
// register themselves from an init function under a string key.
package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Task scores and persists hypotheses produced for its validation corpus.
type Task interface {
	// ScoreResults returns human-readable report lines. An empty report
	// means the task has nothing to score against.
	ScoreResults(results []string) ([]string, error)
	SaveResults(results []string, path string) error
	LoadResults(path string) ([]string, error)
}

// Registration associates a task name with its option schema and constructor.
type Registration struct {
	Name        string
	Description string
	AddFlags    func(fs *pflag.FlagSet)
	Setup       func(ctx context.Context, v *viper.Viper) (Task, error)
}

var (
	mu       sync.RWMutex
	registry = map[string]Registration{}
)

// Register adds r to the registry. It panics on an empty or duplicate name,
// since both indicate a programming error in an init function.
func Register(r Registration) {
	if r.Name == "" {
		panic("task: Register called with empty name")
	}
	if r.Setup == nil {
		panic(fmt.Sprintf("task: Register(%q) called with nil Setup", r.Name))
	}

	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[r.Name]; dup {
		panic(fmt.Sprintf("task: Register called twice for %q", r.Name))
	}
	registry[r.Name] = r
}

// Lookup returns the registration for name.
func Lookup(name string) (Registration, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// Names returns all registered task names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Setup looks up name and constructs the task from v.
func Setup(ctx context.Context, name string, v *viper.Viper) (Task, error) {
	r, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown task %q (registered: %v)", name, Names())
	}
	return r.Setup(ctx, v)
}

func unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, name)
}
