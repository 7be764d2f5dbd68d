// Package prompt builds the stage prompts sent to the completion
// service, from embedded templates with optional project overrides.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/forgelight/foreman/templates"
)

// varPattern matches {{VARIABLE_NAME}} placeholders in templates.
var varPattern = regexp.MustCompile(`\{\{([A-Z_][A-Z0-9_]*)\}\}`)

// Cache loads and caches prompt templates. Each stage executor owns its
// own Cache; there is no process-wide template state, so concurrent
// engines never share mutable cache entries.
type Cache struct {
	mu sync.Mutex
	// overrideDir optionally holds project template overrides
	// (<overrideDir>/<name>.md), checked before the embedded set.
	overrideDir string
	prompts     map[string]string
	systems     map[string]string
}

// NewCache creates a template cache. overrideDir may be empty to use
// only the embedded templates.
func NewCache(overrideDir string) *Cache {
	return &Cache{
		overrideDir: overrideDir,
		prompts:     make(map[string]string),
		systems:     make(map[string]string),
	}
}

// Prompt returns the prompt template for a stage name (plan, implement,
// review), loading it at most once.
func (c *Cache) Prompt(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tmpl, ok := c.prompts[name]; ok {
		return tmpl, nil
	}

	if c.overrideDir != "" {
		path := filepath.Join(c.overrideDir, name+".md")
		if data, err := os.ReadFile(path); err == nil {
			c.prompts[name] = string(data)
			return c.prompts[name], nil
		}
	}

	data, err := templates.Prompts.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("load prompt template %q: %w", name, err)
	}
	c.prompts[name] = string(data)
	return c.prompts[name], nil
}

// System returns the system prompt for a stage name. Missing system
// prompts are not an error; the stage simply runs without one.
func (c *Cache) System(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tmpl, ok := c.systems[name]; ok {
		return tmpl
	}

	data, err := templates.SystemPrompts.ReadFile("system_prompts/" + name + ".md")
	if err != nil {
		c.systems[name] = ""
		return ""
	}
	c.systems[name] = string(data)
	return c.systems[name]
}

// Render interpolates {{NAME}} placeholders in a template. Missing
// variables render as empty strings.
func Render(tmpl string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		return vars[name]
	})
}
