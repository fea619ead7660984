// Package prompts holds the model prompt templates for prospect analysis. Templates live in
// JSON files embedded at compile time and use {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// AnalysisFile holds the profile, insights and sales tools prompts.
const AnalysisFile = "analysis.json"

//go:embed *.json
var templateFiles embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

var (
	setsMu sync.Mutex
	sets   = map[string]*Set{}
)

// Set is one parsed template file.
type Set struct {
	file      string
	templates map[string]string
}

// MissingVarsError is returned when a template references placeholders the caller did not fill.
type MissingVarsError struct {
	Key  string
	Vars []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("prompt %s: missing values for %s", e.Key, strings.Join(e.Vars, ", "))
}

// Load parses an embedded template file. Parsed files are reused.
func Load(file string) (*Set, error) {
	setsMu.Lock()
	defer setsMu.Unlock()

	if s, ok := sets[file]; ok {
		return s, nil
	}

	raw, err := templateFiles.ReadFile(file)
	if err != nil {
		return nil, eris.Wrapf(err, "read prompt file %s", file)
	}
	var templates map[string]string
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, eris.Wrapf(err, "parse prompt file %s", file)
	}

	s := &Set{file: file, templates: templates}
	sets[file] = s
	return s, nil
}

// Template returns the raw template for key.
func (s *Set) Template(key string) (string, error) {
	t, ok := s.templates[key]
	if !ok {
		return "", eris.Errorf("prompt %q not found in %s", key, s.file)
	}
	return t, nil
}

// Keys lists the template keys in the set, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Render fills the template for key. Every placeholder in the template must have a value.
func (s *Set) Render(key string, data map[string]string) (string, error) {
	t, err := s.Template(key)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, name := range Placeholders(t) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVarsError{Key: key, Vars: missing}
	}
	return Format(t, data), nil
}

// Render loads file and renders the template for key.
func Render(file, key string, data map[string]string) (string, error) {
	s, err := Load(file)
	if err != nil {
		return "", err
	}
	return s.Render(key, data)
}

// Placeholders returns the distinct placeholder names in template, in order of first use.
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Format substitutes {{.Key}} placeholders with values from data in a single pass, so
// placeholder-like text inside a value (scraped page text, model JSON) is left alone.
// Unknown placeholders are kept.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[3 : len(m)-2]
		if v, ok := data[name]; ok {
			return v
		}
		return m
	})
}
