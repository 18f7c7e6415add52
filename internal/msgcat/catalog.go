// Package msgcat holds every user-facing message the controller can answer
// with. Defaults are embedded; an operator can override any key by dropping
// yaml files into a directory.
package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Catalog maps dotted keys (game.not_your_turn) to parsed text templates.
// It is immutable after New, so reads need no locking.
type Catalog struct {
	templates map[string]*template.Template
}

// New loads the embedded defaults, then applies overrides from dir when it
// is non-empty. Override files are applied in name order; a later file wins
// on a shared key.
func New(overrideDir string) (*Catalog, error) {
	flat := map[string]string{}

	raw, err := fs.ReadFile(defaultFiles, "messages.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if err := mergeYAML(flat, raw); err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := mergeDir(flat, overrideDir); err != nil {
			return nil, err
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(flat))}
	for key, text := range flat {
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", key, err)
		}
		c.templates[key] = tpl
	}
	return c, nil
}

func mergeDir(flat map[string]string, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("message dir: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("message file %s: %w", name, err)
		}
		if err := mergeYAML(flat, raw); err != nil {
			return fmt.Errorf("message file %s: %w", name, err)
		}
	}
	return nil
}

func mergeYAML(flat map[string]string, raw []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	return flatten(flat, "", tree)
}

// flatten turns nested maps into dotted keys. Only string leaves are
// message text; anything else in a catalog file is a mistake.
func flatten(out map[string]string, prefix string, node any) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(out, key, child); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return fmt.Errorf("message text without a key")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("key %s: want string, got %T", prefix, v)
	}
}

// Render executes the template for key with data.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("unknown message: %s", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustRender renders key and falls back to the key itself on any failure,
// so a missing message never breaks a response.
func (c *Catalog) MustRender(key string, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}
