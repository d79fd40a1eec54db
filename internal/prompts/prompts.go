// Package prompts loads the instruction templates sent to model providers.
//
// Templates are YAML files whose base name is the template ID and whose
// top-level keys are variant IDs. Embedded defaults are loaded first; files
// in the configured override directory replace or extend them. Every
// variant is parsed as a text/template at load time, so a malformed
// template is a configuration error rather than a request-time failure.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var defaults embed.FS

// Origins of a loaded variant.
const (
	OriginEmbedded = "embedded"
	OriginOverride = "override"
)

// Key identifies one template variant.
type Key struct {
	Template string
	Variant  string
}

func (k Key) String() string {
	return k.Template + "/" + k.Variant
}

// Entry describes a loaded template variant.
type Entry struct {
	Template string `json:"template"`
	Variant  string `json:"variant"`
	Origin   string `json:"origin"`
	Text     string `json:"text"`
}

type variant struct {
	text   string
	origin string
	tmpl   *template.Template
}

// Catalog holds parsed templates. It is immutable after Load and safe for
// concurrent use.
type Catalog struct {
	templates map[string]map[string]*variant
}

// Load reads the embedded defaults and then any overrides in cfg.Dir.
func Load(cfg *Config, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]map[string]*variant)}

	if _, err := c.load(defaults, "templates", OriginEmbedded); err != nil {
		return nil, err
	}

	if cfg != nil && cfg.Dir != "" {
		n, err := c.load(os.DirFS(cfg.Dir), ".", OriginOverride)
		if err != nil {
			return nil, err
		}
		logger.Info("prompt overrides loaded", "dir", cfg.Dir, "variants", n)
	}

	return c, nil
}

func (c *Catalog) load(fsys fs.FS, dir, origin string) (int, error) {
	var files []string
	for _, ext := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, ext))
		if err != nil {
			return 0, err
		}
		files = append(files, matches...)
	}

	count := 0
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return count, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, file, err)
		}

		var variants map[string]string
		if err := yaml.Unmarshal(data, &variants); err != nil {
			return count, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, file, err)
		}

		id := strings.TrimSuffix(path.Base(file), path.Ext(file))
		if c.templates[id] == nil {
			c.templates[id] = make(map[string]*variant)
		}

		for name, text := range variants {
			key := Key{Template: id, Variant: name}
			tmpl, err := template.New(key.String()).Option("missingkey=error").Parse(text)
			if err != nil {
				return count, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, key, err)
			}
			c.templates[id][name] = &variant{text: text, origin: origin, tmpl: tmpl}
			count++
		}
	}
	return count, nil
}

// Template returns the raw text of a template variant.
func (c *Catalog) Template(templateID, variantID string) (string, error) {
	v, err := c.lookup(Key{Template: templateID, Variant: variantID})
	if err != nil {
		return "", err
	}
	return v.text, nil
}

// Render executes a template variant against data.
func (c *Catalog) Render(key Key, data any) (string, error) {
	v, err := c.lookup(key)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := v.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRender, key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Require verifies that every key is present.
func (c *Catalog) Require(keys ...Key) error {
	for _, k := range keys {
		if _, err := c.lookup(k); err != nil {
			return err
		}
	}
	return nil
}

// Entries lists every loaded variant ordered by template and variant.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for id, variants := range c.templates {
		for name, v := range variants {
			out = append(out, Entry{Template: id, Variant: name, Origin: v.origin, Text: v.text})
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if n := strings.Compare(a.Template, b.Template); n != 0 {
			return n
		}
		return strings.Compare(a.Variant, b.Variant)
	})
	return out
}

func (c *Catalog) lookup(k Key) (*variant, error) {
	variants, ok := c.templates[k.Template]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, k.Template)
	}
	v, ok := variants[k.Variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, k)
	}
	return v, nil
}
