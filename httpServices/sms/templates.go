package sms

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

var ErrTemplateNotFound = errors.New("sms template not found")

// MissingVariablesError means a template was asked to render without all of its variables.
type MissingVariablesError struct {
	Key     string
	Missing []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("missing required variables for template %s: %s", e.Key, strings.Join(e.Missing, ", "))
}

// Template is one message layout.
type Template struct {
	Key       string   `yaml:"-" json:"key"`
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Purpose   string   `yaml:"purpose" json:"purpose"`
	Variables []string `yaml:"variables" json:"variables"`
	Body      string   `yaml:"body" json:"template"`
}

// Catalogue is the keyed set of templates plus sample values for previews.
type Catalogue struct {
	templates map[string]Template
	sample    map[string]string
}

// LoadCatalogue parses a YAML catalogue document.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	var doc struct {
		Sample    map[string]string   `yaml:"sample"`
		Templates map[string]Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sms templates: %w", err)
	}

	for key, tpl := range doc.Templates {
		if tpl.Body == "" {
			return nil, fmt.Errorf("sms template %s has an empty body", key)
		}
		tpl.Key = key
		doc.Templates[key] = tpl
	}
	return &Catalogue{templates: doc.Templates, sample: doc.Sample}, nil
}

// DefaultCatalogue returns the embedded templates.
func DefaultCatalogue() *Catalogue {
	c, err := LoadCatalogue(templatesYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalogue) Get(key string) (Template, error) {
	tpl, ok := c.templates[key]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	return tpl, nil
}

// All returns every template ordered by key.
func (c *Catalogue) All() []Template {
	out := make([]Template, 0, len(c.templates))
	for _, tpl := range c.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (c *Catalogue) ByPurpose(purpose string) []Template {
	var out []Template
	for _, tpl := range c.All() {
		if tpl.Purpose == purpose {
			out = append(out, tpl)
		}
	}
	return out
}

// Validate checks the template exists and every declared variable is supplied.
func (c *Catalogue) Validate(key string, vars map[string]string) error {
	tpl, err := c.Get(key)
	if err != nil {
		return err
	}
	var missing []string
	for _, name := range tpl.Variables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingVariablesError{Key: key, Missing: missing}
	}
	return nil
}

// Format substitutes vars into the template. Unknown placeholders are left as written.
func (c *Catalogue) Format(key string, vars map[string]string) (string, error) {
	tpl, err := c.Get(key)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl.Body), nil
}

// Preview renders the template with the catalogue's sample values.
func (c *Catalogue) Preview(key string) (string, error) {
	return c.Format(key, c.sample)
}
