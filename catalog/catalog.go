// Package catalog loads the static table of events a bus knows about at
// construction: platform events, global events, events that may go
// unheard, and deprecated aliases.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/trickstertwo/xevents"
	"gopkg.in/yaml.v3"
)

// Schema kinds.
const (
	KindAny    = "any"
	KindEntity = "entity"
	KindFields = "fields"
)

type Schema struct {
	Kind     string   `yaml:"kind"`
	Required []string `yaml:"required,omitempty"`
}

type Event struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Schema      *Schema `yaml:"schema,omitempty"`
	// Optional events may be emitted with no subscriber without a warning.
	Optional bool `yaml:"optional,omitempty"`
}

type Alias struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Catalog implements xevents.Catalog.
type Catalog struct {
	Platform   []Event `yaml:"platform"`
	Global     []Event `yaml:"global"`
	Deprecated []Alias `yaml:"deprecated"`
}

var _ xevents.Catalog = (*Catalog)(nil)

//go:embed portal.yaml
var portalYAML []byte

// Portal returns the built-in catalog of portal events.
func Portal() *Catalog {
	c, err := Parse(portalYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in portal catalog: %v", err))
	}
	return c
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) applyDefaults() {
	for _, events := range [][]Event{c.Platform, c.Global} {
		for i := range events {
			s := events[i].Schema
			if s == nil {
				continue
			}
			if s.Kind == "" {
				if len(s.Required) > 0 {
					s.Kind = KindFields
				} else {
					s.Kind = KindAny
				}
			}
		}
	}
}

func (c *Catalog) Validate() error {
	seen := make(map[string]struct{})
	for _, e := range c.events() {
		if e.Name == "" {
			return fmt.Errorf("event with empty name")
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("event %q declared twice", e.Name)
		}
		seen[e.Name] = struct{}{}

		if e.Schema == nil {
			continue
		}
		switch e.Schema.Kind {
		case KindAny, KindEntity:
		case KindFields:
			if len(e.Schema.Required) == 0 {
				return fmt.Errorf("event %q: fields schema needs required fields", e.Name)
			}
		default:
			return fmt.Errorf("event %q: unknown schema kind %q", e.Name, e.Schema.Kind)
		}
	}

	for i, a := range c.Deprecated {
		if a.From == "" || a.To == "" {
			return fmt.Errorf("deprecated[%d]: from and to are required", i)
		}
		if _, ok := seen[a.To]; !ok {
			return fmt.Errorf("deprecated[%d]: %q aliases unknown event %q", i, a.From, a.To)
		}
		if _, ok := seen[a.From]; ok {
			return fmt.Errorf("deprecated[%d]: %q is also declared as an event", i, a.From)
		}
	}
	return nil
}

func (c *Catalog) events() []Event {
	out := make([]Event, 0, len(c.Platform)+len(c.Global))
	out = append(out, c.Platform...)
	return append(out, c.Global...)
}

// Names returns every declared event name, platform events first.
func (c *Catalog) Names() []string {
	events := c.events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// Schemas builds a validator for every declared event. Events without a
// schema, or with kind "any", accept every payload.
func (c *Catalog) Schemas() map[string]xevents.Schema {
	out := make(map[string]xevents.Schema)
	for _, e := range c.events() {
		out[e.Name] = e.Schema.build()
	}
	return out
}

func (s *Schema) build() xevents.Schema {
	if s == nil {
		return xevents.Permissive()
	}
	switch s.Kind {
	case KindEntity:
		return xevents.EntityLifecycleSchema(withoutID(s.Required)...)
	case KindFields:
		return xevents.RequireFields(s.Required...)
	default:
		return xevents.Permissive()
	}
}

func withoutID(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "id" {
			out = append(out, f)
		}
	}
	return out
}

func (c *Catalog) OptionalEvents() []string {
	var out []string
	for _, e := range c.events() {
		if e.Optional {
			out = append(out, e.Name)
		}
	}
	return out
}

func (c *Catalog) Aliases() map[string]string {
	out := make(map[string]string, len(c.Deprecated))
	for _, a := range c.Deprecated {
		out[a.From] = a.To
	}
	return out
}
