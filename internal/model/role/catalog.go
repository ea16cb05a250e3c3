package role

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store exposes role content lookups for services and HTTP handlers.
type Store interface {
	List() []Profile
	Find(r Role) (Profile, bool)
	Resolve(r Role) Profile
}

// Catalog implements Store with immutable in-memory tables.
type Catalog struct {
	order    []Role
	profiles map[Role]Profile
	fallback Profile
}

// NewCatalog returns a Catalog holding copies of the supplied profiles.
// Profiles whose role is outside the known set are ignored.
func NewCatalog(items []Profile, fallback Profile) *Catalog {
	c := &Catalog{
		profiles: make(map[Role]Profile, len(items)),
		fallback: fallback.clone(),
	}
	c.fallback.Role = ""
	for _, item := range items {
		if !item.Role.Known() {
			continue
		}
		if _, exists := c.profiles[item.Role]; !exists {
			c.order = append(c.order, item.Role)
		}
		c.profiles[item.Role] = item.clone()
	}
	return c
}

// DefaultCatalog is the seeded catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(Seed(), SeedFallback())
}

// List returns the known profiles in catalog order.
func (c *Catalog) List() []Profile {
	out := make([]Profile, 0, len(c.order))
	for _, r := range c.order {
		out = append(out, c.profiles[r].clone())
	}
	return out
}

// Find looks up a known role.
func (c *Catalog) Find(r Role) (Profile, bool) {
	p, ok := c.profiles[r]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// Resolve returns the profile for r, or the fallback profile when r is not
// in the catalog.
func (c *Catalog) Resolve(r Role) Profile {
	if p, ok := c.profiles[r]; ok {
		return p.clone()
	}
	return c.fallback.clone()
}

// Fallback returns the profile used for unrecognized roles.
func (c *Catalog) Fallback() Profile {
	return c.fallback.clone()
}

type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
	Fallback *Profile  `yaml:"fallback"`
}

// LoadCatalog reads a YAML override file on top of the seeded tables. Fields
// left empty in the file keep their seeded values.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog is LoadCatalog on raw YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seeds := Seed()
	index := make(map[Role]int, len(seeds))
	for i, p := range seeds {
		index[p.Role] = i
	}

	for _, override := range file.Profiles {
		r := Parse(string(override.Role))
		i, ok := index[r]
		if !ok {
			return nil, fmt.Errorf("catalog: unknown role %q", override.Role)
		}
		seeds[i] = merge(seeds[i], override)
	}

	fallback := SeedFallback()
	if file.Fallback != nil {
		fallback = merge(fallback, *file.Fallback)
	}

	return NewCatalog(seeds, fallback), nil
}

func merge(base, override Profile) Profile {
	if override.Title != "" {
		base.Title = override.Title
	}
	if override.AssistantLabel != "" {
		base.AssistantLabel = override.AssistantLabel
	}
	if len(override.MenuItems) > 0 {
		base.MenuItems = override.MenuItems
	}
	if len(override.Suggestions) > 0 {
		base.Suggestions = override.Suggestions
	}
	if len(override.Responses) > 0 {
		base.Responses = override.Responses
	}
	return base
}
