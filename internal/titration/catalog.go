package titration

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed protocols.yaml
var builtinProtocols []byte

// Catalog is an ordered, read-only library of protocols.
type Catalog struct {
	protocols  []Protocol
	byID       map[string]int
	byCategory map[string][]string
}

type catalogFile struct {
	Protocols []Protocol `yaml:"protocols"`
}

// LoadCatalog parses a YAML protocol library. Every protocol must carry a
// unique id and pass Validate.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse protocol catalog: %w", err)
	}

	c := &Catalog{
		byID:       make(map[string]int, len(file.Protocols)),
		byCategory: make(map[string][]string),
	}

	for _, p := range file.Protocols {
		if p.ID == "" {
			return nil, fmt.Errorf("protocol %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate protocol id %q", p.ID)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("protocol %q: %w", p.ID, err)
		}

		c.byID[p.ID] = len(c.protocols)
		c.protocols = append(c.protocols, p)
		c.byCategory[p.Category] = append(c.byCategory[p.Category], p.ID)
	}

	return c, nil
}

// DefaultCatalog returns the protocols shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(builtinProtocols)
	if err != nil {
		panic("invalid builtin protocol catalog: " + err.Error())
	}
	return c
}

func (c *Catalog) Get(id string) (Protocol, error) {
	i, ok := c.byID[id]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, id)
	}
	return cloneProtocol(c.protocols[i]), nil
}

func (c *Catalog) All() []Protocol {
	out := make([]Protocol, len(c.protocols))
	for i, p := range c.protocols {
		out[i] = cloneProtocol(p)
	}
	return out
}

// ByCategory returns protocol ids grouped by category, in catalog order.
func (c *Catalog) ByCategory() map[string][]string {
	out := make(map[string][]string, len(c.byCategory))
	for k, ids := range c.byCategory {
		out[k] = append([]string(nil), ids...)
	}
	return out
}

func cloneProtocol(p Protocol) Protocol {
	p.Steps = append([]DoseStep(nil), p.Steps...)
	return p
}
