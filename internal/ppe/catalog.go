package ppe

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ClassEntry is one class of the detection model.
type ClassEntry struct {
	Name      string
	Semantics Semantics
}

// ClassCatalog maps model class ids to canonical labels and their meaning.
// It is read-only once built.
type ClassCatalog struct {
	entries map[int]ClassEntry
}

// NewClassCatalog builds a catalog from the given entries.
func NewClassCatalog(entries map[int]ClassEntry) *ClassCatalog {
	c := &ClassCatalog{entries: make(map[int]ClassEntry, len(entries))}
	for id, e := range entries {
		c.entries[id] = e
	}
	return c
}

// DefaultCatalog returns the catalog of the PPE model the monitor ships with.
func DefaultCatalog() *ClassCatalog {
	return NewClassCatalog(map[int]ClassEntry{
		0: {Name: "Hardhat", Semantics: Semantics{CategoryHead, StatePresent}},
		1: {Name: "NO-Hardhat", Semantics: Semantics{CategoryHead, StateAbsent}},
		2: {Name: "NO-Safety Vest", Semantics: Semantics{CategoryVest, StateAbsent}},
		3: {Name: "Person", Semantics: Semantics{CategoryPerson, StateNeutral}},
		4: {Name: "Safety Vest", Semantics: Semantics{CategoryVest, StatePresent}},
		5: {Name: "Safety Gloves", Semantics: Semantics{CategoryGloves, StatePresent}},
		6: {Name: "Safety Boot", Semantics: Semantics{CategoryBoots, StatePresent}},
		7: {Name: "Safety Glasses", Semantics: Semantics{CategoryGlasses, StatePresent}},
		8: {Name: "Mask", Semantics: Semantics{CategoryMask, StatePresent}},
	})
}

// Lookup returns the entry for a class id.
func (c *ClassCatalog) Lookup(id int) (ClassEntry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Len returns the number of classes in the catalog.
func (c *ClassCatalog) Len() int {
	return len(c.entries)
}

// IDs returns the catalog class ids in ascending order.
func (c *ClassCatalog) IDs() []int {
	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks the catalog against the class names reported by the
// detection source. Every catalog id must be reported under the same name
// (case-insensitive). Ids the source reports but the catalog does not know
// are allowed; they are labelled with the reported name. A nil or empty
// report means the source does not expose its names and nothing is checked.
func (c *ClassCatalog) Validate(reported map[int]string) error {
	if len(reported) == 0 {
		return nil
	}

	var errs error
	for _, id := range c.IDs() {
		entry := c.entries[id]
		name, ok := reported[id]
		switch {
		case !ok:
			errs = multierr.Append(errs, errors.Errorf("class %d (%s) is not reported by the detection source", id, entry.Name))
		case !strings.EqualFold(strings.TrimSpace(name), entry.Name):
			errs = multierr.Append(errs, errors.Errorf("class %d is %q in the catalog but %q in the detection source", id, entry.Name, name))
		}
	}
	return errs
}

type catalogFile struct {
	Classes []struct {
		ID       *int   `yaml:"id"`
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		State    string `yaml:"state"`
	} `yaml:"classes"`
}

// ParseCatalog reads a catalog from YAML:
//
//	classes:
//	  - id: 0
//	    name: Hardhat
//	    category: head
//	    state: present
//
// category and state are optional; when omitted they are inferred from name.
func ParseCatalog(data []byte) (*ClassCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	if len(f.Classes) == 0 {
		return nil, errors.New("catalog has no classes")
	}

	entries := make(map[int]ClassEntry, len(f.Classes))
	var errs error
	for i, cls := range f.Classes {
		where := fmt.Sprintf("classes[%d]", i)
		if cls.ID == nil {
			errs = multierr.Append(errs, errors.Errorf("%s: missing id", where))
			continue
		}
		if strings.TrimSpace(cls.Name) == "" {
			errs = multierr.Append(errs, errors.Errorf("%s: missing name", where))
			continue
		}
		if _, dup := entries[*cls.ID]; dup {
			errs = multierr.Append(errs, errors.Errorf("%s: duplicate id %d", where, *cls.ID))
			continue
		}

		sem := InferSemantics(cls.Name)
		if cls.Category != "" {
			category, err := ParseCategory(cls.Category)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrap(err, where))
				continue
			}
			sem.Category = category
		}
		if cls.State != "" {
			state, err := ParseState(cls.State)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrap(err, where))
				continue
			}
			sem.State = state
		}
		entries[*cls.ID] = ClassEntry{Name: strings.TrimSpace(cls.Name), Semantics: sem}
	}
	if errs != nil {
		return nil, errs
	}
	return NewClassCatalog(entries), nil
}

// LoadCatalog reads a catalog file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*ClassCatalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	return ParseCatalog(data)
}
