package check

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/pageaudit/core"
)

// ErrDuplicateCheckID matches every *DuplicateCheckIDError.
var ErrDuplicateCheckID = errors.New("duplicate check id")

// DuplicateCheckIDError reports a check id registered twice.
type DuplicateCheckIDError struct {
	ID        string
	Catalogue string
}

func (e *DuplicateCheckIDError) Error() string {
	if e.Catalogue != "" {
		return fmt.Sprintf("catalogue %s: duplicate check id %q", e.Catalogue, e.ID)
	}
	return fmt.Sprintf("duplicate check id %q", e.ID)
}

func (e *DuplicateCheckIDError) Is(target error) bool { return target == ErrDuplicateCheckID }

// ConfigurationError reports a check definition that cannot be used.
type ConfigurationError struct {
	CheckID string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("check %q: %s", e.CheckID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Registry holds validated check definitions in registration order.
// It is built before a run and only read during it.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register validates def and adds it. It fails with a
// *DuplicateCheckIDError when the id is taken and a *ConfigurationError
// when the definition is malformed.
func (r *Registry) Register(def Definition) error {
	def, err := validate(def)
	if err != nil {
		return err
	}
	if _, ok := r.index[def.ID]; ok {
		return &DuplicateCheckIDError{ID: def.ID}
	}
	r.index[def.ID] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// put registers def, replacing an existing definition with the same id in
// its original position.
func (r *Registry) put(def Definition) error {
	def, err := validate(def)
	if err != nil {
		return err
	}
	if i, ok := r.index[def.ID]; ok {
		r.defs[i] = def
		return nil
	}
	r.index[def.ID] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// List returns the definitions of one scope in registration order.
func (r *Registry) List(scope core.Scope) []Definition {
	var out []Definition
	for _, d := range r.defs {
		if d.Scope == scope {
			out = append(out, d)
		}
	}
	return out
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	return append([]Definition(nil), r.defs...)
}

// Lookup returns the definition with the given id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	i, ok := r.index[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Len returns the number of registered checks.
func (r *Registry) Len() int { return len(r.defs) }

// Catalogue is a named, ordered set of definitions.
type Catalogue struct {
	Name        string
	Definitions []Definition
}

// LoadCatalogues builds a Registry from catalogues in order. A duplicate id
// inside one catalogue is an error; a later catalogue replaces an earlier
// catalogue's definition of the same id, which keeps its position.
func LoadCatalogues(catalogues ...Catalogue) (*Registry, error) {
	r := NewRegistry()
	for _, c := range catalogues {
		seen := make(map[string]bool, len(c.Definitions))
		for _, def := range c.Definitions {
			if seen[def.ID] {
				return nil, &DuplicateCheckIDError{ID: def.ID, Catalogue: c.Name}
			}
			seen[def.ID] = true
			if err := r.put(def); err != nil {
				return nil, fmt.Errorf("catalogue %s: %w", c.Name, err)
			}
		}
	}
	return r, nil
}

func validate(def Definition) (Definition, error) {
	if def.ID == "" {
		return def, &ConfigurationError{Reason: "empty id"}
	}
	confErr := func(reason string, err error) error {
		return &ConfigurationError{CheckID: def.ID, Reason: reason, Err: err}
	}

	severity, err := core.ParseSeverity(string(def.Severity))
	if err != nil {
		return def, confErr("invalid severity", err)
	}
	def.Severity = severity

	switch def.Scope {
	case core.ScopeElement:
		if def.Element == nil || def.Page != nil || def.Site != nil {
			return def, confErr("element scope needs exactly an element evaluator", nil)
		}
		if def.Selector == "" {
			return def, confErr("element scope needs a selector", nil)
		}
		if def.Attribute == "" {
			def.Attribute = TextContent
		}
	case core.ScopePage:
		if def.Page == nil || def.Element != nil || def.Site != nil {
			return def, confErr("page scope needs exactly a page evaluator", nil)
		}
	case core.ScopeSite:
		if def.Site == nil || def.Element != nil || def.Page != nil {
			return def, confErr("site scope needs exactly a site evaluator", nil)
		}
	default:
		return def, confErr(fmt.Sprintf("unknown scope %q", def.Scope), nil)
	}

	if def.Selector != "" {
		m, err := cascadia.Compile(def.Selector)
		if err != nil {
			return def, confErr(fmt.Sprintf("malformed selector %q", def.Selector), err)
		}
		def.matcher = m
	}
	return def, nil
}
