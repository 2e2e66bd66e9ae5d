package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidPatch is wrapped by every patch validation failure
var ErrInvalidPatch = errors.New("invalid patch")

// Patch is a set of field values for one entity kind. Only fields on the
// kind's mergeable allow-list are accepted.
type Patch struct {
	Kind   EntityKind       `json:"kind"`
	Fields map[Field]string `json:"fields"`
}

// NewPatch builds and validates a patch from loosely typed input. Blank
// values are dropped.
func NewPatch(kind EntityKind, raw map[string]string) (Patch, error) {
	p := Patch{Kind: kind, Fields: make(map[Field]string, len(raw))}
	for k, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		p.Fields[Field(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Validate checks the kind and that every field is mergeable for it
func (p Patch) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: unknown entity kind %q", ErrInvalidPatch, p.Kind)
	}
	for _, f := range p.Keys() {
		if !IsMergeable(p.Kind, f) {
			return fmt.Errorf("%w: field %q is not a %s field", ErrInvalidPatch, f, p.Kind)
		}
	}
	return nil
}

// IsEmpty reports whether the patch carries no fields
func (p Patch) IsEmpty() bool {
	return len(p.Fields) == 0
}

// Keys returns the patched fields in a stable order
func (p Patch) Keys() []Field {
	keys := make([]Field, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Without returns a copy of the patch minus the given fields
func (p Patch) Without(drop ...Field) Patch {
	out := Patch{Kind: p.Kind, Fields: make(map[Field]string, len(p.Fields))}
	for k, v := range p.Fields {
		out.Fields[k] = v
	}
	for _, f := range drop {
		delete(out.Fields, f)
	}
	return out
}
