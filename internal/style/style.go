// Package style assigns one of a fixed list of outfit styles to a handle.
//
// DETERMINISM:
// The assignment must match outfits generated (and cached) by the earlier
// JavaScript frontend, so the hash reproduces `hash = ((hash << 5) - hash) + c`
// over UTF-16 code units with 32-bit signed wraparound. Go's int32 arithmetic
// wraps the same way, so no explicit masking is needed.
package style

import (
	"errors"
	"strings"
	"unicode/utf16"
)

// Descriptor is one outfit theme: a display name and the prompt block
// injected into the edit instruction.
type Descriptor struct {
	Name        string
	PromptBlock string
}

// Assigner maps handles onto an immutable, ordered list of descriptors.
type Assigner struct {
	styles []Descriptor
}

// NewAssigner copies styles so later mutation by the caller cannot change
// assignments.
func NewAssigner(styles []Descriptor) (*Assigner, error) {
	if len(styles) == 0 {
		return nil, errors.New("style: at least one style is required")
	}
	cp := make([]Descriptor, len(styles))
	copy(cp, styles)
	return &Assigner{styles: cp}, nil
}

// Hash is the 32-bit rolling hash (h*31 + codeUnit) over the UTF-16 code
// units of s.
func Hash(s string) int32 {
	var h int32
	for _, cu := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(cu)
	}
	return h
}

// index computes abs(hash) mod n. The abs is taken in int64 so that
// math.MinInt32 yields 2147483648, as Math.abs does.
func index(hash int32, n int) int {
	v := int64(hash)
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}

// Index returns the position of the style assigned to handle.
func (a *Assigner) Index(handle string) int {
	return index(Hash(handle), len(a.styles))
}

// Assign returns the style for handle. The hash is case-sensitive; callers
// decide which form of the handle to pass.
func (a *Assigner) Assign(handle string) Descriptor {
	return a.styles[a.Index(handle)]
}

// Default is the style used when no handle is available.
func (a *Assigner) Default() Descriptor {
	return a.styles[0]
}

// Lookup finds a style by name, ignoring case and surrounding whitespace.
func (a *Assigner) Lookup(name string) (Descriptor, bool) {
	name = strings.TrimSpace(name)
	for _, s := range a.styles {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Descriptor{}, false
}

// Styles returns a copy of the configured list.
func (a *Assigner) Styles() []Descriptor {
	cp := make([]Descriptor, len(a.styles))
	copy(cp, a.styles)
	return cp
}
