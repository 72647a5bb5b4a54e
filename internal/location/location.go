package location

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindField     Kind = "field"
	KindMethod    Kind = "method"
	KindParameter Kind = "parameter"
)

// ParseKind accepts the serialized kind names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindField:
		return KindField, nil
	case KindMethod:
		return KindMethod, nil
	case KindParameter:
		return KindParameter, nil
	}
	return "", fmt.Errorf("unknown location kind %q", s)
}

// Location identifies a program element that can carry an annotation.
// It is a comparable value and can be used directly as a map key.
type Location struct {
	Kind   Kind   `json:"kind"`
	Class  string `json:"class"`
	Member string `json:"member"`         // field name(s) or method signature
	Index  int    `json:"index"`          // parameter ordinal, -1 otherwise
	Path   string `json:"path,omitempty"` // source file, metadata only
}

func OnField(class string, fields ...string) Location {
	return Location{Kind: KindField, Class: class, Member: strings.Join(fields, ","), Index: -1}
}

func OnMethod(class, method string) Location {
	return Location{Kind: KindMethod, Class: class, Member: method, Index: -1}
}

func OnParameter(class, method string, index int) Location {
	return Location{Kind: KindParameter, Class: class, Member: method, Index: index}
}

func (l Location) IsField() bool     { return l.Kind == KindField }
func (l Location) IsMethod() bool    { return l.Kind == KindMethod }
func (l Location) IsParameter() bool { return l.Kind == KindParameter }

// Fields returns the variable names of a field location. Several fields
// declared in one statement share a single location.
func (l Location) Fields() []string {
	if l.Kind != KindField || l.Member == "" {
		return nil
	}
	parts := strings.Split(l.Member, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasField reports whether name is one of the variables of a field location.
func (l Location) HasField(name string) bool {
	for _, f := range l.Fields() {
		if f == name {
			return true
		}
	}
	return false
}

// Key returns the identity of the location without its path, so that the
// same element matches across passes even if the checker reports it from a
// different file view.
func (l Location) Key() Location {
	l.Path = ""
	return l
}

// Region returns the region enclosing the element itself: the method body
// for methods and parameters, the initializer for fields.
func (l Location) Region() Region {
	return Region{Class: l.Class, Member: l.Member}
}

func (l Location) String() string {
	switch l.Kind {
	case KindParameter:
		return fmt.Sprintf("%s %s#%s[%d]", l.Kind, l.Class, l.Member, l.Index)
	default:
		return fmt.Sprintf("%s %s#%s", l.Kind, l.Class, l.Member)
	}
}
