package fix

import (
	"fmt"
	"strings"

	"nullfix/internal/location"
)

type Annotation string

const (
	Nullable Annotation = "nullable"
	Nonnull  Annotation = "nonnull"
)

func ParseAnnotation(s string) (Annotation, error) {
	switch Annotation(strings.ToLower(strings.TrimSpace(s))) {
	case Nullable:
		return Nullable, nil
	case Nonnull:
		return Nonnull, nil
	}
	return "", fmt.Errorf("unknown annotation %q", s)
}

// Fix is a proposed annotation edit on a single location.
type Fix struct {
	Location   location.Location `json:"location"`
	Annotation Annotation        `json:"annotation"`
	Reason     string            `json:"reason,omitempty"` // checker error type that suggested the fix
	Pass       int               `json:"pass,omitempty"`   // pass that proposed it
}

// Key identifies a fix independently of where and when it was proposed.
type Key struct {
	Location   location.Location
	Annotation Annotation
}

func (f Fix) Key() Key {
	return Key{Location: f.Location.Key(), Annotation: f.Annotation}
}

func (f Fix) String() string {
	return fmt.Sprintf("@%s on %s", f.Annotation, f.Location)
}
