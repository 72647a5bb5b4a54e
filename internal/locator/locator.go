// Package locator finds Java declarations in a project tree so fixes can be
// checked against the sources before they are patched.
package locator

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"nullfix/internal/location"
)

// ErrNotDeclared is returned by Verify when the target of a location is not
// declared in its source file.
var ErrNotDeclared = errors.New("declaration not found")

// Locator scans a project root for Java sources.
type Locator struct {
	root    string
	ignored []string

	once    sync.Once
	index   map[string]string // class -> file
	scanErr error
}

// New creates a locator rooted at root.
func New(root string) *Locator {
	return &Locator{
		root:    root,
		ignored: []string{".git", "build", "target", "node_modules"},
	}
}

// ScanProject walks the root directory and hands the declarations of every
// Java file to fn. Files that fail to parse are skipped.
func (l *Locator) ScanProject(fn func(path string, decls []Declaration)) error {
	return filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range l.ignored {
				if d.Name() == ign && path != l.root {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".java") {
			return nil
		}
		decls, err := ExtractFromFile(path)
		if err != nil {
			return nil
		}
		fn(path, decls)
		return nil
	})
}

// ResolvePath returns the file declaring class, relative to the root. The
// project is scanned once per Locator.
func (l *Locator) ResolvePath(class string) (string, bool) {
	l.once.Do(func() {
		l.index = make(map[string]string)
		l.scanErr = l.ScanProject(func(path string, decls []Declaration) {
			for _, d := range decls {
				if d.Kind != DeclClass {
					continue
				}
				key := normalizeClass(d.Class)
				if _, ok := l.index[key]; !ok {
					l.index[key] = path
				}
			}
		})
	})
	if l.scanErr != nil {
		return "", false
	}
	path, ok := l.index[normalizeClass(class)]
	return path, ok
}

// Verify checks that the class and member named by loc are declared in
// its source file. A location without a path is resolved by class name.
func (l *Locator) Verify(loc location.Location) error {
	path := loc.Path
	if path == "" {
		p, ok := l.ResolvePath(loc.Class)
		if !ok {
			return fmt.Errorf("%w: class %s", ErrNotDeclared, loc.Class)
		}
		path = p
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}

	decls, err := ExtractFromFile(path)
	if err != nil {
		return err
	}
	if !matches(loc, decls) {
		return fmt.Errorf("%w: %s in %s", ErrNotDeclared, loc, path)
	}
	return nil
}

func matches(loc location.Location, decls []Declaration) bool {
	class := normalizeClass(loc.Class)
	switch loc.Kind {
	case location.KindField:
		fields := loc.Fields()
		if len(fields) == 0 {
			return false
		}
		declared := make(map[string]bool)
		for _, d := range decls {
			if d.Kind == DeclField && normalizeClass(d.Class) == class {
				declared[d.Name] = true
			}
		}
		for _, f := range fields {
			if !declared[f] {
				return false
			}
		}
		return true
	case location.KindMethod, location.KindParameter:
		name, arity := splitSignature(loc.Member)
		for _, d := range decls {
			if normalizeClass(d.Class) != class || len(d.Params) != arity {
				continue
			}
			if loc.IsParameter() && loc.Index >= arity {
				continue
			}
			switch d.Kind {
			case DeclMethod:
				if d.Name == name {
					return true
				}
			case DeclConstructor:
				if name == "<init>" || name == d.Name {
					return true
				}
			}
		}
	}
	return false
}

// splitSignature splits "get(java.lang.Object,int)" into its name and
// parameter count. A bare name has no parameters.
func splitSignature(sig string) (string, int) {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return sig, 0
	}
	name := sig[:open]
	params := strings.TrimSuffix(sig[open+1:], ")")
	if strings.TrimSpace(params) == "" {
		return name, 0
	}
	// Generic arguments may contain commas.
	depth, arity := 0, 1
	for _, r := range params {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				arity++
			}
		}
	}
	return name, arity
}

// normalizeClass treats nested classes written with '$' or '.' alike.
func normalizeClass(class string) string {
	return strings.ReplaceAll(class, "$", ".")
}
