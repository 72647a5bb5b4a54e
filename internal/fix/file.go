package fix

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"nullfix/internal/location"
	"nullfix/internal/relation"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fix.schema.json
var schemaText string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("fix.schema.json", schemaText)
	})
	return schema, schemaErr
}

// ReadFile reads a suggested-fix file: newline-delimited JSON, one fix per
// line. Fixes are returned in file order.
func ReadFile(path string) ([]Fix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &relation.MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("failed to open fix file: %w", err)
	}
	defer f.Close()

	var fixes []Fix
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fx, err := decodeLine([]byte(line))
		if err != nil {
			return nil, &relation.MalformedRecordError{Path: path, Line: lineNo, Err: err}
		}
		fixes = append(fixes, fx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fix file: %w", err)
	}
	return fixes, nil
}

func decodeLine(line []byte) (Fix, error) {
	sch, err := compiledSchema()
	if err != nil {
		return Fix{}, fmt.Errorf("fix schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Fix{}, err
	}
	if err := sch.Validate(doc); err != nil {
		return Fix{}, err
	}

	var fx Fix
	if err := json.Unmarshal(line, &fx); err != nil {
		return Fix{}, err
	}
	kind, err := location.ParseKind(string(fx.Location.Kind))
	if err != nil {
		return Fix{}, err
	}
	fx.Location.Kind = kind
	if fx.Location.Class == "" || fx.Location.Member == "" {
		return Fix{}, errors.New("location needs class and member")
	}
	if kind == location.KindParameter && fx.Location.Index < 0 {
		return Fix{}, errors.New("parameter location needs a non-negative index")
	}
	if kind != location.KindParameter {
		fx.Location.Index = -1
	}
	if fx.Annotation, err = ParseAnnotation(string(fx.Annotation)); err != nil {
		return Fix{}, err
	}
	return fx, nil
}

// WriteFile writes fixes in the format read by ReadFile.
func WriteFile(path string, fixes []Fix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fix file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, fx := range fixes {
		if err := enc.Encode(fx); err != nil {
			return fmt.Errorf("failed to encode fix: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
