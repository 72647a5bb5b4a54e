package locator

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

const declarationQuery = `
	(class_declaration) @class
	(interface_declaration) @class
	(enum_declaration) @class
	(method_declaration) @method
	(constructor_declaration) @constructor
	(field_declaration) @field
`

// ExtractFromFile parses a Java source file and returns its class, method,
// constructor and field declarations in source order.
func ExtractFromFile(path string) ([]Declaration, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Extract(path, source)
}

// Extract parses source as Java. path is only recorded on the declarations.
func Extract(path string, source []byte) ([]Declaration, error) {
	lang := java.GetLanguage()
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	root := tree.RootNode()
	pkg := detectPackage(root, source)

	query, err := sitter.NewQuery([]byte(declarationQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, root)

	var decls []Declaration
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			decls = append(decls, extractNode(query.CaptureNameForId(c.Index), c.Node, source, path, pkg)...)
		}
	}
	return decls, nil
}

func extractNode(capture string, node *sitter.Node, source []byte, path, pkg string) []Declaration {
	line := int(node.StartPoint().Row) + 1
	switch capture {
	case "class":
		name := nameOf(node, source)
		if name == "" {
			return nil
		}
		return []Declaration{{Kind: DeclClass, Class: enclosingClass(node, source, pkg), Name: name, Filepath: path, Line: line}}
	case "method", "constructor":
		kind := DeclMethod
		if capture == "constructor" {
			kind = DeclConstructor
		}
		return []Declaration{{
			Kind:     kind,
			Class:    enclosingClass(node.Parent(), source, pkg),
			Name:     nameOf(node, source),
			Params:   paramTypes(node, source),
			Filepath: path,
			Line:     line,
		}}
	case "field":
		class := enclosingClass(node.Parent(), source, pkg)
		var out []Declaration
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "variable_declarator" {
				continue
			}
			out = append(out, Declaration{Kind: DeclField, Class: class, Name: nameOf(child, source), Filepath: path, Line: line})
		}
		return out
	}
	return nil
}

func nameOf(node *sitter.Node, source []byte) string {
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return n.Content(source)
}

func isClassNode(node *sitter.Node) bool {
	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration":
		return true
	}
	return false
}

// enclosingClass returns the binary name of the innermost class containing
// node, node itself included.
func enclosingClass(node *sitter.Node, source []byte, pkg string) string {
	var names []string
	for n := node; n != nil; n = n.Parent() {
		if isClassNode(n) {
			names = append([]string{nameOf(n, source)}, names...)
		}
	}
	class := strings.Join(names, "$")
	if pkg == "" {
		return class
	}
	return pkg + "." + class
}

func paramTypes(node *sitter.Node, source []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				out = append(out, t.Content(source))
			}
		case "spread_parameter":
			out = append(out, strings.TrimSpace(p.Content(source)))
		}
	}
	return out
}

func detectPackage(root *sitter.Node, source []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "package_declaration" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			n := child.NamedChild(j)
			if n.Type() == "scoped_identifier" || n.Type() == "identifier" {
				return n.Content(source)
			}
		}
	}
	return ""
}
