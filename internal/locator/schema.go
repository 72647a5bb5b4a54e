package locator

// DeclarationKind names the Java declarations the locator extracts.
type DeclarationKind string

const (
	DeclClass       DeclarationKind = "class"
	DeclMethod      DeclarationKind = "method"
	DeclConstructor DeclarationKind = "constructor"
	DeclField       DeclarationKind = "field"
)

// Declaration is one declared element of a Java source file.
type Declaration struct {
	Kind     DeclarationKind `json:"kind"`
	Class    string          `json:"class"`            // binary name of the enclosing (or declared) class, e.g. a.Foo$Inner
	Name     string          `json:"name"`             // simple name of the declared element
	Params   []string        `json:"params,omitempty"` // parameter types of methods and constructors
	Filepath string          `json:"filepath"`
	Line     int             `json:"line"`
}
