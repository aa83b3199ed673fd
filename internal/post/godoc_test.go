package post_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestDiagnosticCodes_GoDocComments verifies that every diagnostic code constant in
// errors.go documents the condition it reports, so CLI users reading the code
// table get accurate descriptions.
func TestDiagnosticCodes_GoDocComments(t *testing.T) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed to resolve current file path")
	}
	errorsFile := filepath.Join(filepath.Dir(thisFile), "errors.go")

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, errorsFile, nil, parser.ParseComments)
	if err != nil {
		t.Fatalf("failed to parse errors.go: %v", err)
	}

	docs := extractConstDocs(f)

	tests := []struct {
		constant string
		wantDoc  string
	}{
		{"CodeMalformedDocument", "structural violation"},
		{"CodeRangeOutOfBounds", "inline formatting range"},
		{"CodeIOFailure", "could not be read"},
		{"CodeUnknownBlock", "unrecognized block preserved as an opaque payload"},
		{"CodeUnknownSubtype", "unrecognized subtype preserved"},
		{"CodeFreeformHTML", "outside any block delimiter"},
		{"CodeDroppedContent", "cannot express, dropped"},
		{"CodeUntaggedStyle", "no markup tag"},
	}

	for _, tt := range tests {
		t.Run(tt.constant, func(t *testing.T) {
			doc, ok := docs[tt.constant]
			if !ok {
				t.Fatalf("constant %s not found in errors.go; was it renamed or removed?", tt.constant)
			}
			if !strings.Contains(doc, tt.wantDoc) {
				t.Errorf("GoDoc for %s\ngot:  %q\nwant substring: %q", tt.constant, strings.TrimSpace(doc), tt.wantDoc)
			}
		})
	}
}

// extractConstDocs maps constant names to their GoDoc comment text.
func extractConstDocs(f *ast.File) map[string]string {
	docs := make(map[string]string)
	for _, decl := range f.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.CONST {
			continue
		}
		for _, spec := range genDecl.Specs {
			valSpec, ok := spec.(*ast.ValueSpec)
			if !ok || valSpec.Doc == nil {
				continue
			}
			for _, name := range valSpec.Names {
				docs[name.Name] = valSpec.Doc.Text()
			}
		}
	}
	return docs
}
