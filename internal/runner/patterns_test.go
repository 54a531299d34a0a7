package runner

import "testing"

func TestExtractPathsCompilerDiagnostic(t *testing.T) {
	output := "src/App.tsx:42:10 - error TS2345: Argument of type 'string' is not assignable."
	paths := ExtractPaths(output)
	if len(paths) == 0 {
		t.Fatal("expected at least one extracted path")
	}
	found := false
	for _, p := range paths {
		if p == "src/App.tsx" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected src/App.tsx among extracted paths, got %v", paths)
	}
}

func TestExtractPathsUnresolvedModule(t *testing.T) {
	output := "Error: Cannot find module 'react-dom/client'\nRequire stack:\n- /app/src/index.tsx"
	paths := ExtractPaths(output)
	found := false
	for _, p := range paths {
		if p == "react-dom/client" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected react-dom/client among extracted paths, got %v", paths)
	}
}

func TestExtractPathsDedupes(t *testing.T) {
	output := "src/App.tsx:1:1 - error TS1\nsrc/App.tsx:2:2 - error TS2\n"
	paths := ExtractPaths(output)
	count := 0
	for _, p := range paths {
		if p == "src/App.tsx" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected src/App.tsx to appear once, got %d times in %v", count, paths)
	}
}

func TestExtractFailureLinesCapsAtLimit(t *testing.T) {
	output := ""
	for i := 0; i < 100; i++ {
		output += "this is an error line\n"
	}
	lines := ExtractFailureLines(output, 50)
	if len(lines) != 50 {
		t.Errorf("expected 50 lines, got %d", len(lines))
	}
}

func TestExtractFailureLinesFiltersNonMatching(t *testing.T) {
	output := "all good here\nsomething failed badly\nstill fine\n"
	lines := ExtractFailureLines(output, 50)
	if len(lines) != 1 {
		t.Fatalf("expected 1 matching line, got %d: %v", len(lines), lines)
	}
	if lines[0] != "something failed badly" {
		t.Errorf("unexpected line: %q", lines[0])
	}
}
