// Package repoindex walks a project tree honoring ignore patterns,
// extracts imports and function signatures (nested declarations
// included) from each recognized source file via tree-sitter, and answers
// "which files import X?" queries. It is grounded on the teacher's
// index.SymbolIndex (concurrent-safe secondary indexes) combined with
// validate.ASTScanner's tree-sitter-per-call parsing pattern, retasked
// here from dangerous-call detection to import/function extraction.
package repoindex

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnores is the built-in ignore list used when a project has
// no .gitignore (or equivalent) of its own.
var defaultIgnores = []string{
	"node_modules/", ".git/", "dist/", "build/", "coverage/",
	"*.min.js", "*.map", "vendor/",
}

// walker decides, path by path, whether a file should be indexed.
type walker struct {
	patterns []string
}

// newWalker reads the ignore file at root (.gitignore by default) if
// present, falling back to defaultIgnores.
func newWalker(root string) *walker {
	patterns := readIgnoreFile(filepath.Join(root, ".gitignore"))
	if len(patterns) == 0 {
		patterns = defaultIgnores
	}
	return &walker{patterns: patterns}
}

func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// ignored reports whether relPath (forward-slash separated, relative
// to the project root) matches any ignore pattern. Matching is a
// simplified gitignore subset: a trailing "/" anchors to a directory
// component, a leading "*." matches any filename with that suffix,
// and everything else is matched as a path-segment substring — there
// is no ecosystem gitignore-pattern library in the example pack, so
// this hand-rolled matcher is the documented stdlib exception (see
// DESIGN.md).
func (w *walker) ignored(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	segments := strings.Split(relPath, "/")

	for _, pattern := range w.patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")
		if strings.HasPrefix(pattern, "*.") {
			suffix := pattern[1:]
			if strings.HasSuffix(relPath, suffix) {
				return true
			}
			continue
		}
		dirSegments := segments
		if dirOnly {
			dirSegments = segments[:len(segments)-1]
		}
		for _, seg := range dirSegments {
			if seg == pattern {
				return true
			}
		}
		if !dirOnly && strings.Contains(relPath, pattern) {
			return true
		}
	}
	return false
}

// recognizedExtensions maps a file extension to the repoindex
// language identifier used to select a tree-sitter grammar.
var recognizedExtensions = map[string]string{
	".go":  "go",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".py":  "python",
}

// Walk returns every recognized source file under root, relative to
// root, skipping files the walker's ignore patterns exclude.
func Walk(root string) ([]string, error) {
	w := newWalker(root)
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // per-file walk errors are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if w.ignored(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.ignored(rel) {
			return nil
		}
		if _, ok := recognizedExtensions[filepath.Ext(path)]; !ok {
			return nil
		}
		files = append(files, rel)
		return nil
	})

	return files, err
}
