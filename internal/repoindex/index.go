package repoindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/pkg/logging"
)

// Index is a read-only map of a project's source tree: which files
// exist, what each one imports, and what functions it defines. It is
// built once, when the command assembles its dependencies, and that
// one Index answers FindFilesImporting queries for every group without
// re-walking the tree; it is not rebuilt between groups.
type Index struct {
	root      string
	Files     map[string]model.FileStat
	Functions map[string][]model.FunctionSig
	Imports   map[string][]model.ImportDecl
}

// Build walks root, parses every recognized file, and returns the
// resulting Index. A per-file parse failure is logged and the file is
// skipped — one malformed file must never abort indexing of the rest
// of the tree.
func Build(ctx context.Context, root string, log *logging.Logger) (*Index, error) {
	files, err := Walk(root)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		root:      root,
		Files:     make(map[string]model.FileStat, len(files)),
		Functions: make(map[string][]model.FunctionSig),
		Imports:   make(map[string][]model.ImportDecl),
	}

	for _, rel := range files {
		abs := filepath.Join(root, rel)
		info, statErr := os.Stat(abs)
		if statErr != nil {
			if log != nil {
				log.Warn("repoindex: stat failed, skipping file", "file", rel, "error", statErr)
			}
			continue
		}
		idx.Files[rel] = model.FileStat{Size: info.Size(), Mtime: info.ModTime().Unix()}

		lang, ok := recognizedExtensions[filepath.Ext(abs)]
		if !ok {
			continue
		}

		source, readErr := os.ReadFile(abs)
		if readErr != nil {
			if log != nil {
				log.Warn("repoindex: read failed, skipping file", "file", rel, "error", readErr)
			}
			continue
		}

		imports, functions, extractErr := extractFile(ctx, source, lang)
		if extractErr != nil {
			if log != nil {
				log.Warn("repoindex: parse failed, skipping file", "file", rel, "error", extractErr)
			}
			continue
		}
		if len(imports) > 0 {
			idx.Imports[rel] = imports
		}
		if len(functions) > 0 {
			idx.Functions[rel] = functions
		}
	}

	return idx, nil
}

// FindFilesImporting returns every indexed file that imports pkg,
// either exactly or as a subpath (pkg/sub/path). Results are sorted
// by relative path for deterministic output.
func (idx *Index) FindFilesImporting(pkg string) []string {
	var matches []string
	for file, imports := range idx.Imports {
		for _, decl := range imports {
			if decl.From == pkg || strings.HasPrefix(decl.From, pkg+"/") {
				matches = append(matches, file)
				break
			}
		}
	}
	sortStrings(matches)
	return matches
}

// FunctionsIn returns the extracted function signatures for a
// specific indexed file, or nil if the file was not indexed or
// defines none.
func (idx *Index) FunctionsIn(relPath string) []model.FunctionSig {
	return idx.Functions[relPath]
}

// Stale reports whether the file at relPath has changed on disk since
// it was indexed (size or mtime mismatch), so callers can decide
// whether to trust a cached Index or rebuild it.
func (idx *Index) Stale(relPath string) bool {
	stat, ok := idx.Files[relPath]
	if !ok {
		return true
	}
	info, err := os.Stat(filepath.Join(idx.root, relPath))
	if err != nil {
		return true
	}
	return info.Size() != stat.Size || info.ModTime().Unix() != stat.Mtime
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
