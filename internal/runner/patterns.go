package runner

import "regexp"

// ErrorPattern is one named, testable heuristic for picking out an
// informative line or file path from combined build/test output.
// Per the Design Note in spec.md §9, these are data, not code: adding
// or tweaking a heuristic means editing this table, not the callers
// that use it.
type ErrorPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// ErrorPatterns is the fixed set of regexes Localizer and Fixer apply
// against combined stdout+stderr to extract the "most informative"
// lines and candidate file paths.
var ErrorPatterns = []ErrorPattern{
	{Name: "module-url", Pattern: regexp.MustCompile(`(?m)^\s*at\s+.*\(([^)]+\.(?:js|jsx|ts|tsx|mjs|cjs):\d+:\d+)\)`)},
	{Name: "compiler-diagnostic", Pattern: regexp.MustCompile(`(?m)^([\w./\-]+\.(?:ts|tsx|js|jsx)):(\d+):(\d+)\s*-\s*error`)},
	{Name: "test-runner-frame", Pattern: regexp.MustCompile(`(?m)^\s*(?:at|in)\s+([\w./\-]+\.(?:ts|tsx|js|jsx|mjs|cjs)):(\d+)`)},
	{Name: "unresolved-module", Pattern: regexp.MustCompile(`(?m)Cannot find module '([^']+)'`)},
	{Name: "import-failure", Pattern: regexp.MustCompile(`(?m)Module not found:.*'([^']+)'`)},
}

// FailureLinePattern matches lines likely to be the single most
// useful summary of a failure, used to build the capped-at-50-lines
// excerpt the Fixer embeds in its prompt.
var FailureLinePattern = regexp.MustCompile(`(?i)(error|fail|exception|expected|received)`)

// ExtractPaths runs every pattern in ErrorPatterns against output and
// returns the union of captured file paths, in first-seen order.
func ExtractPaths(output string) []string {
	seen := map[string]bool{}
	var paths []string

	for _, p := range ErrorPatterns {
		matches := p.Pattern.FindAllStringSubmatch(output, -1)
		for _, m := range matches {
			if len(m) < 2 {
				continue
			}
			path := m[1]
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}

	return paths
}

// ExtractFailureLines returns every line of output that matches
// FailureLinePattern, in order, capped at limit lines.
func ExtractFailureLines(output string, limit int) []string {
	var lines []string
	for _, line := range splitLines(output) {
		if FailureLinePattern.MatchString(line) {
			lines = append(lines, line)
			if len(lines) >= limit {
				break
			}
		}
	}
	return lines
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
