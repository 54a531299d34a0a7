package localizer

import "testing"

func TestScoreRewardsSrcPrefix(t *testing.T) {
	if score("src/App.tsx") <= score("other/App.tsx") {
		t.Error("expected src/ prefix to score higher")
	}
}

func TestScorePenalizesTestFiles(t *testing.T) {
	if score("src/App.test.tsx") >= score("src/App.tsx") {
		t.Error("expected test file to score lower than its non-test counterpart")
	}
}

func TestNormalizePathTrimsWorkDir(t *testing.T) {
	got := normalizePath("/repo/src/App.tsx", "/repo")
	if got != "src/App.tsx" {
		t.Errorf("got %q, want src/App.tsx", got)
	}
}

func TestNormalizePathRejectsRemainingAbsolute(t *testing.T) {
	got := normalizePath("/usr/lib/node/module.js", "/repo")
	if got != "" {
		t.Errorf("expected empty string for unrelated absolute path, got %q", got)
	}
}

func TestShortPackageNameStripsScope(t *testing.T) {
	if got := shortPackageName("@babel/core"); got != "core" {
		t.Errorf("got %q, want core", got)
	}
	if got := shortPackageName("chalk"); got != "chalk" {
		t.Errorf("got %q, want chalk", got)
	}
}

func TestLocalizeWithNilIndexAndNoOutputReturnsEmpty(t *testing.T) {
	// With a nil Index, only output-derived candidates are produced;
	// here there is no output, so the result is empty rather than
	// panicking on a nil RepoIndex.
	got := Localize("", "/repo", "chalk", nil)
	if len(got) != 0 {
		t.Errorf("expected no candidates without an index, got %v", got)
	}
}
