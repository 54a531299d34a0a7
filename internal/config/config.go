// Package config resolves a single RunConfig from three layers —
// JSON config file, CLI flags, environment — the way the teacher's
// cmd/aleutian resolves its own config.yaml with viper
// (loadConfigFromStackDir in cmd/aleutian/cli_commands.go), generalized
// from a single v.Unmarshal into an explicit per-key merge so that
// migrationDocs can merge instead of override per spec.md §6.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/pkg/validation"
)

// FileName is the fixed name of the optional project-root config
// file, matching the checkpoint file's naming convention
// (.devpost-upgrade-state.json).
const FileName = ".devpost-upgrade.json"

// allowedKeys are the only top-level keys spec.md §6 recognizes.
// Anything else in the config file is rejected at load time per
// SUPPLEMENTED FEATURES #3, rather than silently ignored.
var allowedKeys = map[string]bool{
	"buildcommand":  true,
	"testcommand":   true,
	"maxretries":    true,
	"createcommits": true,
	"modelname":     true,
	"dryrun":        true,
	"interactive":   true,
	"migrationdocs": true,
}

// Result is everything Load resolves: the RunConfig the orchestrator
// consumes, plus the CLI-only controls and secrets that never belong
// in RunState.
type Result struct {
	Config     model.RunConfig
	Resume     bool
	ClearState bool
	APIKey     string
	Debug      bool
	LogDir     string
}

// RegisterFlags adds every flag spec.md §6 names to cmd. Flags default
// to their Go zero value rather than the config file's effective
// default, so that an unset flag never shadows a config-file value —
// viper only prefers a bound flag once it reports Changed.
func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "compute the upgrade plan without mutating anything")
	cmd.Flags().Bool("interactive", false, "pause for confirmation before each group")
	cmd.Flags().Bool("no-commit", false, "never create VCS commits, even in a versioned tree")
	cmd.Flags().String("build-command", "", "command run to verify the tree still builds")
	cmd.Flags().String("test-command", "", "command run to verify the tree still passes its tests")
	cmd.Flags().Int("max-retries", 0, "fix attempts per group before giving up")
	cmd.Flags().String("model-name", "", "model identifier passed to the model client")
	cmd.Flags().StringArray("migration-doc", nil, "pkg=url migration doc hint, repeatable")
	cmd.Flags().Bool("resume", false, "resume from the last checkpoint instead of starting over")
	cmd.Flags().Bool("clear-state", false, "discard any existing checkpoint before starting")
	cmd.Flags().String("log-dir", "", "also write JSON logs to this directory")
}

// Load reads FileName from dir (if present), layers the flags
// registered on cmd over it, and binds GEMINI_API_KEY/DEBUG from the
// environment. CLI flags win over the file; migrationDocs is the one
// key that merges instead of overriding.
func Load(cmd *cobra.Command, dir string) (Result, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigFile(filepath.Join(dir, FileName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Result{}, fmt.Errorf("config: read %s: %w", FileName, err)
		}
	} else if err := validateKeys(v); err != nil {
		return Result{}, err
	}

	bindings := map[string]string{
		"buildCommand": "build-command",
		"testCommand":  "test-command",
		"maxRetries":   "max-retries",
		"modelName":    "model-name",
		"dryRun":       "dry-run",
		"interactive":  "interactive",
	}
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Result{}, fmt.Errorf("config: bind flag %s: %w", flag, err)
			}
		}
	}
	if err := v.BindEnv("modelApiKey", "GEMINI_API_KEY"); err != nil {
		return Result{}, fmt.Errorf("config: bind GEMINI_API_KEY: %w", err)
	}
	if err := v.BindEnv("debug", "DEBUG"); err != nil {
		return Result{}, fmt.Errorf("config: bind DEBUG: %w", err)
	}

	v.SetDefault("buildCommand", "npm run build")
	v.SetDefault("testCommand", "npm test")
	v.SetDefault("maxRetries", 3)
	v.SetDefault("createCommits", true)
	v.SetDefault("modelName", "gpt-4o-mini")

	maxRetries := v.GetInt("maxRetries")
	if maxRetries < 0 {
		return Result{}, fmt.Errorf("config: maxRetries must be >= 0, got %d", maxRetries)
	}

	noCommit, _ := cmd.Flags().GetBool("no-commit")
	createCommits := v.GetBool("createCommits") && !noCommit

	flagDocs, _ := cmd.Flags().GetStringArray("migration-doc")
	migrationDocs, err := mergeMigrationDocs(v.Get("migrationDocs"), flagDocs)
	if err != nil {
		return Result{}, err
	}

	resume, _ := cmd.Flags().GetBool("resume")
	clearState, _ := cmd.Flags().GetBool("clear-state")
	logDir, _ := cmd.Flags().GetString("log-dir")

	cfg := model.RunConfig{
		BuildCommand:  v.GetString("buildCommand"),
		TestCommand:   v.GetString("testCommand"),
		MaxRetries:    maxRetries,
		CreateCommits: createCommits,
		ModelName:     v.GetString("modelName"),
		DryRun:        v.GetBool("dryRun"),
		Interactive:   v.GetBool("interactive"),
		MigrationDocs: migrationDocs,
	}

	return Result{
		Config:     cfg,
		Resume:     resume,
		ClearState: clearState,
		APIKey:     v.GetString("modelApiKey"),
		Debug:      v.GetBool("debug"),
		LogDir:     logDir,
	}, nil
}

// validateKeys rejects a config file containing a top-level key
// outside allowedKeys, per SUPPLEMENTED FEATURES #3 — a typo in the
// file should fail loudly at startup, not be silently ignored.
func validateKeys(v *viper.Viper) error {
	data, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return fmt.Errorf("config: read %s: %w", FileName, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", FileName, err)
	}
	var unknown []string
	for key := range raw {
		if !allowedKeys[strings.ToLower(key)] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("config: unknown key(s) in %s: %s", FileName, strings.Join(unknown, ", "))
}

// mergeMigrationDocs unions the config file's migrationDocs
// (`{pkg: url | [url, ...]}`) with repeated --migration-doc pkg=url
// flags, per spec.md §6 ("CLI flags override file values;
// migrationDocs are merged").
func mergeMigrationDocs(fileValue any, flagDocs []string) (map[string][]string, error) {
	result := map[string][]string{}

	switch v := fileValue.(type) {
	case nil:
	case map[string]any:
		for pkg, raw := range v {
			urls, err := coerceURLs(raw)
			if err != nil {
				return nil, fmt.Errorf("config: migrationDocs.%s: %w", pkg, err)
			}
			result[pkg] = append(result[pkg], urls...)
		}
	default:
		return nil, fmt.Errorf("config: migrationDocs must be an object, got %T", fileValue)
	}

	for _, entry := range flagDocs {
		pkg, url, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("config: --migration-doc %q must be pkg=url", entry)
		}
		result[pkg] = append(result[pkg], url)
	}

	for pkg, urls := range result {
		for _, url := range urls {
			if err := validation.ValidateMigrationDocURL(url); err != nil {
				return nil, fmt.Errorf("config: migrationDocs.%s: %w", pkg, err)
			}
		}
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func coerceURLs(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []any:
		urls := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", entry)
			}
			urls = append(urls, s)
		}
		return urls, nil
	default:
		return nil, fmt.Errorf("expected a string or array of strings, got %T", raw)
	}
}
