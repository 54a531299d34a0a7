// Package manifest reads and writes the ecosystem-standard package.json
// manifest: a JSON object carrying "dependencies" and "devDependencies"
// maps of name to version range. It is deliberately narrow — only the
// two dependency maps are modeled — so Updater keeps the value of every
// other top-level field (scripts, name, engines, ...) unchanged. On
// write, top-level keys come out in alphabetical order with two-space
// indentation, and both dependency maps are always written.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Section names the dependency map a package lives in.
type Section string

const (
	SectionRuntime Section = "dependencies"
	SectionDev     Section = "devDependencies"
)

// Manifest is a parsed package.json, preserving every top-level key it
// did not recognize so a write-back does not lose unrelated fields.
type Manifest struct {
	raw             map[string]json.RawMessage
	Dependencies    map[string]string
	DevDependencies map[string]string
}

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return Parse(data)
}

// Parse parses manifest bytes already read from disk (or held as an
// in-memory rollback buffer).
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := &Manifest{
		raw:             raw,
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}

	if v, ok := raw["dependencies"]; ok {
		if err := json.Unmarshal(v, &m.Dependencies); err != nil {
			return nil, fmt.Errorf("%w: dependencies: %v", ErrMalformed, err)
		}
	}
	if v, ok := raw["devDependencies"]; ok {
		if err := json.Unmarshal(v, &m.DevDependencies); err != nil {
			return nil, fmt.Errorf("%w: devDependencies: %v", ErrMalformed, err)
		}
	}

	return m, nil
}

// Lookup returns the version range and section a named dependency is
// declared under.
func (m *Manifest) Lookup(name string) (version string, section Section, ok bool) {
	if v, exists := m.Dependencies[name]; exists {
		return v, SectionRuntime, true
	}
	if v, exists := m.DevDependencies[name]; exists {
		return v, SectionDev, true
	}
	return "", "", false
}

// Set overwrites name's version range within section, creating the
// section's map if necessary.
func (m *Manifest) Set(name, versionRange string, section Section) {
	switch section {
	case SectionDev:
		if m.DevDependencies == nil {
			m.DevDependencies = map[string]string{}
		}
		m.DevDependencies[name] = versionRange
	default:
		if m.Dependencies == nil {
			m.Dependencies = map[string]string{}
		}
		m.Dependencies[name] = versionRange
	}
}

// Bytes serializes the manifest back to JSON, writing the (possibly
// mutated) dependency maps over whatever top-level keys were present
// at Parse time, and appending a terminal newline as §6 requires.
func (m *Manifest) Bytes() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.raw))
	for k, v := range m.raw {
		out[k] = v
	}

	depsJSON, err := marshalSorted(m.Dependencies)
	if err != nil {
		return nil, err
	}
	devDepsJSON, err := marshalSorted(m.DevDependencies)
	if err != nil {
		return nil, err
	}
	out["dependencies"] = depsJSON
	out["devDependencies"] = devDepsJSON

	// encoding/json sorts map keys of the top level alphabetically,
	// which reshuffles unrelated fields; to keep a human-friendly diff
	// we instead marshal with indentation over the raw map, accepting
	// Go's alphabetical key order for the top level.
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return append(body, '\n'), nil
}

// Write serializes the manifest and writes it to path.
func (m *Manifest) Write(path string) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// marshalSorted marshals a string map with deterministic key order so
// repeated writes of an unchanged manifest are byte-identical.
func marshalSorted(m map[string]string) (json.RawMessage, error) {
	if m == nil {
		return json.RawMessage("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte("{")
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return json.RawMessage(buf), nil
}

// Diff reports which dependency names changed version between two
// manifest snapshots, across both sections.
type Diff struct {
	Changed map[string][2]string // name -> [old, new]
}

// HasChanges reports whether any dependency version differs between
// the two manifests.
func (d *Diff) HasChanges() bool {
	return len(d.Changed) > 0
}

// DiffManifests compares before and after, returning the set of
// dependency version changes across both sections.
func DiffManifests(before, after *Manifest) *Diff {
	d := &Diff{Changed: map[string][2]string{}}
	diffSection(d, before.Dependencies, after.Dependencies)
	diffSection(d, before.DevDependencies, after.DevDependencies)
	return d
}

func diffSection(d *Diff, oldSec, newSec map[string]string) {
	for name, newVer := range newSec {
		if oldVer, ok := oldSec[name]; !ok || oldVer != newVer {
			d.Changed[name] = [2]string{oldSec[name], newVer}
		}
	}
}
