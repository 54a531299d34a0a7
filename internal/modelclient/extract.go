package modelclient

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSONPattern matches a ```json ... ``` or bare ``` ... ```
// fenced code block, the shape models most commonly wrap structured
// output in even when explicitly asked for raw JSON.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// ExtractJSON pulls a JSON document out of raw model text: a fenced
// block if one is present, otherwise the raw text itself (trimmed).
// It does not validate the result is well-formed JSON — callers
// unmarshal it into their own schema and treat a decode failure as
// "no result", per the Design Note in spec.md §9.
func ExtractJSON(raw string) string {
	if m := fencedJSONPattern.FindStringSubmatch(raw); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// DecodeEnvelope extracts JSON from raw and unmarshals it into dst.
// Any failure — no parseable JSON, a shape mismatch — is reported as
// a plain error; callers are expected to treat that as "no result"
// rather than propagate a partially-decoded value.
func DecodeEnvelope(raw string, dst any) error {
	candidate := ExtractJSON(raw)
	return json.Unmarshal([]byte(candidate), dst)
}
