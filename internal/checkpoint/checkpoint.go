// Package checkpoint persists orchestrator RunState to a fixed JSON
// file so an interrupted run can resume at the next phase boundary
// instead of restarting from ANALYZE. It is grounded on the teacher's
// dag.SaveCheckpoint/LoadCheckpoint (services/trace/dag/checkpoint.go)
// atomic temp-file-then-rename idiom, adapted from a single-snapshot
// file to the record-list format the orchestrator requires.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

// NewThreadID generates a fresh identifier for a new orchestrator run.
func NewThreadID() string {
	return uuid.NewString()
}

// record is one on-disk entry: {threadId, phase, state, timestamp}.
// Older records for the same threadId are overwritten on save.
type record struct {
	ThreadID  string         `json:"threadId"`
	Phase     model.Phase    `json:"phase"`
	State     model.RunState `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checkpointer writes RunState to path as a single JSON document
// after every orchestrator transition. Only one process is expected
// to write path at a time; concurrent writers are not coordinated
// beyond the atomic rename itself.
type Checkpointer struct {
	path string
}

// New creates a Checkpointer writing to path.
func New(path string) *Checkpointer {
	return &Checkpointer{path: path}
}

// Has reports whether a checkpoint file currently exists at path.
func (c *Checkpointer) Has() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Load returns the most recently saved RunState for threadId, or
// false if no checkpoint exists for it.
func (c *Checkpointer) Load(threadID string) (model.RunState, bool, error) {
	records, err := c.readAll()
	if err != nil {
		return model.RunState{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ThreadID == threadID {
			return records[i].State, true, nil
		}
	}
	return model.RunState{}, false, nil
}

// Save writes state for threadId to path atomically (temp file +
// rename), replacing any earlier record for the same threadId.
func (c *Checkpointer) Save(threadID string, state model.RunState) error {
	records, err := c.readAll()
	if err != nil {
		// A corrupt or unreadable checkpoint file must not block a
		// new save; start a fresh record list rather than fail the run.
		records = nil
	}

	filtered := records[:0]
	for _, r := range records {
		if r.ThreadID != threadID {
			filtered = append(filtered, r)
		}
	}
	filtered = append(filtered, record{
		ThreadID:  threadID,
		Phase:     state.Phase,
		State:     state,
		Timestamp: time.Now(),
	})

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	return writeAtomic(c.path, data)
}

// LastThreadID returns the threadId of the most recently saved
// record, or false if no checkpoint exists. The CLI uses this on
// --resume: a thread ID is only meaningful across a restart if it is
// the same one the interrupted run used.
func (c *Checkpointer) LastThreadID() (string, bool, error) {
	records, err := c.readAll()
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[len(records)-1].ThreadID, true, nil
}

// Clear deletes the checkpoint file. Deleting a file that does not
// exist is not an error.
func (c *Checkpointer) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: clear: %w", err)
	}
	return nil
}

func (c *Checkpointer) readAll() ([]record, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal: %w", err)
	}
	return records, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}

	success = true
	return nil
}
