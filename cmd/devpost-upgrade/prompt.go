package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// StdinPrompter confirms actions by reading a line from stdin, the
// same "Are you sure you want to continue? (yes/no)" pattern the
// teacher's cmd/aleutian uses throughout cli_commands.go.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prints prompt and reads one line from In, treating "y" or
// "yes" (case-insensitive) as confirmation and anything else —
// including EOF — as a decline.
func (p StdinPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprint(p.Out, prompt)

	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
