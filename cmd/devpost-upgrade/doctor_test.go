package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunDoctorReportsCheckLines(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	cmd := newDoctorCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	_ = runDoctor(cmd, nil) // may fail the env check; only the report lines matter here

	require.Contains(t, out.String(), "package manager")
	require.Contains(t, out.String(), "git")
	require.Contains(t, out.String(), "model API key")
}
