package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdinPrompterAcceptsYesVariants(t *testing.T) {
	for _, answer := range []string{"y\n", "Y\n", "yes\n", "YES\n"} {
		var out bytes.Buffer
		p := StdinPrompter{In: strings.NewReader(answer), Out: &out}

		ok, err := p.Confirm(context.Background(), "Proceed? ")
		require.NoError(t, err)
		require.True(t, ok, "answer %q should confirm", answer)
		require.Equal(t, "Proceed? ", out.String())
	}
}

func TestStdinPrompterDeclinesOnAnythingElse(t *testing.T) {
	for _, answer := range []string{"n\n", "no\n", "\n", "maybe\n"} {
		p := StdinPrompter{In: strings.NewReader(answer), Out: &bytes.Buffer{}}

		ok, err := p.Confirm(context.Background(), "Proceed? ")
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestStdinPrompterDeclinesOnEOF(t *testing.T) {
	p := StdinPrompter{In: strings.NewReader(""), Out: &bytes.Buffer{}}

	ok, err := p.Confirm(context.Background(), "Proceed? ")
	require.NoError(t, err)
	require.False(t, ok)
}
