package main

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsLikelyRemoteHost(t *testing.T) {
	cases := []struct {
		host   string
		remote bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"db.local", false},
		{"", false},
		{"10.12.0.8", true},
		{"db.prod.example.com", true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.remote, isLikelyRemoteHost(tc.host), "host %q", tc.host)
	}
}

func TestRenderTTL(t *testing.T) {
	require.Equal(t, "no expiry", renderTTL(-1*time.Second))
	require.Equal(t, "key missing", renderTTL(-2*time.Second))
	require.Equal(t, "4m0s", renderTTL(4*time.Minute))
}

func TestParseLedgerListFlags(t *testing.T) {
	opts, err := parseLedgerListFlags("list-events", []string{"--job", "abc", "--limit", "10"})
	require.NoError(t, err)
	require.Equal(t, "abc", opts.JobID)
	require.Equal(t, 10, opts.Limit)

	_, err = parseLedgerListFlags("list-events", nil)
	require.ErrorContains(t, err, "--job is required")

	_, err = parseLedgerListFlags("list-events", []string{"--job", "abc", "--limit", "0"})
	require.ErrorContains(t, err, "--limit must be greater than zero")
}

func TestParsePruneFlags(t *testing.T) {
	opts, err := parsePruneFlags([]string{"--older-than", "720h", "--yes"})
	require.NoError(t, err)
	require.Equal(t, 720*time.Hour, opts.OlderThan)
	require.True(t, opts.Yes)

	_, err = parsePruneFlags([]string{"--batch-size", "-1"})
	require.ErrorContains(t, err, "--batch-size must be greater than zero")
}

func TestParseUndoFlags(t *testing.T) {
	opts, err := parseUndoFlags([]string{"--job", "abc", "--change", "def", "--force", "--yes"})
	require.NoError(t, err)
	require.Equal(t, "abc", opts.JobID)
	require.Equal(t, "def", opts.ChangeID)
	require.Equal(t, "admin@jobshop-cli", opts.ActorID)
	require.True(t, opts.Force)
	require.True(t, opts.Yes)

	_, err = parseUndoFlags([]string{"--change", "def"})
	require.ErrorContains(t, err, "--job is required")

	_, err = parseUndoFlags([]string{"--job", "abc"})
	require.ErrorContains(t, err, "--change is required")
}

func TestPrintUsageListsAllCommands(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	defer func() {
		os.Stdout = oldStdout
	}()

	os.Stdout = w
	err = printUsage()
	require.NoError(t, w.Close())
	os.Stdout = oldStdout
	require.NoError(t, err)

	output, readErr := io.ReadAll(r)
	require.NoError(t, readErr)
	require.NoError(t, r.Close())

	outStr := string(output)
	for name := range commands() {
		require.Contains(t, outStr, name)
	}
}
