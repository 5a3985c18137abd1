package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("1.0.0", "abc123", "2026-03-01")

	assert.Equal(t, "1.0.0", versionInfo.Version)
	assert.Equal(t, "abc123", versionInfo.Commit)
	assert.Equal(t, "2026-03-01", versionInfo.BuildDate)
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := exitError(foundry.ExitInvalidArgument, "Bad input", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Bad input")
	assert.Equal(t, foundry.ExitInvalidArgument, exitCodeFor(err))
}

func TestExitCodeFor_WrappedError(t *testing.T) {
	inner := exitError(foundry.ExitExternalServiceUnavailable, "Upstream down", errors.New("503"))
	wrapped := fmt.Errorf("run failed: %w", inner)

	assert.Equal(t, foundry.ExitExternalServiceUnavailable, exitCodeFor(wrapped))
}

func TestExitCodeFor_PlainError(t *testing.T) {
	assert.Equal(t, 1, exitCodeFor(errors.New("plain")))
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"search", "schedule", "analyze", "db", "version"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}
