package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDetached(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"destroyed", errors.New("{-32000 Execution context was destroyed. }"), true},
		{"missing context", errors.New("Cannot find context with specified id"), true},
		{"navigated", errors.New("Inspected target navigated or closed"), true},
		{"plain timeout", errors.New("context deadline exceeded"), false},
		{"not found", NotFound(Locator{Name: "invite button"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDetached(tt.err))
		})
	}
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	err := NotFound(Locator{Selector: `input[name="email"]`})
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), `input[name="email"]`)
}

func TestWithElement(t *testing.T) {
	loc := Locator{Name: "log in button", Timeout: time.Second}
	destroyed := errors.New("{-32000 Execution context was destroyed. }")

	t.Run("detach after lookup finds the element again", func(t *testing.T) {
		finds, acts := 0, 0
		err := withElement(context.Background(), loc, "click", time.Millisecond,
			func(context.Context) (int, error) {
				finds++
				return finds, nil
			},
			func(el int) error {
				acts++
				if el == 1 {
					return destroyed
				}
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, 2, finds)
		assert.Equal(t, 2, acts)
	})

	t.Run("detach keeps happening", func(t *testing.T) {
		finds := 0
		err := withElement(context.Background(), loc, "click", time.Millisecond,
			func(context.Context) (int, error) {
				finds++
				return 0, nil
			},
			func(int) error { return destroyed })

		assert.Equal(t, detachAttempts, finds)
		assert.ErrorContains(t, err, "kept detaching")
		assert.NotErrorIs(t, err, ErrElementNotFound)
	})

	t.Run("other action errors are not retried", func(t *testing.T) {
		finds := 0
		err := withElement(context.Background(), loc, "click", time.Millisecond,
			func(context.Context) (int, error) {
				finds++
				return 0, nil
			},
			func(int) error { return errors.New("node is not visible") })

		assert.Equal(t, 1, finds)
		assert.EqualError(t, err, "click log in button: node is not visible")
		assert.NotErrorIs(t, err, ErrElementNotFound)
	})

	t.Run("lookup timeout is not found", func(t *testing.T) {
		err := withElement(context.Background(), loc, "find", time.Millisecond,
			func(context.Context) (int, error) { return 0, context.DeadlineExceeded }, nil)

		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.Contains(t, err.Error(), "log in button")
	})

	t.Run("caller cancellation wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withElement(ctx, loc, "find", time.Millisecond,
			func(ctx context.Context) (int, error) { return 0, ctx.Err() }, nil)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

func TestLocate_PreferredWins(t *testing.T) {
	dir := t.TempDir()
	preferred := filepath.Join(dir, "chrome")
	writeExecutable(t, preferred)

	res := Locate(preferred, []string{filepath.Join(dir, "other")})
	assert.Equal(t, preferred, res.Path)
	assert.Equal(t, SourcePreferred, res.Source)
}

func TestLocate_FallsThroughCandidatesInOrder(t *testing.T) {
	t.Setenv("PUPPETEER_EXECUTABLE_PATH", "")
	t.Setenv("CHROME_BIN", "")
	dir := t.TempDir()
	second := filepath.Join(dir, "b", "chrome")
	third := filepath.Join(dir, "c", "chrome")
	writeExecutable(t, second)
	writeExecutable(t, third)

	res := Locate(filepath.Join(dir, "missing"), []string{
		filepath.Join(dir, "a", "chrome"),
		second,
		third,
	})

	assert.Equal(t, second, res.Path)
	assert.Equal(t, SourceCandidate, res.Source)
	require.Len(t, res.Candidates, 3)
	assert.False(t, res.Candidates[0].Exists)
	assert.False(t, res.Candidates[1].Exists)
	assert.True(t, res.Candidates[2].Exists)
}

func TestLocate_ExpandsGlobs(t *testing.T) {
	t.Setenv("PUPPETEER_EXECUTABLE_PATH", "")
	t.Setenv("CHROME_BIN", "")
	dir := t.TempDir()
	versioned := filepath.Join(dir, "chrome", "linux-130.0.6723.58", "chrome-linux64", "chrome")
	writeExecutable(t, versioned)

	res := Locate("", []string{filepath.Join(dir, "chrome", "linux-*", "chrome-linux64", "chrome")})
	assert.Equal(t, versioned, res.Path)
}

func TestLocate_EnvOverrideComesFirst(t *testing.T) {
	dir := t.TempDir()
	fromEnv := filepath.Join(dir, "env-chrome")
	other := filepath.Join(dir, "other-chrome")
	writeExecutable(t, fromEnv)
	writeExecutable(t, other)
	t.Setenv("PUPPETEER_EXECUTABLE_PATH", "")
	t.Setenv("CHROME_BIN", fromEnv)

	res := Locate("", []string{other})
	assert.Equal(t, fromEnv, res.Path)
}

func TestLocate_NonExecutableIsSkipped(t *testing.T) {
	t.Setenv("PUPPETEER_EXECUTABLE_PATH", "")
	t.Setenv("CHROME_BIN", "")
	dir := t.TempDir()
	plain := filepath.Join(dir, "chrome")
	require.NoError(t, os.WriteFile(plain, []byte("not a browser"), 0o644))

	res := Locate("", []string{plain})
	assert.NotEqual(t, plain, res.Path)
	require.NotEmpty(t, res.Candidates)
	assert.False(t, res.Candidates[0].Exists)
}
