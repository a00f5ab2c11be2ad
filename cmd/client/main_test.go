package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runKeys(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func bindingLine(out, action string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[1] == action {
			return line
		}
	}
	return ""
}

func TestKeysDefault(t *testing.T) {
	out, err := runKeys(t, "keys")
	require.NoError(t, err)

	assert.Equal(t, []string{"Alt+V", "paste", "claimed"}, strings.Fields(bindingLine(out, "paste")))
	assert.Equal(t, []string{"Ctrl+C", "copy", "passthrough"}, strings.Fields(bindingLine(out, "copy")))
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
}

func TestKeysWithKeymapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bindings:
  - keys: Alt+Tab
    action: cycle-window
  - keys: Ctrl+V
    action: paste
`), 0o644))

	for _, args := range [][]string{
		{"keys", "--keymap", path},
		{"--keymap", path, "keys"},
		{"keys", "-k", path},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, err := runKeys(t, args...)
			require.NoError(t, err)
			assert.Equal(t, []string{"Alt+Tab", "cycle-window", "claimed"}, strings.Fields(bindingLine(out, "cycle-window")))
			assert.Equal(t, []string{"Ctrl+V", "paste", "claimed"}, strings.Fields(bindingLine(out, "paste")))
		})
	}
}

func TestKeysBadKeymap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bindings:\n  - keys: Ctrl+T\n    action: copy\n"), 0o644))

	_, err := runKeys(t, "keys", "--keymap", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load keymap")
	assert.Contains(t, err.Error(), "already bound to new-window")
}
