package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const timeDescription = `
active_domain: time
synchronization:
  - initial: {time: 0}
    delay: {time: 0.001}
    active: {time: 0.0005}
    total: {time: 0.002}
    repeats: 3
`

const positionDescription = `
synchronization:
  - initial: {position: 0}
    delay: {position: 0.2}
    active: {position: 0.1}
    total: {position: 0.3}
    repeats: 2
`

const cueDescription = `
synchronization: [{
	initial: time: 0
	active: time: 0.1
	total: time: 0.2
	repeats: 2
}]
`

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
