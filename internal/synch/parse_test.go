package synch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
active_domain: time
direction: 1
synchronization:
  - initial: {time: 0}
    delay: {time: 0.1}
    active: {time: 0.1, position: 1}
    total: {time: 0.2, position: 2}
    repeats: 10
`

func TestParseYAML(t *testing.T) {
	doc, err := ParseYAML([]byte(yamlDoc))
	require.NoError(t, err)

	require.Len(t, doc.Synchronization, 1)
	g := doc.Synchronization[0]
	assert.Equal(t, 10, g.Repeats)
	assert.Equal(t, 0.1, *g.Delay.Time)
	assert.Equal(t, 2.0, *g.Total.Position)
	assert.Nil(t, g.Delay.Position)

	active, passive, err := doc.Domains()
	require.NoError(t, err)
	assert.Equal(t, DomainTime, active)
	assert.Equal(t, DomainDefault, passive)
}

func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("synchronization: []\nspeed: 3\n"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestParseYAML_NegativeRepeats(t *testing.T) {
	_, err := ParseYAML([]byte(`
synchronization:
  - active: {time: 0.1}
    total: {time: 0.2}
    repeats: -2
`))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestParseYAML_BadDirection(t *testing.T) {
	_, err := ParseYAML([]byte("direction: 2\nsynchronization: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direction must be 1 or -1")
}

func TestParseJSON(t *testing.T) {
	doc, err := ParseJSON([]byte(`{
		"direction": -1,
		"passive_domain": "position",
		"synchronization": [
			{"active": {"position": -0.1}, "total": {"position": -0.2}, "repeats": 10}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, -1, doc.Direction)
	assert.Equal(t, -0.2, *doc.Synchronization[0].Total.Position)

	_, passive, err := doc.Domains()
	require.NoError(t, err)
	assert.Equal(t, DomainPosition, passive)
}

func TestParseCUE(t *testing.T) {
	doc, err := ParseCUE([]byte(`
direction: -1
synchronization: [{
	active: position: -0.1
	total: position:  -0.2
	repeats: 10
}]
`), "scan.cue")
	require.NoError(t, err)
	require.Len(t, doc.Synchronization, 1)
	assert.Equal(t, 10, doc.Synchronization[0].Repeats)
	assert.Equal(t, -0.1, *doc.Synchronization[0].Active.Position)
	assert.Equal(t, -1, doc.Direction)
}

func TestParseCUE_SchemaViolation(t *testing.T) {
	_, err := ParseCUE([]byte(`
synchronization: [{
	active: time: 0.1
	total: time: 0.2
	repeats: -1
}]
`), "bad.cue")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestParseCUE_MissingTotal(t *testing.T) {
	_, err := ParseCUE([]byte(`
synchronization: [{
	active: time: 0.1
	repeats: 1
}]
`), "bad.cue")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "scan.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0644))
	doc, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 10, doc.Synchronization.TotalRepeats())

	txtPath := filepath.Join(dir, "scan.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(yamlDoc), 0644))
	_, err = LoadFile(txtPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported description format")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
