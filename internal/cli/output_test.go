package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tgsync/internal/synch"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"cycles": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeConfiguration, "group 0: total is required", []string{"scan.yaml"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfiguration, resp.Error.Code)
	assert.Equal(t, "group 0: total is required", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "something broke", map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), "Error [E001]: something broke")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeGeneric, "something broke", map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	missing := formatter.Fail("scan.yaml", fmt.Errorf("read: %w", fs.ErrNotExist))
	assert.Equal(t, ExitCommandError, missing.Code)
	assert.Contains(t, buf.String(), "Error [E005]: description not found: scan.yaml")

	buf.Reset()
	bad := formatter.Fail("scan.yaml", synch.NewConfigurationError("group 0: total is required"))
	assert.Equal(t, ExitFailure, bad.Code)
	assert.True(t, synch.IsConfigurationError(bad))
	assert.Contains(t, buf.String(), "Error [E010]:")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "missing")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "failed", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError_Message(t *testing.T) {
	err := WrapExitError(ExitFailure, "playback failed", errors.New("boom"))
	assert.Equal(t, "playback failed: boom", err.Error())
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeConfiguration, errorCode(synch.NewConfigurationError("x")))
	assert.Equal(t, ErrCodeProgramming, errorCode(synch.NewProgrammingError("c", 1, "PreSynchOne")))
	assert.Equal(t, ErrCodeHardwareFault, errorCode(synch.NewHardwareFault("c", 1, "SynchOne", errors.New("x"))))
	assert.Equal(t, ErrCodeGeneric, errorCode(errors.New("x")))
}

func TestNewPrinter_GroupsThousands(t *testing.T) {
	assert.Equal(t, "12,345 events", newPrinter().Sprintf("%d events", 12345))
}
