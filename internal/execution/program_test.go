package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/gauntlet/internal/models"
	"github.com/spboyer/gauntlet/internal/orchestration"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestNewProgramAgent_RequiresCommand(t *testing.T) {
	_, err := NewProgramAgent(models.AgentSpec{})
	require.Error(t, err)

	agent, err := NewProgramAgent(models.AgentSpec{Command: "./agent"})
	require.NoError(t, err)
	require.NotNil(t, agent.Func())
}

func TestProgramAgent_PlainTextOutput(t *testing.T) {
	script := writeScript(t, `echo "hello world"`)
	agent, err := NewProgramAgent(models.AgentSpec{Command: script})
	require.NoError(t, err)

	out, err := agent.Func()(context.Background(), orchestration.AgentContext{
		Item: models.DatasetItem{"input": "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello world", out.Output)
}

func TestProgramAgent_StructuredOutput(t *testing.T) {
	script := writeScript(t, `echo '{"output": "4", "metadata": {"tokens": 12}}'`)
	agent, err := NewProgramAgent(models.AgentSpec{Command: script})
	require.NoError(t, err)

	out, err := agent.Func()(context.Background(), orchestration.AgentContext{})
	require.NoError(t, err)
	require.Equal(t, "4", out.Output)
	require.Equal(t, float64(12), out.Metadata["tokens"])
}

func TestProgramAgent_ReceivesRequestOnStdin(t *testing.T) {
	// The script echoes its stdin back, so the output is the request JSON.
	script := writeScript(t, `cat`)
	agent, err := NewProgramAgent(models.AgentSpec{Command: script})
	require.NoError(t, err)

	out, err := agent.Func()(context.Background(), orchestration.AgentContext{
		Item:     models.DatasetItem{"input": "q"},
		Index:    3,
		RunIndex: 1,
	})
	require.NoError(t, err)
	require.Contains(t, out.Output, `"index":3`)
	require.Contains(t, out.Output, `"run_index":1`)
	require.Contains(t, out.Output, `"input":"q"`)
}

func TestProgramAgent_FailureUsesStderr(t *testing.T) {
	script := writeScript(t, `echo "model unavailable" >&2; exit 1`)
	agent, err := NewProgramAgent(models.AgentSpec{Command: script})
	require.NoError(t, err)

	_, err = agent.Func()(context.Background(), orchestration.AgentContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model unavailable")
}

func TestProgramAgent_EnvPassedThrough(t *testing.T) {
	script := writeScript(t, `echo "$GAUNTLET_TEST_VAR"`)
	agent, err := NewProgramAgent(models.AgentSpec{
		Command: script,
		Env:     []string{"GAUNTLET_TEST_VAR=forty-two"},
	})
	require.NoError(t, err)

	out, err := agent.Func()(context.Background(), orchestration.AgentContext{})
	require.NoError(t, err)
	require.Equal(t, "forty-two", out.Output)
}

func TestParseProgramOutput(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		out := parseProgramOutput([]byte("  plain answer \n"))
		require.Equal(t, "plain answer", out.Output)
	})

	t.Run("structured", func(t *testing.T) {
		out := parseProgramOutput([]byte(`{"output": "x", "data": {"k": 1}}`))
		require.Equal(t, "x", out.Output)
		require.NotNil(t, out.Data)
	})

	t.Run("json that is not an agent output stays raw", func(t *testing.T) {
		out := parseProgramOutput([]byte(`{"answer": "x"}`))
		require.Equal(t, `{"answer": "x"}`, out.Output)
	})
}
