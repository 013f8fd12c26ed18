package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartoza/aquacheck/internal/nn"
	"github.com/kartoza/aquacheck/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree from an empty working directory so no
// config.toml is picked up.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	model, err := filepath.Abs(filepath.Join("models", "water_quality_rf.yaml"))
	require.NoError(t, err)
	chdir(t, t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--model", model}, args...))
	err = cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "aquacheck dev\n", out)
}

func TestPredictCommand(t *testing.T) {
	out, err := execute(t, "predict",
		"--ph", "7.2", "--turbidity", "1.5", "--nitrate", "4", "--lead", "2", "--oxygen", "7.5")
	require.NoError(t, err)

	var env quality.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, quality.StatusSuccess, env.Status)
	assert.Contains(t, []string{quality.LabelSafe, quality.LabelNotSafe}, env.Prediction)
	assert.True(t, strings.HasSuffix(env.Confidence, "%"))
	assert.Equal(t, []string{quality.FallbackRecommendation}, env.Recommendations)
	require.NotNil(t, env.Details)
	assert.Equal(t, 7.2, env.Details.PH)
}

func TestPredictCommandMissingReadingsDefaultToZero(t *testing.T) {
	out, err := execute(t, "predict", "--ph", "7")
	require.NoError(t, err)

	var env quality.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.NotNil(t, env.Details)
	assert.Zero(t, env.Details.Oxygen)
	assert.Contains(t, env.Recommendations, "Low dissolved oxygen levels. Consider aeration or oxygenation treatment.")
}

func TestPredictCommandValidationError(t *testing.T) {
	out, err := execute(t, "predict", "--ph", "15")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errPredictionFailed))

	var env quality.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, quality.StatusError, env.Status)
	assert.Equal(t, "Invalid input: pH must be between 0 and 14", env.Message)
}

func TestInspectCommand(t *testing.T) {
	out, err := execute(t, "inspect")
	require.NoError(t, err)

	var s nn.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 3, s.Trees)
	assert.Equal(t, []int{0, 1}, s.Classes)
	assert.Equal(t, quality.Parameters[:], s.Features)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"forest.db", "forest.sqlite3", "forest.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			out, err := execute(t, "export", "--out", path)
			require.NoError(t, err)
			assert.Contains(t, out, "wrote "+path)

			f, err := nn.Load(path, quality.Parameters[:])
			require.NoError(t, err)
			assert.Equal(t, 3, f.Summary().Trees)
		})
	}
}

func TestExportCommandRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "export", "--out", filepath.Join(t.TempDir(), "forest.bin"))
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestMissingModelFails(t *testing.T) {
	chdir(t, t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--model", "does-not-exist.yaml", "inspect"})
	assert.ErrorContains(t, cmd.Execute(), "load model")
}
