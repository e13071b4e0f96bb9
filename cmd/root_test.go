package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/surveygen/internal/buildinfo"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/logger"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	config := fmt.Sprintf(`logging:
  level: error
  console: false
database:
  type: sqlite
  sqlite:
    path: %s
generation:
  questionspersurvey: 20
  questiontypes: [1]
export:
  directory: %s
`, filepath.Join(dir, "surveygen.db"), dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand(&conf.Settings{}, buildinfo.NewContext("1.0.0", "2026-10-01"))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), "surveygen %v: %s", args, out.String())
	return out.String()
}

func TestVersionSkipsConfig(t *testing.T) {
	out := execute(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "surveygen 1.0.0 (built 2026-10-01)\n", out)
}

func TestInitConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surveygen", "config.yaml")

	out := execute(t, "init", "config", path)

	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "questionspersurvey: 20")
}

func TestSurveyWorkflow(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobal(logger.NewDiscardLogger()) })

	dir := t.TempDir()
	config := writeConfig(t, dir)
	images := filepath.Join(dir, "images", "drive")
	require.NoError(t, os.MkdirAll(images, 0o755))
	for _, name := range []string{"21_training.png", "22_training.png", "23_training.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(images, name), nil, 0o600))
	}

	out := execute(t, "--config", config, "init", "db")
	assert.Contains(t, out, "Database ready, 5 diseases")

	out = execute(t, "--config", config, "init", "users", "Ana", "Marko")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Marko")

	out = execute(t, "--config", config, "load", "images", images)
	assert.Contains(t, out, "Found 3, added 3")

	out = execute(t, "--config", config, "generate", "questions")
	assert.Contains(t, out, "Type 1: 3 questions")

	out = execute(t, "--config", config, "generate", "surveys", "--quota", "2")
	assert.Contains(t, out, "Survey 1: 2 questions\n")
	assert.Contains(t, out, "Survey 2: 1 questions (fewer than requested)")
	assert.Contains(t, out, "Created 2 regular surveys")

	out = execute(t, "--config", config, "generate", "surveys", "--quota", "2")
	assert.Contains(t, out, "Created 0 regular surveys")

	exportDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(exportDir, 0o755))
	out = execute(t, "--config", config, "export", "--format", "html", "--dir", exportDir)
	assert.Contains(t, out, "Exported 2 surveys")
	assert.FileExists(t, filepath.Join(exportDir, "survey-1.html"))
	assert.FileExists(t, filepath.Join(exportDir, "survey-2.html"))

	out = execute(t, "--config", config, "show", "survey", "1", "--text")
	assert.Contains(t, out, "== Pitanje 1 ==")

	out = execute(t, "--config", config, "show", "stats")
	assert.Regexp(t, `Questions\s+3`, out)
	assert.Regexp(t, `Regular surveys\s+2`, out)
	assert.Regexp(t, `Respondents\s+2`, out)
}
