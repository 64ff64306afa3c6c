package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/pptx_replacer/internal/config"
	"github.com/allanpk716/pptx_replacer/internal/testutil"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlaceholdersCmd(t *testing.T) {
	dir := t.TempDir()
	path := testutil.SimpleDeck("{{title}}", "{{logo}} and {{title}}").WriteFile(t, dir, "deck.pptx")

	out, err := execute(t, "placeholders", path)
	require.NoError(t, err)
	assert.Equal(t, "title\nlogo\n", out)

	out, err = execute(t, "placeholders", "--json", path)
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"title", "logo"}, keys)

	_, err = execute(t, "placeholders", filepath.Join(dir, "missing.pptx"))
	assert.Error(t, err)
}

func TestPlaceholdersCmd_Docx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.docx")
	require.NoError(t, os.WriteFile(path, testutil.Docx(t, "Dear {{name}},", "{{sign}}"), 0o644))

	out, err := execute(t, "placeholders", path)
	require.NoError(t, err)
	assert.Equal(t, "name\nsign\n", out)
}

func TestGenerateCmd(t *testing.T) {
	dir := t.TempDir()
	testutil.SimpleDeck("{{title}}", "Total: $total").WriteFile(t, dir, "deck.pptx")
	job := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(job, []byte(`
template: deck.pptx
output: out/result.pptx
placeholders:
  - key: title
    value: Weekly
  - key: total
    type: INSERT
    value: 42
`), 0o644))

	out, err := execute(t, "generate", job)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ title")
	assert.Contains(t, out, "✓ total")

	pres, err := pptx.Open(filepath.Join(dir, "out", "result.pptx"))
	require.NoError(t, err)
	defer pres.Close()
	var texts []string
	for _, slide := range pres.Slides() {
		for _, shape := range slide.TextShapes() {
			texts = append(texts, shape.Text())
		}
	}
	assert.Equal(t, []string{"Weekly", "Total: 42"}, texts)
}

func TestBatchCmd(t *testing.T) {
	dir := t.TempDir()
	jobs := filepath.Join(dir, "jobs")
	testutil.SimpleDeck("{{title}}").WriteFile(t, jobs, "deck.pptx")
	require.NoError(t, os.WriteFile(filepath.Join(jobs, "a.json"),
		[]byte(`{"template": "deck.pptx", "placeholders": [{"key": "title", "value": "A"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jobs, "b.json"),
		[]byte(`{"template": "missing.pptx", "placeholders": [{"key": "title", "value": "B"}]}`), 0o644))

	out, err := execute(t, "batch", jobs, "-o", filepath.Join(dir, "out"), "-j", "2")
	assert.Error(t, err)
	assert.Contains(t, out, "处理 1 个任务，替换 1 处，失败 1 个")
	assert.FileExists(t, filepath.Join(dir, "out", "a.pptx"))
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"template": "a.pptx", "placeholders": [{"key": "x", "value": "1"}]}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"placeholders": []}`), 0o644))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+good+" (1 个占位符)")

	out, err = execute(t, "validate", good, bad)
	assert.Error(t, err)
	assert.Contains(t, out, "✗ "+bad)
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")

	_, err := execute(t, "init", path, "--kind", "advanced")
	require.NoError(t, err)

	cfg, err := config.NewConfigManager().LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, cfg.Placeholders, 4)
	assert.NotNil(t, cfg.DataSource)

	_, err = execute(t, "init", path)
	assert.Error(t, err)

	_, err = execute(t, "init", path, "--force")
	require.NoError(t, err)
	backups, err := filepath.Glob(filepath.Join(filepath.Dir(path), "job_backup_*.json"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, err = execute(t, "init", path, "--force", "--kind", "fancy")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pptx-replacer ")
	assert.Contains(t, out, "Go:")
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "version"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}
