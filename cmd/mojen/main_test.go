package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mojen/compiler/load"
)

const (
	projectSchema = "../../compiler/load/testdata/project.json"
	invalidSchema = "../../compiler/load/testdata/invalid.yaml"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runCmd(t)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr, "usage: mojen")

	_, _, err = runCmd(t, "compile", projectSchema)
	assert.ErrorContains(t, err, `unknown command "compile"`)

	_, _, err = runCmd(t, "validate")
	assert.ErrorContains(t, err, "validate needs a schema path")
}

func TestRun_Validate(t *testing.T) {
	stdout, _, err := runCmd(t, "validate", projectSchema)
	require.NoError(t, err)
	assert.Equal(t, "3 types ok\n", stdout)

	_, stderr, err := runCmd(t, "validate", invalidSchema)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, stderr, `unknown type "money"`)
	assert.Contains(t, stderr, "4 errors\n")
}

func TestRun_Plan(t *testing.T) {
	stdout, _, err := runCmd(t, "plan", "-op", "soft-delete", projectSchema)
	require.NoError(t, err)
	assert.Contains(t, stdout, "soft-delete (SoftDeleteCascade)\n  Project\n")
	assert.Contains(t, stdout, "    query Tasks where ProjectId\n")
	assert.Contains(t, stdout, "    soft Comment where Task.ProjectId = Id")

	stdout, _, err = runCmd(t, "plan", projectSchema)
	require.NoError(t, err)
	assert.Contains(t, stdout, "delete (DeleteCascade)")
	assert.Contains(t, stdout, "soft-delete (SoftDeleteCascade)")
	assert.NotContains(t, stdout, "restore")

	_, _, err = runCmd(t, "plan", "-op", "purge", projectSchema)
	assert.Error(t, err)
}

func TestRun_Gen(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := runCmd(t, "gen",
		"-target", dir,
		"-features", "cascade/restore",
		"-disable", "cascade/delete",
		projectSchema,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 files")
	assert.FileExists(t, filepath.Join(dir, "soft_delete_cascade.go"))
	assert.FileExists(t, filepath.Join(dir, "restore_cascade.go"))
	assert.NoFileExists(t, filepath.Join(dir, "delete_cascade.go"))

	_, _, err = runCmd(t, "gen", "-features", "cascade/purge", "-target", dir, projectSchema)
	assert.ErrorContains(t, err, "unknown feature")

	_, _, err = runCmd(t, "gen", projectSchema)
	assert.ErrorContains(t, err, "missing target")
}

func TestRun_GenConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "mojen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("target: "+filepath.Join(dir, "out")+"\ndisabled: [cascade/softdelete]\n"), 0o644))

	_, _, err := runCmd(t, "gen", "-config", cfg, projectSchema)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "delete_cascade.go"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "soft_delete_cascade.go"))
}

func TestRun_Snapshot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "project.msgpack")
	_, _, err := runCmd(t, "snapshot", projectSchema, out)
	require.NoError(t, err)

	want, err := load.Load(projectSchema)
	require.NoError(t, err)
	got, err := load.Load(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, _, err = runCmd(t, "snapshot", projectSchema)
	assert.Error(t, err)
}
