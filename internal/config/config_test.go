package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasTwoAgentsAndSaneTimeouts(t *testing.T) {
	cfg := Default()
	require.Equal(t, 20, cfg.MaxIterations)
	require.Equal(t, 10800, cfg.TimeoutSeconds)
	require.Len(t, cfg.Agents, 2)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingBinary(t *testing.T) {
	cfg := &Config{Agents: []AgentConfig{{Name: "x", Kind: AgentKindClaude}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	cfg := &Config{Agents: []AgentConfig{{Name: "x", Kind: "gemini", Binary: "gemini"}}}
	require.Error(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.TestCmd = "go test ./..."
	require.NoError(t, Save(dir, cfg))
	require.True(t, Exists(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "go test ./...", got.TestCmd)
	require.Equal(t, 20, got.MaxIterations)
	require.Len(t, got.Agents, 2)
}

func TestLoadFillsDefaultsWhenFieldsOmitted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: 0\n"), 0644))

	got, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 20, got.MaxIterations)
	require.Len(t, got.Agents, 2)
}

func TestLoadOrDefaultFallsBackWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := LoadOrDefault(dir)
	require.Equal(t, Default().MaxIterations, cfg.MaxIterations)
}

func TestLoadOrDefaultFallsBackOnInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("agents: [this is not valid: yaml: -"), 0644))

	cfg := LoadOrDefault(dir)
	require.Equal(t, Default().MaxIterations, cfg.MaxIterations)
}

func TestTimeoutNilWhenNonPositive(t *testing.T) {
	cfg := &Config{TimeoutSeconds: 0}
	require.Nil(t, cfg.Timeout())

	cfg.TimeoutSeconds = -5
	require.Nil(t, cfg.Timeout())

	cfg.TimeoutSeconds = 120
	got := cfg.Timeout()
	require.NotNil(t, got)
	require.Equal(t, 120, *got)
}

func TestFindProjectRootWalksUpToConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(root, Default()))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	origWD, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(origWD)
	require.NoError(t, os.Chdir(nested))

	got, err := FindProjectRoot()
	require.NoError(t, err)
	gotResolved, _ := filepath.EvalSymlinks(got)
	rootResolved, _ := filepath.EvalSymlinks(root)
	require.Equal(t, rootResolved, gotResolved)
}

func TestFindProjectRootReturnsStartDirWhenNotFound(t *testing.T) {
	dir := t.TempDir()
	origWD, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(origWD)
	require.NoError(t, os.Chdir(dir))

	got, err := FindProjectRoot()
	require.NoError(t, err)
	gotResolved, _ := filepath.EvalSymlinks(got)
	dirResolved, _ := filepath.EvalSymlinks(dir)
	require.Equal(t, dirResolved, gotResolved)
}
