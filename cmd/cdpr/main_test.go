package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	planarRobot  = "../../config/robots/planar.yaml"
	spatialRobot = "../../config/robots/spatial.yaml"
)

// runCLI executes the command tree with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestBackwardCommand(t *testing.T) {
	out, _, err := runCLI(t, "backward", planarRobot, "--position", "0,0", "--structure")
	require.NoError(t, err)

	var res []backwardJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "2T", res[0].Pattern)
	require.Len(t, res[0].Chains, 4)
	for _, c := range res[0].Chains {
		assert.InDelta(t, math.Sqrt2, c.Length, 1e-12)
		assert.Nil(t, c.Swivel)
	}
	assert.Len(t, res[0].Structure, 2)
}

func TestBackwardCommandPulleyPlot(t *testing.T) {
	plot := filepath.Join(t.TempDir(), "shapes.png")
	out, _, err := runCLI(t, "backward", spatialRobot, "--algorithm", "pulley",
		"--position", "0.2,0.1,0.1", "--euler", "0,0,0.1", "--plot", plot, "--plane", "xz")
	require.NoError(t, err)

	var res []backwardJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res[0].Chains, 8)
	for _, c := range res[0].Chains {
		require.NotNil(t, c.Wrap)
		assert.Greater(t, *c.Wrap, 0.0)
	}
	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestForwardCommand(t *testing.T) {
	l := math.Hypot(0.7, 0.8)
	m := math.Hypot(1.3, 0.8)
	n := math.Hypot(1.3, 1.2)
	o := math.Hypot(0.7, 1.2)
	lengths := strings.Join([]string{ftoa(l), ftoa(m), ftoa(n), ftoa(o)}, ",")

	out, _, err := runCLI(t, "forward", planarRobot, "--lengths", lengths)
	require.NoError(t, err)
	var p poseJSON
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.InDelta(t, 0.3, p.Position[0], 1e-6)
	assert.InDelta(t, 0.2, p.Position[1], 1e-6)
}

func ftoa(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestForwardCommandRequiresLengths(t *testing.T) {
	_, _, err := runCLI(t, "forward", planarRobot)
	assert.Error(t, err)

	_, _, err = runCLI(t, "forward", planarRobot, "--lengths", "1,x")
	assert.Error(t, err)
}

func TestGridSaveAndReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	png := filepath.Join(dir, "grid.png")

	out, stderr, err := runCLI(t, "--db", dbPath, "-v", "grid", planarRobot,
		"--criterion", "cable-length", "--max-length", "1.55",
		"--axis=-0.9:0.9:7", "--axis=-0.9:0.9:7", "--png", png, "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "saved run")

	var sum struct {
		Samples int `json:"samples"`
		Inside  int `json:"inside"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 49, sum.Samples)
	assert.Positive(t, sum.Inside)
	assert.Less(t, sum.Inside, 49)
	_, err = os.Stat(png)
	require.NoError(t, err)

	out, _, err = runCLI(t, "--db", dbPath, "runs", "list")
	require.NoError(t, err)
	id := regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`).FindString(out)
	require.NotEmpty(t, id, out)
	assert.Contains(t, out, "planar")

	html := filepath.Join(dir, "grid.html")
	_, _, err = runCLI(t, "--db", dbPath, "runs", "report", id, "--html", html)
	require.NoError(t, err)
	body, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CDPR Workspace Grid")

	out, _, err = runCLI(t, "--db", dbPath, "runs", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "grid"`)

	_, _, err = runCLI(t, "--db", dbPath, "runs", "delete", id)
	require.NoError(t, err)
	_, _, err = runCLI(t, "--db", dbPath, "runs", "show", id)
	assert.Error(t, err)
}

func TestHullCommand(t *testing.T) {
	html := filepath.Join(t.TempDir(), "hull.html")
	out, _, err := runCLI(t, "hull", planarRobot, "--max-length", "1.8", "--html", html)
	require.NoError(t, err)

	var sum struct {
		Rays       int     `json:"rays"`
		RadiusMean float64 `json:"radius_mean"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.GreaterOrEqual(t, sum.Rays, 8)
	assert.Greater(t, sum.RadiusMean, 0.3)
	_, err = os.Stat(html)
	require.NoError(t, err)
}

func TestWorkspaceFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown archetype", []string{"grid", planarRobot, "--axis=0:1:2", "--axis=0:1:2", "--archetype", "bogus"}},
		{"unknown criterion", []string{"grid", planarRobot, "--axis=0:1:2", "--axis=0:1:2", "--criterion", "bogus"}},
		{"bad axis", []string{"grid", planarRobot, "--axis=0:1"}},
		{"missing robot", []string{"hull", "missing.yaml"}},
		{"fractional sweep steps", []string{"grid", planarRobot, "--axis=0:1:2", "--axis=0:1:2", "--archetype", "dexterous", "--sweep-max", "0,0,0.2", "--sweep-steps", "1,1,2.7"}},
		{"rotation and euler", []string{"backward", planarRobot, "--rotation", "0,0,1", "--euler", "0,0,1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestGridDexterousSweep(t *testing.T) {
	out, _, err := runCLI(t, "grid", planarRobot, "--archetype", "dexterous",
		"--sweep-max", "0,0,0.2", "--sweep-steps", "1,1,3", "--axis=-0.5:0.5:3", "--axis=-0.5:0.5:3")
	require.NoError(t, err)
	var sum struct {
		Samples int `json:"samples"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 9, sum.Samples)
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "m.db")

	out, _, err := runCLI(t, "--db", dbPath, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 0\n")

	out, _, err = runCLI(t, "--db", dbPath, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2\n")

	out, _, err = runCLI(t, "--db", dbPath, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1\n")

	out, _, err = runCLI(t, "--db", dbPath, "migrate", "to", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "dirty: false")

	_, _, err = runCLI(t, "--db", dbPath, "migrate", "to", "x")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	_, _, err := runCLI(t, "--config", "../../config/solver.defaults.json", "backward", planarRobot)
	require.NoError(t, err)

	_, _, err = runCLI(t, "--config", "missing.json", "backward", planarRobot)
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cdpr "))
}
