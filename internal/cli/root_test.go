package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// ledgerEnv isolates a test from the developer's environment and points the
// durable backends at temp dirs.
func ledgerEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MYCOLEDGER_STORAGE_DRIVER", "sqlite")
	t.Setenv("MYCOLEDGER_STORAGE_SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("MYCOLEDGER_BLOB_DRIVER", "fs")
	t.Setenv("MYCOLEDGER_BLOB_FS_ROOT", filepath.Join(dir, "blobs"))
	t.Setenv("MYCOLEDGER_LOG_LEVEL", "error")
	t.Setenv("MYCOLEDGER_POLICY_MODE", "allow_all")
	t.Setenv("MYCOLEDGER_CALLER", "")
	t.Setenv("MYCOLEDGER_METRICS_TRACE_PATH", "")
	t.Setenv("MYCOLEDGER_METRICS_AUDIT_PATH", "")
	return dir
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func runJSON(t *testing.T, out any, args ...string) {
	t.Helper()
	res := run(t, append([]string{"--format", FormatJSON}, args...)...)
	require.Equal(t, ExitSuccess, res.code, "stderr: %s", res.stderr)
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &envelope), res.stdout)
	require.Equal(t, "ok", envelope.Status)
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func seedPacificNorthwest(t *testing.T) {
	t.Helper()
	runJSON(t, nil, "--caller", "mycologist1", "network", "establish",
		"--name", "Pacific Northwest Forest Network",
		"--lat", "47600", "--lon=-122330", "--area", "1000",
		"--species", "Pseudotsuga menziesii", "--fungal-count", "15")
	runJSON(t, nil, "tree", "register", "--network", "1",
		"--species", "Pseudotsuga menziesii", "--age", "45", "--diameter", "60",
		"--lat", "47605", "--lon=-122335")
	runJSON(t, nil, "tree", "health", "1", "--status", "healthy",
		"--connections", "25", "--carbon", "150", "--uptake", "85")
	runJSON(t, nil, "--caller", "mycologist1", "inoculation", "perform", "--network", "1",
		"--species", "Rhizopogon vinicolor", "--method", "soil injection",
		"--spores", "1000000", "--area", "100")
	runJSON(t, nil, "--caller", "mycologist1", "inoculation", "success-rate", "1", "78")
	runJSON(t, nil, "carbon", "record", "--network", "1",
		"--total", "50000", "--rate", "1200", "--soil", "30000", "--biomass", "20000")
}

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	for _, flag := range []string{"config", "format", "verbose", "caller", "storage", "db"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"network", "tree", "inoculation", "carbon", "metrics", "archive", "serve-metrics"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	ledgerEnv(t)
	res := run(t, "--format", "xml", "network", "get", "1")
	assert.Equal(t, ExitInvalidInput, res.code)
	assert.Contains(t, res.stderr, "invalid format")
}

func TestPacificNorthwestThroughCLI(t *testing.T) {
	ledgerEnv(t)
	seedPacificNorthwest(t)

	var network struct {
		ID             uint64 `json:"id"`
		CarbonCapacity int64  `json:"carbon_capacity"`
		Steward        string `json:"steward"`
	}
	runJSON(t, &network, "network", "get", "1")
	assert.Equal(t, uint64(1), network.ID)
	assert.Equal(t, int64(50000), network.CarbonCapacity)
	assert.Equal(t, "mycologist1", network.Steward)

	var score Score
	runJSON(t, &score, "metrics", "health", "1")
	assert.Equal(t, Score{NetworkID: 1, Metric: "health_score", Value: 92}, score)
	runJSON(t, &score, "metrics", "efficiency", "1")
	assert.Equal(t, Score{NetworkID: 1, Metric: "carbon_efficiency", Value: 50}, score)

	var funded struct {
		TotalFunding int64 `json:"total_funding"`
	}
	runJSON(t, &funded, "--caller", "funder", "network", "fund", "1", "500000")
	assert.Equal(t, int64(500000), funded.TotalFunding)
}

func TestTextOutput(t *testing.T) {
	ledgerEnv(t)
	seedPacificNorthwest(t)

	res := run(t, "network", "get", "1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Network 1: Pacific Northwest Forest Network")
	assert.Contains(t, res.stdout, "50,000")

	res = run(t, "--format", FormatYAML, "metrics", "efficiency", "1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "status: ok")
	assert.Contains(t, res.stdout, "value: 50")
}

func TestFailureExitCodes(t *testing.T) {
	ledgerEnv(t)
	seedPacificNorthwest(t)

	tests := []struct {
		name string
		args []string
		code int
		kind string
	}{
		{"missing network", []string{"network", "get", "9"}, ExitNotFound, "not_found"},
		{"dangling tree", []string{"tree", "register", "--network", "9", "--species", "Thuja plicata"}, ExitNotFound, "not_found"},
		{"density out of range", []string{"network", "density", "1", "101"}, ExitInvalidInput, "invalid_input"},
		{"zero funding", []string{"network", "fund", "1", "0"}, ExitInvalidInput, "invalid_input"},
		{"bad id", []string{"tree", "get", "abc"}, ExitInvalidInput, "invalid_input"},
		{"unknown health status", []string{"tree", "health", "1", "--status", "thriving"}, ExitInvalidInput, "invalid_input"},
		{"unbalanced carbon", []string{"carbon", "record", "--network", "1", "--total", "10", "--soil", "4", "--biomass", "4"}, ExitInvalidInput, "invalid_input"},
		{"unknown flag", []string{"network", "get", "1", "--nope"}, ExitInvalidInput, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, append([]string{"--format", FormatJSON}, tt.args...)...)
			assert.Equal(t, tt.code, res.code, res.stderr)
			var resp Response
			require.NoError(t, json.Unmarshal([]byte(res.stderr), &resp), res.stderr)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Error.Kind)
		})
	}
}

func TestStewardPolicyThroughCLI(t *testing.T) {
	ledgerEnv(t)
	seedPacificNorthwest(t)
	t.Setenv("MYCOLEDGER_POLICY_MODE", "steward")

	res := run(t, "network", "fund", "1", "100")
	assert.Equal(t, ExitUnauthorized, res.code, "anonymous funding: %s", res.stderr)

	res = run(t, "--caller", "mycologist2", "network", "fund", "1", "100")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)

	res = run(t, "--caller", "mycologist2", "inoculation", "success-rate", "1", "90")
	assert.Equal(t, ExitUnauthorized, res.code, res.stderr)

	res = run(t, "--caller", "mycologist1", "inoculation", "success-rate", "1", "90")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
}

func TestStorageFlagOverridesEnv(t *testing.T) {
	dir := ledgerEnv(t)
	db := filepath.Join(dir, "other.db")

	runJSON(t, nil, "--db", db, "network", "establish", "--name", "Boreal", "--area", "10")
	res := run(t, "network", "get", "1")
	assert.Equal(t, ExitNotFound, res.code, "default database should be untouched")
	runJSON(t, nil, "--db", db, "network", "get", "1")

	res = run(t, "--storage", "memory", "network", "get", "1")
	assert.Equal(t, ExitNotFound, res.code)
}

func TestAuditPathRecordsOperations(t *testing.T) {
	dir := ledgerEnv(t)
	auditPath := filepath.Join(dir, "audit.jsonl")
	t.Setenv("MYCOLEDGER_METRICS_AUDIT_PATH", auditPath)

	runJSON(t, nil, "--caller", "mycologist1", "network", "establish", "--name", "Boreal", "--area", "10")
	res := run(t, "network", "fund", "7", "100")
	require.Equal(t, ExitNotFound, res.code, res.stderr)

	f, err := os.Open(auditPath)
	require.NoError(t, err)
	defer f.Close()

	type entry struct {
		Operation string `json:"operation"`
		EntityID  uint64 `json:"entity_id"`
		Caller    string `json:"caller"`
		Status    string `json:"status"`
		Error     string `json:"error"`
	}
	var entries []entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, entry{Operation: "establish_network", EntityID: 1, Caller: "mycologist1", Status: "success"}, entries[0])
	assert.Equal(t, "fund_network", entries[1].Operation)
	assert.Equal(t, "error", entries[1].Status)
	assert.NotEmpty(t, entries[1].Error)
}
