package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"taskqueue/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	dbPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	return &cliTestEnv{
		configPath: testsupport.WriteConfig(t, cfg),
		dbPath:     cfg.DatabasePath(),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("taskqueue %v: %v\nstdout: %s\nstderr: %s", args, err, out, stderr)
	}
	return out
}

func (e *cliTestEnv) mustRunJSON(t *testing.T, target any, args ...string) {
	t.Helper()
	out := e.mustRun(t, append(args, "--json")...)
	if err := json.Unmarshal([]byte(out), target); err != nil {
		t.Fatalf("decode %v output: %v\n%s", args, err, out)
	}
}

func (e *cliTestEnv) addTask(t *testing.T, args ...string) string {
	t.Helper()
	var resp struct {
		ID string `json:"id"`
	}
	e.mustRunJSON(t, &resp, append([]string{"add"}, args...)...)
	if resp.ID == "" {
		t.Fatalf("add %v returned no id", args)
	}
	return resp.ID
}
