package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const twoTrials = `
experiments:
  - name: mnist
    direction: maximize
    trials:
      - params: [{name: lr, value: 0.1, distribution: {type: float, low: 0.001, high: 1}}]
        value: 0.8
      - params: [{name: lr, value: 0.2, distribution: {type: float, low: 0.001, high: 1}}]
        value: 0.9
`

// tmEnv isolates a test from the caller's TRIALMEM_* variables and returns
// an empty config file to pass via --config.
func tmEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("TRIALMEM_JOURNAL", "")
	t.Setenv("TRIALMEM_LOG_LEVEL", "")
	t.Setenv("TRIALMEM_LOG_FORMAT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTM(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runTM(t, "version")
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	if strings.TrimSpace(out) != "tm "+version {
		t.Fatalf("version output: got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runTM(t, "frobnicate")
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "tm: ") {
		t.Fatalf("stderr should carry the tm prefix, got %q", stderr)
	}
}

func TestRun_RequiresScenarioArg(t *testing.T) {
	cfg := tmEnv(t)
	if code, _, _ := runTM(t, "--config", cfg, "run"); code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
}

func TestRun_MissingScenario(t *testing.T) {
	cfg := tmEnv(t)
	code, _, stderr := runTM(t, "--config", cfg, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(stderr, "read scenario") {
		t.Fatalf("stderr: got %q", stderr)
	}
}

func TestRun_Text(t *testing.T) {
	cfg := tmEnv(t)
	code, out, stderr := runTM(t, "--config", cfg, "run", writeScenario(t, twoTrials))
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr)
	}
	want := "[0] mnist direction=MAXIMIZE trials=2 best=#1 value=0.9 params=lr=0.2\n"
	if out != want {
		t.Fatalf("output:\ngot  %q\nwant %q", out, want)
	}
}

func TestRun_JSON(t *testing.T) {
	cfg := tmEnv(t)
	code, out, stderr := runTM(t, "--config", cfg, "--json", "run", writeScenario(t, twoTrials))
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr)
	}
	var got struct {
		Count       int `json:"count"`
		Experiments []struct {
			Name      string `json:"name"`
			Direction string `json:"direction"`
			NTrials   int    `json:"n_trials"`
			BestTrial struct {
				Number int     `json:"number"`
				Value  float64 `json:"value"`
			} `json:"best_trial"`
		} `json:"experiments"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Count != 1 || len(got.Experiments) != 1 {
		t.Fatalf("count: got %d/%d, want 1", got.Count, len(got.Experiments))
	}
	e := got.Experiments[0]
	if e.Name != "mnist" || e.Direction != "MAXIMIZE" || e.NTrials != 2 {
		t.Fatalf("summary: got %+v", e)
	}
	if e.BestTrial.Number != 1 || e.BestTrial.Value != 0.9 {
		t.Fatalf("best trial: got %+v", e.BestTrial)
	}
}

func TestRun_EmptyScenario(t *testing.T) {
	cfg := tmEnv(t)
	code, out, _ := runTM(t, "--config", cfg, "run", writeScenario(t, "experiments: []\n"))
	if code != 0 || out != "no experiments\n" {
		t.Fatalf("got code=%d out=%q", code, out)
	}
}

func TestRun_ReplayErrorExitsNonZero(t *testing.T) {
	cfg := tmEnv(t)
	code, _, stderr := runTM(t, "--config", cfg, "run", writeScenario(t, "experiments: [{name: a}, {name: a}]\n"))
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(stderr, "already exists") {
		t.Fatalf("stderr should name the duplicate, got %q", stderr)
	}
}

func TestRunThenLog(t *testing.T) {
	cfg := tmEnv(t)
	db := filepath.Join(t.TempDir(), "journal", "runs.db")

	code, out, stderr := runTM(t, "--config", cfg, "--journal", db, "run", writeScenario(t, twoTrials))
	if code != 0 {
		t.Fatalf("run: exit code %d, stderr=%s", code, stderr)
	}
	if !strings.Contains(out, "journal: run ") {
		t.Fatalf("run output should name the journal run, got %q", out)
	}

	code, out, stderr = runTM(t, "--config", cfg, "--journal", db, "--json", "log", "--limit", "1000")
	if code != 0 {
		t.Fatalf("log: exit code %d, stderr=%s", code, stderr)
	}
	var logged struct {
		Count  int `json:"count"`
		Events []struct {
			RunID string `json:"run_id"`
			Seq   uint64 `json:"seq"`
			Op    string `json:"op"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(out), &logged); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	// create + direction, then per trial: create, param, value, state, best.
	if logged.Count != 12 {
		t.Fatalf("event count: got %d, want 12", logged.Count)
	}
	if logged.Events[0].Op != "create_experiment" || logged.Events[1].Op != "set_direction" {
		t.Fatalf("first ops: got %s, %s", logged.Events[0].Op, logged.Events[1].Op)
	}

	code, out, _ = runTM(t, "--config", cfg, "--journal", db, "log", "--run", logged.Events[0].RunID)
	if code != 0 {
		t.Fatalf("log --run: exit code %d", code)
	}
	if n := strings.Count(out, "\n"); n != 12 {
		t.Fatalf("log --run lines: got %d, want 12\n%s", n, out)
	}
	if !strings.Contains(out, "best_trial_changed") {
		t.Fatalf("text log should list best_trial_changed:\n%s", out)
	}

	code, out, _ = runTM(t, "--config", cfg, "--journal", db, "log", "--since", "12")
	if code != 0 || out != "no events\n" {
		t.Fatalf("log --since past the end: code=%d out=%q", code, out)
	}
}

func TestLog_JournalFromEnv(t *testing.T) {
	cfg := tmEnv(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	t.Setenv("TRIALMEM_JOURNAL", db)

	if code, _, stderr := runTM(t, "--config", cfg, "run", writeScenario(t, twoTrials)); code != 0 {
		t.Fatalf("run: %s", stderr)
	}
	code, out, _ := runTM(t, "--config", cfg, "log", "--limit", "2")
	if code != 0 {
		t.Fatalf("log: exit code %d", code)
	}
	if n := strings.Count(out, "\n"); n != 2 {
		t.Fatalf("limit 2: got %d lines\n%s", n, out)
	}
}

func TestLog_NoJournal(t *testing.T) {
	cfg := tmEnv(t)
	code, _, stderr := runTM(t, "--config", cfg, "log")
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(stderr, "no journal configured") {
		t.Fatalf("stderr: got %q", stderr)
	}
}

func TestLog_MissingJournalFile(t *testing.T) {
	cfg := tmEnv(t)
	db := filepath.Join(t.TempDir(), "absent.db")
	if code, _, _ := runTM(t, "--config", cfg, "--journal", db, "log"); code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if _, err := os.Stat(db); err == nil {
		t.Fatal("log must not create a journal file")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := tmEnv(t)
	code, _, _ := runTM(t, "--config", cfg, "--log-level", "loud", "run", writeScenario(t, twoTrials))
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	tmEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if code, _, _ := runTM(t, "--config", missing, "run", writeScenario(t, twoTrials)); code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
}

func TestDebugLogsGoToStderr(t *testing.T) {
	cfg := tmEnv(t)
	code, out, stderr := runTM(t, "--config", cfg, "--log-level", "debug", "run", writeScenario(t, twoTrials))
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if strings.Contains(out, "level=") {
		t.Fatalf("logs leaked into stdout: %q", out)
	}
	if !strings.Contains(stderr, "experiment replayed") {
		t.Fatalf("stderr should carry debug logs, got %q", stderr)
	}
}

func TestFormatParams_Sorted(t *testing.T) {
	got := formatParams(map[string]any{"b": 2, "a": "x", "c": 0.5})
	if got != "a=x,b=2,c=0.5" {
		t.Fatalf("formatParams: got %q", got)
	}
}
