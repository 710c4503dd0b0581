package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-ir/internal/auth"
	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/logging"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeTestConfig writes a config using the simulated driver with MQTT and
// InfluxDB disabled. apiPort 0 disables the HTTP surface.
func writeTestConfig(t *testing.T, apiPort int, secret string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	apiEnabled := apiPort != 0
	if !apiEnabled {
		apiPort = 8080
	}
	content := fmt.Sprintf(`
site:
  device_id: test-ir
database:
  path: %q
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
influxdb:
  enabled: false
api:
  enabled: %t
  host: "127.0.0.1"
  port: %d
logging:
  level: error
  format: text
  output: stderr
security:
  jwt:
    secret: %q
ir:
  driver: simulated
  poll_interval_ms: 5
`, filepath.Join(dir, "ir.db"), apiEnabled, apiPort, secret)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// writeTestConfigAt writes an offline config pointing at an existing database.
func writeTestConfigAt(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
site:
  device_id: test-ir
database:
  path: %q
mqtt:
  enabled: false
api:
  enabled: false
ir:
  driver: simulated
`, dbPath)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// runCLI runs the app with args after the program name.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newCLIApp(&out).RunContext(context.Background(), append([]string{"graylogic-ir"}, args...))
	return out.String(), err
}

func TestCLI_InvalidConfig(t *testing.T) {
	_, err := runCLI(t, "--config", "/nonexistent/config.yaml", "commands", "list")
	if err == nil {
		t.Fatal("commands list should fail with a missing config file")
	}
}

func TestCLI_CommandsLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t, 0, "")

	out, err := runCLI(t, "-c", cfgPath, "commands", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Errorf("empty list = %q, want {}", out)
	}

	importPath := filepath.Join(t.TempDir(), "codes.json")
	doc := `{"tv_power":[9000,4500,560,560],"fan":[1200,600],"broken":[]}`
	if err := os.WriteFile(importPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, "-c", cfgPath, "commands", "import", "--path", importPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var result struct {
		Imported int      `json:"imported"`
		Skipped  []string `json:"skipped"`
		Total    int      `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("import output %q: %v", out, err)
	}
	if result.Imported != 2 || result.Total != 2 || len(result.Skipped) != 1 {
		t.Errorf("import result = %+v", result)
	}

	if _, err := runCLI(t, "-c", cfgPath, "commands", "rename", "fan", "ceiling_fan"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := runCLI(t, "-c", cfgPath, "commands", "delete", "tv_power"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	out, err = runCLI(t, "-c", cfgPath, "commands", "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var exported map[string][]uint32
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("export output %q: %v", out, err)
	}
	if len(exported) != 1 || len(exported["ceiling_fan"]) != 2 {
		t.Errorf("exported = %v", exported)
	}

	if _, err := runCLI(t, "-c", cfgPath, "commands", "delete", "missing"); err == nil {
		t.Error("deleting an unknown command should fail")
	}
	if _, err := runCLI(t, "-c", cfgPath, "commands", "rename", "only_one"); err == nil {
		t.Error("rename with one argument should fail")
	}

	out, err = runCLI(t, "-c", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var hist struct {
		Total int `json:"total"`
		Logs  []struct {
			Action string `json:"action"`
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"logs"`
	}
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("history output %q: %v", out, err)
	}
	if hist.Total != 2 {
		t.Fatalf("history total = %d, want 2 (failed edits are not recorded)", hist.Total)
	}
	want := []struct{ action, name string }{{"delete", "tv_power"}, {"rename", "ceiling_fan"}}
	for i, w := range want {
		got := hist.Logs[i]
		if got.Action != w.action || got.Name != w.name || got.Source != "cli" {
			t.Errorf("history[%d] = %+v, want %s %s from cli", i, got, w.action, w.name)
		}
	}
}

func TestCLI_ExportToFile(t *testing.T) {
	cfgPath := writeTestConfig(t, 0, "")
	importPath := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(importPath, []byte(`{"b":[1,2],"a":[3]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "-c", cfgPath, "commands", "import", "-p", importPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.json")
	if _, err := runCLI(t, "-c", cfgPath, "commands", "export", "-p", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"b":[1,2],"a":[3]}` {
		t.Errorf("exported file = %s, want insertion order kept", got)
	}
}

func TestCLI_ProvisionAndReset(t *testing.T) {
	cfgPath := writeTestConfig(t, 0, "")

	if _, err := runCLI(t, "-c", cfgPath, "provision"); err == nil {
		t.Error("provision without --ssid should fail")
	}
	out, err := runCLI(t, "-c", cfgPath, "provision", "--ssid", "home", "--pass", "secret")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if !strings.Contains(out, "Provisioned home") {
		t.Errorf("provision output = %q", out)
	}

	importPath := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(importPath, []byte(`{"tv":[100,200]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "-c", cfgPath, "commands", "import", "-p", importPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, err := runCLI(t, "-c", cfgPath, "reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err = runCLI(t, "-c", cfgPath, "commands", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Errorf("list after reset = %q, want {}", out)
	}
}

func TestCLI_Token(t *testing.T) {
	cfgPath := writeTestConfig(t, 0, testSecret)

	out, err := runCLI(t, "-c", cfgPath, "token", "--subject", "home-assistant", "--ttl", "5m")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ParseToken(strings.TrimSpace(out), testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "home-assistant" || !claims.HasScope(auth.ScopeControl) {
		t.Errorf("claims = %+v", claims)
	}

	noSecret := writeTestConfig(t, 0, "")
	if _, err := runCLI(t, "-c", noSecret, "token", "-s", "x"); err == nil {
		t.Error("token without a configured secret should fail")
	}
}

type recordedOutcomes struct {
	outcomes []influxdb.Outcome
}

func (r *recordedOutcomes) WriteOutcome(o influxdb.Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func TestOutcomeRecorder(t *testing.T) {
	w := &recordedOutcomes{}
	rec := outcomeRecorder{client: w, deviceID: "ir-001"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec.Notify(dispatch.Event{Action: dispatch.ActionLearn, Kind: dispatch.KindAccepted, Name: "tv", Time: now})
	rec.Notify(dispatch.Event{
		Action:     dispatch.ActionLearn,
		Source:     dispatch.SourceHTTP,
		Kind:       dispatch.KindOK,
		Name:       "tv",
		Samples:    67,
		DurationMs: 1500,
		Time:       now,
	})

	if len(w.outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1 (accepted skipped)", len(w.outcomes))
	}
	want := influxdb.Outcome{
		DeviceID: "ir-001",
		Action:   "learn",
		Source:   "http",
		Kind:     "ok",
		Name:     "tv",
		Samples:  67,
		Duration: 1500 * time.Millisecond,
		Time:     now,
	}
	if w.outcomes[0] != want {
		t.Errorf("outcome = %+v, want %+v", w.outcomes[0], want)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func httpBody(t *testing.T, method, url string, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestServe_LearnSendAndRestart(t *testing.T) {
	port := freePort(t)
	cfg, err := config.Load(writeTestConfig(t, port, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logging.Discard()) }()

	waitFor(t, 5*time.Second, func() bool {
		status, _ := httpBody(t, http.MethodGet, base+"/api/v1/health", "")
		return status == http.StatusOK
	})

	status, body := httpBody(t, http.MethodGet, base+"/learn?name=tv_power", "")
	if status != http.StatusOK {
		t.Fatalf("learn status = %d body %q", status, body)
	}

	status, body = httpBody(t, http.MethodPost, base+"/api/v1/dev/frame", `{"ticks":[180,90,11,11,11,34]}`)
	if status != http.StatusAccepted {
		t.Fatalf("inject status = %d body %q", status, body)
	}

	waitFor(t, 5*time.Second, func() bool {
		_, list := httpBody(t, http.MethodGet, base+"/list", "")
		return strings.Contains(list, "tv_power")
	})

	status, body = httpBody(t, http.MethodGet, base+"/send?name=tv_power", "")
	if status != http.StatusOK || !strings.Contains(body, "tv_power") {
		t.Errorf("send status = %d body %q", status, body)
	}

	status, _ = httpBody(t, http.MethodGet, base+"/send?name=unknown", "")
	if status != http.StatusNotFound {
		t.Errorf("send unknown status = %d", status)
	}

	status, _ = httpBody(t, http.MethodGet, base+"/reset", "")
	if status != http.StatusOK {
		t.Errorf("reset status = %d", status)
	}

	select {
	case err := <-done:
		if !errors.Is(err, errRestart) {
			t.Errorf("serve() = %v, want errRestart", err)
		}
	case <-ctx.Done():
		t.Fatal("serve did not restart after reset")
	}

	// The history outlives the reset.
	cfgPath := writeTestConfigAt(t, cfg.Database.Path)
	out, err := runCLI(t, "-c", cfgPath, "history", "--action", "send")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var hist struct {
		Total int `json:"total"`
		Logs  []struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"logs"`
	}
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("history output %q: %v", out, err)
	}
	if hist.Total != 2 || hist.Logs[0].Kind != "not_found" || hist.Logs[1].Name != "tv_power" {
		t.Errorf("history = %+v", hist)
	}
}

func TestServe_ShutdownOnCancel(t *testing.T) {
	cfg, err := config.Load(writeTestConfig(t, 0, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logging.Discard()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
