//go:build integration

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// buildPercyBinary compiles the command into a temporary directory.
func buildPercyBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "percy")
	t.Log("Building percy binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build percy: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("command did not run: %v", err)
	}
	return exitErr.ExitCode()
}

func TestBinary_HydrateExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	binary := buildPercyBinary(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	writeFiles(t, good, map[string]string{
		"environments.yaml": "[dev, prod]\n",
		"api.yaml":          apiYAML,
	})
	mixed := filepath.Join(dir, "mixed")
	writeFiles(t, mixed, map[string]string{
		"api.yaml":    "{a: 1}",
		"broken.yaml": "default: {a: [1\n",
	})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"clean run", []string{"hydrate", "--root", good, "--out", filepath.Join(dir, "out1")}, 0},
		{"failed application", []string{"hydrate", "--root", mixed, "--out", filepath.Join(dir, "out2")}, 2},
		{"missing flags", []string{"hydrate"}, 1},
		{"bad format", []string{"hydrate", "--root", good, "--out", filepath.Join(dir, "out3"), "--format", "toml"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binary, tt.args...)
			output, err := cmd.CombinedOutput()
			if got := exitCode(t, err); got != tt.want {
				t.Errorf("exit code = %d, want %d\nOutput: %s", got, tt.want, output)
			}
		})
	}

	data, err := os.ReadFile(filepath.Join(dir, "out1", "dev", "api.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"https://example.com/dev"`) {
		t.Errorf("dev output = %s", data)
	}
}

func TestBinary_WatchServesProbes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	binary := buildPercyBinary(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeFiles(t, in, map[string]string{"api.yaml": "{a: 1}"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const addr = "127.0.0.1:18091"
	cmd := exec.CommandContext(ctx, binary, "watch",
		"--root", in, "--out", filepath.Join(dir, "out"),
		"--metrics", "--metrics-listen", addr)
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start watch: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	if !waitForStatus("http://"+addr+"/readyz", http.StatusOK, 10*time.Second) {
		t.Fatal("readiness probe never passed")
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `percy_watch_triggers_total{trigger="initial"} 1`) {
		t.Errorf("metrics missing initial trigger:\n%s", body)
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	if code := exitCode(t, cmd.Wait()); code != 0 {
		t.Errorf("watch exit code = %d, want 0", code)
	}
}

// waitForStatus polls url until it answers with code.
func waitForStatus(url string, code int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == code {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
