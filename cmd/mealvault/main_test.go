package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\n", filepath.Join(dir, "data"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestMealAddListShowDelete(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "meal", "add", "--name", "chicken soup", "--weight", "1200", "--calories", "900")
	if err != nil {
		t.Fatalf("meal add: %v", err)
	}
	requireContains(t, out, "Added meal chicken soup")

	out, err = runCLI(t, configPath, "meal", "list")
	if err != nil {
		t.Fatalf("meal list: %v", err)
	}
	requireContains(t, out, "chicken soup")
	requireContains(t, out, "1200")

	out, err = runCLI(t, configPath, "meal", "add", "--name", "", "--weight", "100")
	if err == nil {
		t.Fatalf("expected missing name to fail, got:\n%s", out)
	}
}

func TestFoodAddAndDailyTotal(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, configPath, "food", "add", "--name", "banana", "--weight", "120", "--calories", "105"); err != nil {
		t.Fatalf("food add: %v", err)
	}
	if _, err := runCLI(t, configPath, "food", "add", "--name", "yogurt", "--weight", "150", "--calories", "90"); err != nil {
		t.Fatalf("food add: %v", err)
	}

	out, err := runCLI(t, configPath, "food", "list")
	if err != nil {
		t.Fatalf("food list: %v", err)
	}
	requireContains(t, out, "banana")
	requireContains(t, out, "yogurt")
	requireContains(t, out, "Total: 195 kcal")
}

func TestQueueStatusEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}
