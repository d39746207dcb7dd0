package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	pidFileName    = "smartsched.pid"
	configFileName = "config.yaml"
	timeFormat     = "2006-01-02 15:04"
)

func GetDataDir() (string, error) {
	if envDir := os.Getenv("SMARTSCHED_DATA_DIR"); envDir != "" {
		return envDir, nil
	}
	execPath, err := os.Executable()
	if err != nil {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return filepath.Join(wd, "data"), nil
	}
	execDir := filepath.Dir(execPath)
	return filepath.Join(execDir, "data"), nil
}

func writePIDFile(path string, port int) error {
	content := fmt.Sprintf("%d\n%d\n", os.Getpid(), port)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// readPIDFile returns the daemon pid and its API port.
func readPIDFile(path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid PID file format: %w", err)
	}
	port := 0
	if len(lines) >= 2 {
		port, _ = strconv.Atoi(strings.TrimSpace(lines[1]))
	}
	return pid, port, nil
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeFormat)
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
