package util

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RunPythonScript executes a python3 script and returns its combined
// stdout/stderr. The error is returned alongside whatever output the
// interpreter produced so callers can build a transcript either way.
func RunPythonScript(scriptPath ...string) (string, error) {
	cmd := exec.Command("python3", scriptPath...)
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

// RunPythonCode writes the given source to a temp file and runs it.
func RunPythonCode(code string) (string, error) {
	dir, err := os.MkdirTemp("", "job-script")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, "main.py")
	if err = os.WriteFile(scriptPath, []byte(code), 0o644); err != nil {
		return "", err
	}
	return RunPythonScript(scriptPath)
}
