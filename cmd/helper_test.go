package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// createTempFile writes content into a new file of a temporary directory.
func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// captureOutput redirects the command output to a buffer, with plain
// markdown, for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	oldStdout, oldPlain := stdout, *plain
	stdout, *plain = &out, true
	t.Cleanup(func() { stdout, *plain = oldStdout, oldPlain })
	return &out
}

const everydayCSV = `Date,Description,Amount
01/03/2024,Transfer to savings,-500.00
02/03/2024,Coffee shop,-4.50
`

const savingsCSV = `Date,Transaction Description,Amount
02/03/2024,Transfer from everyday,500.00
05/03/2024,Bank interest,1.20
`
