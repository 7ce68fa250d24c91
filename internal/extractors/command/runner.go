// Package command runs external tools (poppler, tesseract) used for text
// extraction, behind an interface so tests can substitute canned output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stderr is folded into the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// ErrToolNotFound indicates a required external tool is not on PATH.
var ErrToolNotFound = errors.New("required tool not found in PATH")

// CheckAvailable returns ErrToolNotFound if name is not on PATH.
func CheckAvailable(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return nil
}

// InstallInstructions returns platform hints for the poppler and tesseract tools.
func InstallInstructions() string {
	return `Text extraction uses poppler (pdftotext, pdftoppm) and tesseract.

Install:
  macOS:   brew install poppler tesseract
  Ubuntu:  apt install poppler-utils tesseract-ocr
  Fedora:  dnf install poppler-utils tesseract
`
}
