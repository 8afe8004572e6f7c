// Package pdf extracts text from PDF files using the poppler pdftotext tool.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// toolName is the poppler binary used for extraction.
const toolName = "pdftotext"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor shells out to pdftotext. Pages are joined by the tool's
// form-feed separators, which the chunker treats as whitespace.
type Extractor struct {
	runner CommandRunner
}

// New creates a PDF extractor that runs the real pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates a PDF extractor with an injected command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Extract returns the PDF's text, or "" if the tool is missing, the file is
// malformed, or nothing could be extracted.
func (e *Extractor) Extract(ctx context.Context, path string) string {
	out, err := e.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", "-q", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			logger.Warn("pdf: %v; skipping %s. %s", ErrPDFToolNotFound, path, InstallInstructions())
			return ""
		}
		logger.Debug("pdf: pdftotext failed for %s: %v", path, err)
		return ""
	}
	return strings.ToValidUTF8(string(out), "")
}

// CheckAvailable reports whether pdftotext is on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return fmt.Errorf("%w: %v", ErrPDFToolNotFound, err)
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return "Install pdftotext (poppler): macOS: brew install poppler; " +
		"Debian/Ubuntu: apt install poppler-utils; Fedora: dnf install poppler-utils"
}
