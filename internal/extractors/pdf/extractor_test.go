package pdf

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.TextExtractor = (*Extractor)(nil)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New().SupportedExtensions())
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{}
	e := NewWithRunner(runner)
	require.NotNil(t, e)
	assert.Equal(t, runner, e.runner)
}

func TestExtract_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Menu\n\nHot Chocolate 10% off\f")}
	e := NewWithRunner(runner)

	text := e.Extract(context.Background(), "/docs/menu.pdf")

	assert.Contains(t, text, "Hot Chocolate 10% off")
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, "/docs/menu.pdf", runner.args[len(runner.args)-2])
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
}

func TestExtract_RunnerError(t *testing.T) {
	e := NewWithRunner(&mockRunner{err: errors.New("pdftotext crashed")})
	assert.Equal(t, "", e.Extract(context.Background(), "/docs/broken.pdf"))
}

func TestExtract_ToolMissing(t *testing.T) {
	e := NewWithRunner(&mockRunner{err: exec.ErrNotFound})
	assert.Equal(t, "", e.Extract(context.Background(), "/docs/menu.pdf"))
}

func TestExtract_InvalidUTF8Dropped(t *testing.T) {
	e := NewWithRunner(&mockRunner{output: []byte("ok\xff text")})
	assert.Equal(t, "ok text", e.Extract(context.Background(), "/docs/a.pdf"))
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestCheckAvailable_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		assert.True(t, errors.Is(err, ErrPDFToolNotFound))
		t.Skip("pdftotext not available")
	}
}
