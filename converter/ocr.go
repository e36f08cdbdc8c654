package converter

// ocr.go: Tesseract OCR integration.
//
// The binary is resolved through lookPath on every page so a missing
// installation surfaces as ErrEngineUnavailable on the first page rather than
// as a generic exec failure.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

// lookPath is the exec.LookPath implementation used to find engine binaries.
// Tests may replace it to simulate a missing Tesseract or pdftoppm.
var lookPath = exec.LookPath

// Recognizer extracts the text of a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, img PageImage) (string, error)
}

// Tesseract runs the tesseract command-line tool with one fixed language.
type Tesseract struct {
	Path     string // binary name or path, resolved through lookPath
	Language string // e.g. "vie", "eng" or "eng+vie"
}

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() bool {
	_, err := lookPath(t.Path)
	return err == nil
}

// Recognize returns tesseract's stdout for img unchanged.
func (t *Tesseract) Recognize(ctx context.Context, img PageImage) (string, error) {
	bin, err := lookPath(t.Path)
	if err != nil {
		return "", fmt.Errorf("%w: tesseract not found (%s): %w", ErrEngineUnavailable, t.Path, err)
	}

	args := []string{img.Path, "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: tesseract: %w", ErrEngineUnavailable, err)
		}
		return "", fmt.Errorf("%w: tesseract %s: %w: %s",
			ErrRecognition, filepath.Base(img.Path), err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
