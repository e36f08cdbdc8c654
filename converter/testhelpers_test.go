package converter

// Shared test helpers for the converter package.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/Cortexa-LLC/mcp/src/pdfocr/config"
)

// ---- assertion helpers -----------------------------------------------------

func assertNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErr(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error matching %v, got: %v", target, err)
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected output to contain %q\ngot: %s", want, got)
	}
}

// assertKind checks that err is a *ConversionError of the given kind.
func assertKind(t *testing.T, err error, want Kind) *ConversionError {
	t.Helper()
	var cerr *ConversionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConversionError, got %T: %v", err, err)
	}
	if cerr.Kind != want {
		t.Fatalf("Kind = %s, want %s (err: %v)", cerr.Kind, want, err)
	}
	return cerr
}

// assertEmptyDir fails when dir has any entries. A missing dir counts as empty.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	assertNoErr(t, err)
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected %s to be empty, found %v", dir, names)
	}
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected %s not to exist (stat err: %v)", path, err)
	}
}

// ---- loggers ---------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// syncBuffer is a goroutine-safe bytes.Buffer for capturing log output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogger returns a text logger writing into the returned buffer.
func captureLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// ---- seams -----------------------------------------------------------------

// withNoEngines overrides lookPath for the duration of f so tests can
// exercise the engine-absent code paths even when the engines are installed.
func withNoEngines(t *testing.T, f func()) {
	t.Helper()
	orig := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	defer func() { lookPath = orig }()
	f()
}

// withFailingRemove makes removeAll fail for the duration of f.
func withFailingRemove(t *testing.T, f func()) {
	t.Helper()
	orig := removeAll
	removeAll = func(string) error { return errors.New("device busy") }
	defer func() { removeAll = orig }()
	f()
}

// ---- config ----------------------------------------------------------------

// testConfig returns defaults with workspace and output dirs inside t.TempDir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.WorkspaceDir = filepath.Join(root, "work")
	cfg.OutputDir = filepath.Join(root, "out")
	return cfg
}

// ---- fakes -----------------------------------------------------------------

// fakeRasterizer writes one placeholder image per page into the workspace.
type fakeRasterizer struct {
	pages int
	err   error

	workspaces []string
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, workspace string) ([]PageImage, error) {
	f.workspaces = append(f.workspaces, workspace)
	if f.err != nil {
		return nil, f.err
	}
	images := make([]PageImage, 0, f.pages)
	for i := 1; i <= f.pages; i++ {
		path := filepath.Join(workspace, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("page %d", i)), 0o600); err != nil {
			return nil, err
		}
		images = append(images, PageImage{Number: i, Path: path})
	}
	return images, nil
}

// fakeRecognizer returns texts[n-1] for page n, or errs[n] when set.
type fakeRecognizer struct {
	texts []string
	errs  map[int]error
	panic int // page number that panics, 0 for none

	calls []int
}

func (f *fakeRecognizer) Recognize(_ context.Context, img PageImage) (string, error) {
	f.calls = append(f.calls, img.Number)
	if f.panic == img.Number {
		panic("recognizer exploded")
	}
	if err, ok := f.errs[img.Number]; ok {
		return "", err
	}
	if _, err := os.Stat(img.Path); err != nil {
		return "", fmt.Errorf("%w: image missing: %w", ErrRecognition, err)
	}
	if img.Number-1 < len(f.texts) {
		return f.texts[img.Number-1], nil
	}
	return "", nil
}

type failingAssembler struct{}

func (failingAssembler) Assemble([]PageText, string) error {
	return fmt.Errorf("%w: disk full", ErrDocumentWrite)
}

// ---- file factories --------------------------------------------------------

// writeTempFile writes content to a temp file with the given name and returns
// its path. The file is cleaned up automatically when the test ends.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writeTempFile: %v", err)
	}
	return path
}

// minimalPDF builds a structurally valid PDF with the given number of blank
// pages and a correct cross-reference table.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// shiftedXrefPDF returns minimalPDF(pages) with a comment line inserted after
// the header, so every cross-reference offset is off by ten bytes. poppler
// repairs such files; stricter parsers reject them.
func shiftedXrefPDF(pages int) []byte {
	data := minimalPDF(pages)
	header := len("%PDF-1.4\n")
	out := append([]byte{}, data[:header]...)
	out = append(out, "%padding!\n"...)
	return append(out, data[header:]...)
}

// makePDF writes minimalPDF(pages) to a temp file and returns its path.
func makePDF(t *testing.T, name string, pages int) string {
	t.Helper()
	return writeTempFile(t, name, string(minimalPDF(pages)))
}

// ---- fake engine binaries --------------------------------------------------

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script engine stand-ins need a POSIX shell")
	}
}

// writeScript writes an executable /bin/sh script and returns its path.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	requireShell(t)
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	return path
}

// fakePdftoppm writes a pdftoppm stand-in that emits pages images named the
// way pdftoppm does (zero-padded to the page-count width), each containing
// "TEXT-<n>". The received arguments are appended to argsFile when non-empty.
func fakePdftoppm(t *testing.T, pages int, ext, argsFile string) string {
	t.Helper()
	width := len(fmt.Sprint(pages))
	body := ""
	if argsFile != "" {
		body += fmt.Sprintf("echo \"$@\" >> '%s'\n", argsFile)
	}
	body += fmt.Sprintf(`for last; do :; done
i=1
while [ $i -le %d ]; do
  n=$(printf '%%0%dd' $i)
  printf 'TEXT-%%s' "$i" > "$last-$n%s"
  i=$((i+1))
done
`, pages, width, ext)
	return writeScript(t, "pdftoppm", body)
}

// fakeTesseract writes a tesseract stand-in that prints the image file's
// content followed by a newline and form feed, like tesseract does.
func fakeTesseract(t *testing.T, argsFile string) string {
	t.Helper()
	body := ""
	if argsFile != "" {
		body += fmt.Sprintf("echo \"$@\" >> '%s'\n", argsFile)
	}
	body += `if [ "$2" != "stdout" ]; then echo "usage" >&2; exit 2; fi
cat "$1"
printf '\n\f'
`
	return writeScript(t, "tesseract", body)
}
