package converter

// pdf.go: PDF pre-flight via pure-Go parsing.
//
// checkPDFHeader is the only hard gate: files without a %PDF- marker never
// reach the renderer. github.com/ledongthuc/pdf then learns the page count
// the rasterized output must match. Its parser is stricter than poppler's,
// which repairs broken cross-reference tables, so a parse failure is
// advisory.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfHeaderWindow is how far into the file the %PDF- marker may appear.
// poppler tolerates leading garbage up to the same limit.
const pdfHeaderWindow = 1024

// checkPDFHeader rejects files with no %PDF- marker near the start.
func checkPDFHeader(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w: open pdf: %w", ErrRasterization, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, pdfHeaderWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: read pdf: %w", ErrRasterization, err)
	}
	if !bytes.Contains(buf[:n], []byte("%PDF-")) {
		return fmt.Errorf("%w: not a pdf: no %%PDF- header", ErrRasterization)
	}
	return nil
}

// pdfInfo is what the pre-flight learns about a source PDF.
type pdfInfo struct {
	Pages int

	// HasText is true when the first non-empty page already carries a text
	// layer. Such files are still OCRed.
	HasText bool
}

// inspectPDF opens filePath and reads its page count. The parser can panic on
// hostile input; that is reported as a rasterization error like any other
// unreadable file.
func inspectPDF(filePath string) (info pdfInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			info = pdfInfo{}
			err = fmt.Errorf("%w: malformed pdf: %v", ErrRasterization, r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return pdfInfo{}, fmt.Errorf("%w: open pdf: %w", ErrRasterization, err)
	}
	defer func() { _ = f.Close() }()

	info.Pages = r.NumPage()
	if info.Pages <= 0 {
		return pdfInfo{}, fmt.Errorf("%w: pdf has no pages", ErrRasterization)
	}
	info.HasText = hasTextLayer(r)
	return info, nil
}

// hasTextLayer probes the first page that has content for extractable text.
// A page the parser cannot interpret counts as having none.
func hasTextLayer(r *pdf.Reader) (found bool) {
	defer func() {
		if recover() != nil {
			found = false
		}
	}()
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return false
		}
		return strings.TrimSpace(text) != ""
	}
	return false
}
