package converter

// DOCX writer and reader.
//
// DOCX files are ZIP archives containing OOXML. The writer emits the smallest
// package Word accepts: content types, package relationships, core
// properties and word/document.xml with one <w:p> per page. The reader
// stream-parses word/document.xml back into paragraphs.

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Assembler writes recognized pages to a document at dst.
type Assembler interface {
	Assemble(pages []PageText, dst string) error
}

const (
	nsWordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
		`</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
		`</Relationships>`

	// A4 with 1" margins.
	sectionPropsXML = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`
)

// DocxWriter is the production Assembler.
type DocxWriter struct {
	// Creator is stored in the core properties. Empty means "pdfocr".
	Creator string

	now func() time.Time
}

// Assemble writes one paragraph per page, in order, to dst. The file is built
// next to dst and renamed into place, so a failure never leaves a partial
// document and never touches an existing one.
func (d *DocxWriter) Assemble(pages []PageText, dst string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".pdfocr-*.docx.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrDocumentWrite, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	title := strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst))
	if err := d.writePackage(tmp, pages, title); err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrDocumentWrite, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("%w: chmod: %w", ErrDocumentWrite, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("%w: rename into place: %w", ErrDocumentWrite, err)
	}
	return nil
}

func (d *DocxWriter) writePackage(w io.Writer, pages []PageText, title string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"[Content_Types].xml", writeString(contentTypesXML)},
		{"_rels/.rels", writeString(packageRelsXML)},
		{"docProps/core.xml", func(w io.Writer) error { return d.writeCoreProps(w, title) }},
		{"word/document.xml", func(w io.Writer) error { return writeDocumentXML(w, pages) }},
	}
	for _, p := range parts {
		pw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", p.name, err)
		}
		if err := p.write(pw); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func (d *DocxWriter) writeCoreProps(w io.Writer, title string) error {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	creator := d.Creator
	if creator == "" {
		creator = "pdfocr"
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	sb.WriteString("<dc:title>")
	escapeXMLText(&sb, title)
	sb.WriteString("</dc:title><dc:creator>")
	escapeXMLText(&sb, creator)
	sb.WriteString("</dc:creator>")
	created := now().UTC().Format(time.RFC3339)
	sb.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + created + `</dcterms:created>`)
	sb.WriteString("</cp:coreProperties>")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeDocumentXML(w io.Writer, pages []PageText) error {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<w:document xmlns:w="` + nsWordML + `"><w:body>`)
	for _, p := range pages {
		writeParagraph(&sb, p.Text)
	}
	sb.WriteString(sectionPropsXML)
	sb.WriteString("</w:body></w:document>")

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeParagraph renders text as a single paragraph. Line feeds become
// <w:br/>, tabs <w:tab/>; carriage returns and characters XML 1.0 cannot
// carry (tesseract ends pages with a form feed) are dropped. Empty text still
// yields a paragraph so paragraph i stays page i.
func writeParagraph(sb *strings.Builder, text string) {
	var run strings.Builder
	hasContent := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		sb.WriteString(`<w:t xml:space="preserve">`)
		escapeXMLText(sb, run.String())
		sb.WriteString("</w:t>")
		run.Reset()
	}
	open := func() {
		if !hasContent {
			sb.WriteString("<w:p><w:r>")
			hasContent = true
		}
	}

	for _, r := range text {
		switch {
		case r == '\n':
			open()
			flush()
			sb.WriteString("<w:br/>")
		case r == '\t':
			open()
			flush()
			sb.WriteString("<w:tab/>")
		case !isXMLChar(r) || r == '\r':
			// dropped
		default:
			open()
			run.WriteRune(r)
		}
	}

	if !hasContent {
		sb.WriteString("<w:p/>")
		return
	}
	flush()
	sb.WriteString("</w:r></w:p>")
}

func escapeXMLText(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}

// isXMLChar reports whether r is allowed in an XML 1.0 document.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

// ReadDocx returns the paragraphs of a .docx in document order. Empty
// paragraphs are kept; line breaks and tabs come back as "\n" and "\t".
func ReadDocx(filePath string) ([]string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in %s", filepath.Base(filePath))
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return parseParagraphs(rc)
}

type paragraphParser struct {
	// element name stack for context queries
	stack []string

	inPara bool
	text   strings.Builder
	paras  []string
}

func (p *paragraphParser) push(name string) { p.stack = append(p.stack, name) }
func (p *paragraphParser) pop() {
	if len(p.stack) > 0 {
		p.stack = p.stack[:len(p.stack)-1]
	}
}
func (p *paragraphParser) inCtx(name string) bool {
	for _, s := range p.stack {
		if s == name {
			return true
		}
	}
	return false
}

func parseParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	p := &paragraphParser{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.push(t.Name.Local)
			p.handleStart(t.Name.Local)
		case xml.EndElement:
			p.handleEnd(t.Name.Local)
			p.pop()
		case xml.CharData:
			if p.inPara && len(p.stack) > 0 && p.stack[len(p.stack)-1] == "t" {
				p.text.Write(t)
			}
		}
	}

	return p.paras, nil
}

func (p *paragraphParser) handleStart(local string) {
	switch local {
	case "p":
		p.inPara = true
		p.text.Reset()
	case "br", "cr":
		if p.inPara && p.inCtx("r") {
			p.text.WriteByte('\n')
		}
	case "tab":
		// <w:tab/> inside <w:pPr><w:tabs> is a tab stop, not text.
		if p.inPara && p.inCtx("r") {
			p.text.WriteByte('\t')
		}
	}
}

func (p *paragraphParser) handleEnd(local string) {
	if local == "p" && p.inPara {
		p.paras = append(p.paras, p.text.String())
		p.inPara = false
	}
}
