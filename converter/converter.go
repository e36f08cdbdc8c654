package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/Cortexa-LLC/mcp/src/pdfocr/config"
	"github.com/google/uuid"
)

// FileConverter is the surface the MCP tools depend on.
type FileConverter interface {
	ConvertFile(ctx context.Context, pdfPath, docxPath string) (*Result, error)
	ReadDocument(ctx context.Context, docxPath string) (string, error)
	GetConversionInfo(ctx context.Context) string
}

// pageSep is placed between paragraphs when a document is rendered as Markdown.
const pageSep = "\n\n---\n\n"

// Converter runs the rasterize → recognize → assemble pipeline, one job per
// call, with a private workspace per job.
type Converter struct {
	cfg        *config.Config
	workspaces *Workspaces
	rasterizer Rasterizer
	recognizer Recognizer
	assembler  Assembler
	newJobID   func() string
	logger     *slog.Logger
}

// Option customizes a Converter.
type Option func(*Converter)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithRasterizer replaces the pdftoppm rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(c *Converter) { c.rasterizer = r }
}

// WithRecognizer replaces the tesseract recognizer.
func WithRecognizer(r Recognizer) Option {
	return func(c *Converter) { c.recognizer = r }
}

// WithAssembler replaces the DOCX writer.
func WithAssembler(a Assembler) Option {
	return func(c *Converter) { c.assembler = a }
}

// WithJobIDs replaces the job identifier generator (uuid v4 by default).
func WithJobIDs(fn func() string) Option {
	return func(c *Converter) { c.newJobID = fn }
}

// NewConverter builds a Converter from cfg. A nil cfg is loaded from the
// environment.
func NewConverter(cfg *config.Config, opts ...Option) *Converter {
	if cfg == nil {
		cfg = config.Load()
	}
	c := &Converter{cfg: cfg, newJobID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.rasterizer == nil {
		c.rasterizer = &Poppler{Path: cfg.PdftoppmPath, Format: cfg.ImageFormat, DPI: cfg.DPI, Logger: c.logger}
	}
	if c.recognizer == nil {
		c.recognizer = &Tesseract{Path: cfg.TesseractPath, Language: cfg.Language}
	}
	if c.assembler == nil {
		c.assembler = &DocxWriter{}
	}
	c.workspaces = NewWorkspaces(cfg.WorkspaceDir, c.logger)
	return c
}

// Workspaces exposes the workspace manager, e.g. for the startup sweep.
func (c *Converter) Workspaces() *Workspaces { return c.workspaces }

// Convert turns the PDF at src into a DOCX at dst. The returned Result is
// never nil. On failure the error is a *ConversionError and nothing is
// written to dst. The job workspace is removed before Convert returns, on
// every path.
func (c *Converter) Convert(ctx context.Context, src, dst string) (res *Result, err error) {
	job := &Job{ID: c.newJobID(), Source: src, Destination: dst, State: StateInitialized}
	res = &Result{JobID: job.ID, Source: src, Destination: dst, State: StateInitialized}
	log := c.logger.With("job_id", job.ID)
	page := 0

	fail := func(kind Kind, cause error) (*Result, error) {
		cerr := &ConversionError{Kind: kind, JobID: job.ID, Stage: job.State, Page: page, Err: cause}
		attrs := []any{"stage", job.State.String(), "kind", kind.String(), "pdf", src, "error", cause}
		if page > 0 {
			attrs = append(attrs, "page", page)
		}
		log.Error("conversion failed", attrs...)
		job.State = StateFailed
		res.State = StateFailed
		return res, cerr
	}

	dir, aerr := c.workspaces.Acquire(job.ID)
	if aerr != nil {
		return fail(KindWorkspaceCreation, aerr)
	}
	job.Workspace = dir
	job.State = StateWorkspaceReady
	defer c.workspaces.Release(dir)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during conversion", "panic", r, "stack", string(debug.Stack()))
			res, err = fail(KindUnexpectedFault, fmt.Errorf("%w: %v", ErrUnexpectedFault, r))
		}
	}()

	log.Info("conversion started", "pdf", src, "workspace", dir)

	images, rerr := c.rasterizer.Rasterize(ctx, src, dir)
	if rerr != nil {
		return fail(kindOf(rerr, KindRasterization), rerr)
	}
	job.State = StateRasterized
	res.Pages = len(images)
	log.Info("pdf rasterized", "pages", len(images))

	texts := make([]PageText, 0, len(images))
	for i, img := range images {
		page = i + 1
		log.Info("recognizing page", "page", page, "pages", len(images))
		text, oerr := c.recognizer.Recognize(ctx, img)
		if oerr != nil {
			kind := kindOf(oerr, KindRecognition)
			if kind != KindRecognition || !c.cfg.SkipFailedPages || ctx.Err() != nil {
				return fail(kind, oerr)
			}
			log.Warn("recognition failed, page left empty", "page", page, "error", oerr)
			res.SkippedPages = append(res.SkippedPages, page)
			text = ""
		}
		texts = append(texts, PageText{Number: page, Text: text})
	}
	page = 0
	job.State = StateRecognized

	if werr := c.assembler.Assemble(texts, dst); werr != nil {
		return fail(kindOf(werr, KindDocumentWrite), werr)
	}
	job.State = StateAssembled

	job.State = StateDone
	res.State = StateDone
	log.Info("conversion finished", "docx", dst, "pages", len(texts), "skipped", len(res.SkippedPages))
	return res, nil
}

// ConvertFile validates pdfPath and converts it. An empty docxPath writes
// <OutputDir>/<OutputName(pdfPath)>. JobTimeout, when configured, bounds the
// whole conversion.
func (c *Converter) ConvertFile(ctx context.Context, pdfPath, docxPath string) (*Result, error) {
	rejected := &Result{Source: pdfPath, Destination: docxPath, State: StateFailed}
	if err := c.validateInput(pdfPath); err != nil {
		c.logger.Warn("input rejected", "pdf", pdfPath, "error", err)
		return rejected, &ConversionError{Kind: KindInvalidInput, Stage: StateInitialized, Err: err}
	}

	if docxPath == "" {
		if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
			err = fmt.Errorf("%w: create output dir: %w", ErrDocumentWrite, err)
			c.logger.Error("output directory unavailable", "dir", c.cfg.OutputDir, "error", err)
			return rejected, &ConversionError{Kind: KindDocumentWrite, Stage: StateInitialized, Err: err}
		}
		docxPath = filepath.Join(c.cfg.OutputDir, OutputName(pdfPath))
	} else if !strings.EqualFold(filepath.Ext(docxPath), ".docx") {
		err := invalidInput("output must be a .docx file")
		return rejected, &ConversionError{Kind: KindInvalidInput, Stage: StateInitialized, Err: err}
	}

	if c.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.JobTimeout)
		defer cancel()
	}
	return c.Convert(ctx, pdfPath, docxPath)
}

func (c *Converter) validateInput(pdfPath string) error {
	info, err := os.Stat(pdfPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return invalidInput("file not found")
		}
		return invalidInput("file is not readable")
	}
	if !info.Mode().IsRegular() {
		return invalidInput("not a regular file")
	}
	if info.Size() > c.cfg.MaxFileSizeBytes {
		return invalidInput("file too large: %d bytes (max %d)", info.Size(), c.cfg.MaxFileSizeBytes)
	}
	if !strings.EqualFold(filepath.Ext(pdfPath), ".pdf") {
		return invalidInput("not a .pdf file")
	}
	return nil
}

// ReadDocument renders the paragraphs of a .docx as Markdown, one block per
// paragraph. A path that is not a .docx is rejected with ErrInvalidInput.
func (c *Converter) ReadDocument(_ context.Context, docxPath string) (string, error) {
	if !strings.EqualFold(filepath.Ext(docxPath), ".docx") {
		return "", invalidInput("not a .docx file")
	}
	paras, err := ReadDocx(docxPath)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, pageSep), nil
}

// availability is implemented by engine adapters that can probe their binary.
type availability interface {
	Available() bool
}

// GetConversionInfo returns a Markdown summary of engines and configuration.
func (c *Converter) GetConversionInfo(_ context.Context) string {
	engine := func(v any, path string) string {
		a, ok := v.(availability)
		switch {
		case !ok:
			return "custom"
		case a.Available():
			return "`" + path + "` (available)"
		default:
			return "`" + path + "` (NOT FOUND)"
		}
	}

	skip := "abort the job"
	if c.cfg.SkipFailedPages {
		skip = "leave the page empty and continue"
	}
	timeout := "none"
	if c.cfg.JobTimeout > 0 {
		timeout = c.cfg.JobTimeout.String()
	}

	return fmt.Sprintf(`# PDF OCR Conversion Info

## Pipeline
PDF → page images (pdftoppm) → OCR per page (tesseract) → DOCX, one paragraph per page.

## Engines
- Rasterizer: %s
- OCR: %s

## Configuration
- OCR language: %s
- Image format: %s at %d DPI
- Workspace dir: %s
- Output dir: %s
- Max file size: %d MB
- Job timeout: %s
- On page recognition failure: %s`,
		engine(c.rasterizer, c.cfg.PdftoppmPath),
		engine(c.recognizer, c.cfg.TesseractPath),
		c.cfg.Language,
		c.cfg.ImageFormat, c.cfg.DPI,
		c.cfg.WorkspaceDir,
		c.cfg.OutputDir,
		c.cfg.MaxFileSizeMB(),
		timeout,
		skip,
	)
}
