package converter

// rasterize.go: PDF → page images via poppler's pdftoppm.
//
// pdftoppm writes <prefix>-<n>.<ext> per page and zero-pads n to the width
// of the page count (page-01.jpg … page-12.jpg), so files are collected by
// parsing the number rather than by sorting names.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer turns a PDF into ordered page images written into workspace.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, workspace string) ([]PageImage, error)
}

// pageImagePrefix is the file name prefix handed to pdftoppm.
const pageImagePrefix = "page"

// imageExts maps a pdftoppm output format to the extension it writes.
var imageExts = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"tiff": ".tif",
}

// Poppler rasterizes with the pdftoppm command-line tool.
type Poppler struct {
	Path   string // binary name or path, resolved through lookPath
	Format string // png, jpeg or tiff
	DPI    int
	Logger *slog.Logger
}

// Available reports whether the pdftoppm binary can be found.
func (p *Poppler) Available() bool {
	_, err := lookPath(p.Path)
	return err == nil
}

// Rasterize checks pdfPath, renders every page into workspace and returns
// the images in page order. The image count is checked against the page count
// only when the pre-flight parse succeeded.
func (p *Poppler) Rasterize(ctx context.Context, pdfPath, workspace string) ([]PageImage, error) {
	ext, ok := imageExts[p.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image format %q", ErrRasterization, p.Format)
	}

	if err := checkPDFHeader(pdfPath); err != nil {
		return nil, err
	}
	info, err := inspectPDF(pdfPath)
	switch {
	case err != nil:
		p.logger().Warn("pdf pre-flight failed; page count left to pdftoppm", "pdf", pdfPath, "error", err)
	case info.HasText:
		p.logger().Warn("pdf already has a text layer; converting with OCR anyway", "pdf", pdfPath)
	}

	bin, err := lookPath(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm not found (%s): %w", ErrEngineUnavailable, p.Path, err)
	}

	args := []string{"-r", strconv.Itoa(p.DPI), "-" + p.Format, pdfPath, filepath.Join(workspace, pageImagePrefix)}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger().Debug("running pdftoppm", "args", args)
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: pdftoppm: %w", ErrEngineUnavailable, err)
		}
		return nil, fmt.Errorf("%w: pdftoppm: %w: %s", ErrRasterization, err, strings.TrimSpace(stderr.String()))
	}

	images, err := collectPageImages(workspace, ext)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images: %s", ErrRasterization, strings.TrimSpace(stderr.String()))
	}
	if info.Pages > 0 && len(images) != info.Pages {
		return nil, fmt.Errorf("%w: rendered %d images for %d pages", ErrRasterization, len(images), info.Pages)
	}
	return images, nil
}

func (p *Poppler) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// collectPageImages finds page-<n><ext> files in dir, sorted by n.
func collectPageImages(dir, ext string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list workspace: %w", ErrRasterization, err)
	}

	var images []PageImage
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, pageImagePrefix+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pageImagePrefix+"-"), ext))
		if err != nil || num <= 0 {
			continue
		}
		images = append(images, PageImage{Number: num, Path: filepath.Join(dir, name)})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Number < images[j].Number })

	for i, img := range images {
		if img.Number != i+1 {
			return nil, fmt.Errorf("%w: missing image for page %d", ErrRasterization, i+1)
		}
	}
	return images, nil
}
