package converter

import (
	"errors"
	"strings"
	"testing"
)

func TestInspectPDF_PageCount(t *testing.T) {
	for _, pages := range []int{1, 3, 12} {
		path := makePDF(t, "scan.pdf", pages)
		info, err := inspectPDF(path)
		assertNoErr(t, err)
		if info.Pages != pages {
			t.Errorf("Pages = %d, want %d", info.Pages, pages)
		}
		if info.HasText {
			t.Errorf("blank %d-page pdf reported a text layer", pages)
		}
	}
}

func TestInspectPDF_FileNotFound(t *testing.T) {
	_, err := inspectPDF("/no/such/file.pdf")
	assertErrIs(t, err, ErrRasterization)
}

func TestInspectPDF_NotAPDF(t *testing.T) {
	path := writeTempFile(t, "fake.pdf", "this is not a PDF")
	_, err := inspectPDF(path)
	assertErrIs(t, err, ErrRasterization)
}

func TestInspectPDF_Truncated(t *testing.T) {
	data := minimalPDF(2)
	path := writeTempFile(t, "cut.pdf", string(data[:len(data)/2]))
	_, err := inspectPDF(path)
	assertErrIs(t, err, ErrRasterization)
}

func TestInspectPDF_Empty(t *testing.T) {
	path := writeTempFile(t, "empty.pdf", "")
	_, err := inspectPDF(path)
	assertErrIs(t, err, ErrRasterization)
}

func TestInspectPDF_ShiftedXref(t *testing.T) {
	path := writeTempFile(t, "shifted.pdf", string(shiftedXrefPDF(2)))
	_, err := inspectPDF(path)
	assertErrIs(t, err, ErrRasterization)
}

func TestCheckPDFHeader(t *testing.T) {
	ok := map[string]string{
		"valid":        string(minimalPDF(1)),
		"shifted xref": string(shiftedXrefPDF(1)),
		"leading junk": strings.Repeat("\x00", 100) + string(minimalPDF(1)),
		"header only":  "%PDF-1.7\n",
	}
	for name, content := range ok {
		if err := checkPDFHeader(writeTempFile(t, "a.pdf", content)); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
	}

	bad := map[string]string{
		"text":      "this is not a PDF",
		"empty":     "",
		"late mark": strings.Repeat(" ", pdfHeaderWindow) + "%PDF-1.4\n",
	}
	for name, content := range bad {
		err := checkPDFHeader(writeTempFile(t, "a.pdf", content))
		if !errors.Is(err, ErrRasterization) {
			t.Errorf("%s: err = %v, want ErrRasterization", name, err)
		}
	}

	assertErrIs(t, checkPDFHeader("/no/such/file.pdf"), ErrRasterization)
}
