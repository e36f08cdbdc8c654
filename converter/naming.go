package converter

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	outputSuffix   = "_OCR.docx"
	fallbackOutput = "document"
)

var unsafeNameRE = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// asciiFolds covers letters that have no NFKD decomposition to ASCII.
var asciiFolds = strings.NewReplacer("đ", "d", "Đ", "D")

// OutputName derives the .docx file name for a source PDF, the way an upload
// handler makes a client-supplied name safe: the base name is folded to
// ASCII ("Tài liệu" becomes "Tai_lieu"), whitespace runs become one
// underscore, anything but letters, digits, '_', '.' and '-' is dropped,
// leading and trailing dots and underscores are trimmed, and the extension
// is replaced by "_OCR.docx".
func OutputName(src string) string {
	base := filepath.Base(strings.ReplaceAll(src, `\`, "/"))
	base = strings.Join(strings.Fields(foldASCII(base)), "_")
	base = strings.Trim(unsafeNameRE.ReplaceAllString(base, ""), "._")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = fallbackOutput
	}
	return base + outputSuffix
}

// foldASCII decomposes s and drops every non-ASCII rune left over, so
// accented letters keep their base letter.
func foldASCII(s string) string {
	s = norm.NFKD.String(asciiFolds.Replace(s))
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}
