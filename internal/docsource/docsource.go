// Package docsource reads metadata from PDF files being added to the library.
package docsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"rsc.io/pdf"
)

// ErrNoPages is returned when a file has no readable pages.
var ErrNoPages = errors.New("pdf has no pages")

// Info is what the library needs to know about a PDF.
type Info struct {
	Path  string
	Title string
	Pages int
}

// Inspect reads the page count and title of a PDF. The title falls back to
// the file name when the document has none. When the primary parser cannot
// read the file, pdfcpu is asked for the page count.
func Inspect(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, fmt.Errorf("resolve path: %w", err)
	}
	info := Info{Path: abs, Title: titleFromName(abs)}

	pages, title, err := readPDF(abs)
	if err != nil || pages == 0 {
		count, cerr := api.PageCountFile(abs)
		if cerr != nil {
			if err == nil {
				err = cerr
			}
			return Info{}, fmt.Errorf("read pdf %s: %w", abs, err)
		}
		pages = count
	}
	if pages <= 0 {
		return Info{}, fmt.Errorf("read pdf %s: %w", abs, ErrNoPages)
	}
	info.Pages = pages
	if title != "" {
		info.Title = title
	}
	return info, nil
}

func readPDF(path string) (pages int, title string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()
	st, err := f.Stat()
	if err != nil {
		return 0, "", err
	}
	defer func() {
		// rsc.io/pdf panics on some malformed files.
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	doc, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return 0, "", fmt.Errorf("open pdf: %w", err)
	}
	title = strings.TrimSpace(doc.Trailer().Key("Info").Key("Title").Text())
	return doc.NumPage(), title, nil
}

func titleFromName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}
