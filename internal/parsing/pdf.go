package parsing

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/pkg/utils"
	"github.com/ledongthuc/pdf"
)

// PDFReader turns a PDF into one document per non-empty page, chunked to ChunkSize.
type PDFReader struct {
	ChunkSize int
}

func NewPDFReader() *PDFReader {
	return &PDFReader{ChunkSize: DefaultChunkSize}
}

// Read parses an uploaded PDF. name is the original file name; documents are named after it up to the first '.'.
func (r *PDFReader) Read(name string, data io.ReaderAt, size int64) (docs []models.Document, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			docs = nil
			err = fmt.Errorf("could not read content of pdf %s: %v", name, rec)
		}
	}()

	pdfReader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF reader: %w", err)
	}

	return r.readPages(utils.DerivedName(name), pdfReader)
}

// ReadFile parses the PDF at path.
func (r *PDFReader) ReadFile(path string) (docs []models.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			docs = nil
			err = fmt.Errorf("could not read content of pdf %s: %v", path, rec)
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	return r.readPages(utils.DerivedName(filepath.Base(path)), pdfReader)
}

func (r *PDFReader) readPages(docName string, pdfReader *pdf.Reader) ([]models.Document, error) {
	fonts := make(map[string]*pdf.Font)
	var docs []models.Document

	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, fontName := range page.Fonts() {
			if _, ok := fonts[fontName]; !ok {
				font := page.Font(fontName)
				fonts[fontName] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("could not read page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		doc := models.Document{
			ID:      fmt.Sprintf("%s_%d", docName, i),
			Name:    docName,
			Content: text,
			Meta:    map[string]any{"page": i},
		}
		docs = append(docs, ChunkDocument(doc, r.ChunkSize)...)
	}

	return docs, nil
}

// IsPDF checks if the provided filename has a .pdf extension (case-insensitive).
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
