package resolver

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"Synapse/backend/go/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/v2/document"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// TextExtractor pulls plain text out of a document's bytes.
type TextExtractor func(data []byte) (string, error)

// DocumentExtractor sniffs the real type of an upload and dispatches to the
// extractor registered for it. Only PDF and DOCX are accepted.
type DocumentExtractor struct {
	extractors map[string]TextExtractor
	maxBytes   int64
}

// NewDocumentExtractor returns an extractor for PDF and DOCX uploads of at most maxBytes.
func NewDocumentExtractor(maxBytes int64) *DocumentExtractor {
	return &DocumentExtractor{
		extractors: map[string]TextExtractor{
			MimePDF:  PDFText,
			MimeDOCX: DOCXText,
		},
		maxBytes: maxBytes,
	}
}

// Register replaces the extractor for one of the accepted MIME types.
func (d *DocumentExtractor) Register(mime string, fn TextExtractor) error {
	if _, ok := d.extractors[mime]; !ok {
		return fmt.Errorf("mime type %s is not accepted", mime)
	}
	d.extractors[mime] = fn
	return nil
}

// Extract detects the type from the content, never from the filename.
func (d *DocumentExtractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewPipelineError(models.KindUnsupportedFileType, "sniff", errors.New("document is empty"))
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return "", models.NewPipelineError(models.KindUnsupportedFileType, "sniff",
			fmt.Errorf("document is %d bytes, limit is %d", len(data), d.maxBytes))
	}
	mtype := mimetype.Detect(data)

	var fn TextExtractor
	for mime, ex := range d.extractors {
		if mtype.Is(mime) {
			fn = ex
			break
		}
	}
	if fn == nil {
		return "", models.NewPipelineError(models.KindUnsupportedFileType, "sniff",
			fmt.Errorf("detected %s", mtype.String()))
	}

	text, err := fn(data)
	if err != nil {
		return "", models.NewPipelineError(models.KindUnsupportedFileType, "extract", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", models.NewPipelineError(models.KindUnsupportedFileType, "extract",
			errors.New("document contains no extractable text"))
	}
	return text, nil
}

// PDFText returns the plain text of every page joined with "\n".
func PDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// DOCXText returns the text of every paragraph joined with "\n".
func DOCXText(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	paragraphs := doc.Paragraphs()
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"), nil
}
