package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"Synapse/backend/go/internal/card_service/resolver"
	"Synapse/backend/go/internal/models"

	"github.com/unidoc/unioffice/v2/document"
)

// DOCXContentType is the media type of ExportDOCX output.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ExportDOCX renders a card as a Word document: title, creation date, note,
// summary text and source.
func ExportDOCX(card *models.KnowledgeCard) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	title := card.Title
	if title == "" {
		title = "Knowledge Card"
	}
	p := doc.AddParagraph()
	p.SetStyle("Title")
	p.AddRun().AddText(title)

	if !card.CreatedAt.IsZero() {
		r := doc.AddParagraph().AddRun()
		r.Properties().SetItalic(true)
		r.AddText("Created: " + card.CreatedAt.Format("2006-01-02"))
	}

	if card.Note != "" {
		addSection(doc, "Note", []string{card.Note})
	}

	if card.Summary != "" {
		text, err := resolver.CleanHTML(card.Summary)
		if err != nil {
			return nil, fmt.Errorf("read summary: %w", err)
		}
		addSection(doc, "Summary", strings.Split(text, "\n"))
	}

	if card.SourceURL != "" {
		p := doc.AddParagraph()
		p.AddRun().AddText("Source: ")
		r := p.AddRun()
		r.Properties().SetItalic(true)
		r.AddText(card.SourceURL)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("save docx: %w", err)
	}
	return buf.Bytes(), nil
}

func addSection(doc *document.Document, heading string, lines []string) {
	h := doc.AddParagraph()
	h.SetStyle("Heading1")
	h.AddRun().AddText(heading)
	for _, line := range lines {
		doc.AddParagraph().AddRun().AddText(line)
	}
}

// ExportCard returns a card owned by userID as a DOCX document.
func (s *CardService) ExportCard(ctx context.Context, userID, cardID string) ([]byte, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	return ExportDOCX(card)
}
