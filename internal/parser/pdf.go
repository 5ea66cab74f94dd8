package parser

import (
	"context"
	"fmt"

	"github.com/textcast/orchestrator/pkg/types"
)

// PDFParser parses PDF files
type PDFParser struct{}

// NewPDFParser creates a new PDF parser
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts chapters and text from a PDF file
// This is a stub implementation - a real implementation would use a PDF library
func (p *PDFParser) Parse(ctx context.Context, data []byte) ([]*types.Chapter, error) {
	// For now, return a stub chapter indicating PDF parsing is not yet fully implemented
	// In a real implementation, we would use a library like pdfcpu or ledongthuc/pdf
	
	chapter := &types.Chapter{
		ID:      "chapter_001",
		Number:  1,
		Title:   "PDF Content (Parsing Not Yet Implemented)",
		TOCPath: []string{"PDF Content"},
		Paragraphs: []string{
			"PDF parsing requires external libraries and is not yet implemented.",
			"Future implementation will use libraries like github.com/ledongthuc/pdf or similar.",
			fmt.Sprintf("PDF file size: %d bytes", len(data)),
		},
	}
	
	return []*types.Chapter{chapter}, nil
}

// SupportedFormats returns the formats this parser supports
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}
