// Package document inspects uploaded invoice documents before they are stored.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/port"
)

const pdfMIME = "application/pdf"

// allowed lists the content types accepted as invoice documents
var allowed = map[string]bool{
	pdfMIME:      true,
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// Inspector sniffs uploads and opens PDFs with MuPDF to make sure they are readable
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates a new Inspector
func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect implements port.DocumentInspector
func (i *Inspector) Inspect(ctx context.Context, content []byte) (*port.DocumentInfo, error) {
	mt := mimetype.Detect(content)
	contentType := mt.String()
	if base, _, ok := strings.Cut(contentType, ";"); ok {
		contentType = base
	}

	if !allowed[contentType] {
		return nil, fmt.Errorf("unsupported document type %s", contentType)
	}

	info := &port.DocumentInfo{
		ContentType: contentType,
		Extension:   mt.Extension(),
		PageCount:   1,
	}

	if contentType == pdfMIME {
		pages, err := countPages(content)
		if err != nil {
			i.logger.Info("Rejected unreadable PDF", zap.Int("size", len(content)), zap.Error(err))
			return nil, err
		}
		info.PageCount = pages
	}

	i.logger.Debug("Document inspected",
		zap.String("content_type", info.ContentType),
		zap.Int("pages", info.PageCount))

	return info, nil
}

func countPages(content []byte) (int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}

var _ port.DocumentInspector = (*Inspector)(nil)
