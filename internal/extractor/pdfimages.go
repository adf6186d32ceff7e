package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImager returns one raster image per PDF page. A nil entry marks a page
// without an embedded image.
type PageImager interface {
	PageImages(ctx context.Context, data []byte) ([][]byte, error)
}

// PDFPageImager pulls the embedded page scans out of a PDF with pdfcpu.
// Scanned PDFs carry one full-page image per page, which is what OCR needs.
// Pages are not rasterized: when a page holds several images the largest one
// is used, and a page drawn only with vector paths yields nil.
type PDFPageImager struct {
	conf *model.Configuration
}

func NewPDFPageImager() *PDFPageImager {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFPageImager{conf: conf}
}

func (p *PDFPageImager) PageImages(ctx context.Context, data []byte) ([][]byte, error) {
	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, p.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	pages := make([][]byte, pageCount)
	sizes := make([]int, pageCount)
	err = api.ExtractImages(rs, nil, func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := img.PageNr - 1
		if idx < 0 || idx >= pageCount {
			return nil
		}
		raw, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("failed to read image on page %d: %w", img.PageNr, err)
		}
		// keep the largest image when a page holds several
		if len(raw) > sizes[idx] {
			pages[idx] = raw
			sizes[idx] = len(raw)
		}
		return nil
	}, p.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract PDF page images: %w", err)
	}

	return pages, nil
}
