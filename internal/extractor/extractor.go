// Package extractor turns raw document bytes into a normalized text body.
// The Router decides how a document is read; the Extractor reads it.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

type Options struct {
	OCRTimeout time.Duration
	OCRWorkers int
	// MinPageConfidence is the mean word confidence (0-100) a page needs to
	// be kept.
	MinPageConfidence float64
	// MinPageAlnumRatio is the share of non-space runes that must be letters
	// or digits for a page to count as text rather than noise.
	MinPageAlnumRatio float64
}

func DefaultOptions() Options {
	return Options{
		OCRTimeout:        60 * time.Second,
		OCRWorkers:        4,
		MinPageConfidence: 30,
		MinPageAlnumRatio: 0.5,
	}
}

type Result struct {
	Text          models.ExtractedText
	Structure     models.Structure
	Warnings      []string
	OCRConfidence *float64
	PagesTotal    int
	PagesUsed     int
}

type Extractor struct {
	ocr    OCREngine
	imager PageImager
	opts   Options
	logger *utils.Logger
}

func New(ocr OCREngine, imager PageImager, opts Options, logger *utils.Logger) *Extractor {
	def := DefaultOptions()
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = def.OCRTimeout
	}
	if opts.OCRWorkers <= 0 {
		opts.OCRWorkers = def.OCRWorkers
	}
	if opts.MinPageAlnumRatio <= 0 {
		opts.MinPageAlnumRatio = def.MinPageAlnumRatio
	}
	return &Extractor{ocr: ocr, imager: imager, opts: opts, logger: logger}
}

var errNoPageImage = errors.New("page has no embedded image")

type pageText struct {
	body       string
	warnings   []string
	confidence *float64
	total      int
	used       int
}

// Extract produces the normalized text for route. Zero usable characters is
// ErrExtractionFailed; individual OCR page failures only add warnings.
func (e *Extractor) Extract(ctx context.Context, route Route, data []byte) (*Result, error) {
	op := string(route.Strategy)
	if len(data) == 0 {
		return nil, utils.Wrap(utils.ErrExtractionFailed, "extractor", op, "empty input", nil)
	}

	var (
		pt  pageText
		err error
	)
	switch route.Strategy {
	case StrategyNativePDF:
		pt.body = route.nativeText
		if pt.body == "" {
			pt.body, err = extractNativePDF(data)
		}
	case StrategyOCRPDF:
		pt, err = e.ocrPDF(ctx, data)
	case StrategyOCRImage:
		pt, err = e.ocrImage(ctx, data)
	case StrategySpreadsheet:
		switch route.Format {
		case "csv":
			pt.body, err = extractDelimited(data, ',')
		case "tsv":
			pt.body, err = extractDelimited(data, '\t')
		default:
			pt.body, pt.warnings, err = extractWorkbook(data)
		}
	case StrategyPlainText:
		pt.body = extractPlainText(data)
	case StrategyDOCX:
		pt.body, err = extractDOCX(data)
	default:
		return nil, utils.Wrap(utils.ErrUnsupportedFormat, "extractor", op, "no extractor for strategy", nil)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, utils.ErrExtractionFailed) {
			return nil, err
		}
		return nil, utils.Wrap(utils.ErrExtractionFailed, "extractor", op, "", err)
	}

	body := cleanText(pt.body)
	if textutil.AlnumCount(body) == 0 {
		return nil, utils.Wrap(utils.ErrExtractionFailed, "extractor", op, "no extractable text", nil)
	}

	structure := DetectStructure(body)
	return &Result{
		Text: models.ExtractedText{
			Body:           body,
			TotalWords:     textutil.CountWords(body),
			TotalSentences: len(textutil.Sentences(body)),
			TotalLines:     structure.TotalLines,
			HasTables:      structure.HasTables,
			HasLists:       structure.HasLists,
		},
		Structure:     structure,
		Warnings:      nonNil(pt.warnings),
		OCRConfidence: pt.confidence,
		PagesTotal:    pt.total,
		PagesUsed:     pt.used,
	}, nil
}

type pageOutcome struct {
	pages []OCRPage
	err   error
}

func (e *Extractor) ocrPDF(ctx context.Context, data []byte) (pageText, error) {
	if e.imager == nil || e.ocr == nil {
		return pageText{}, utils.Wrap(utils.ErrExtractionFailed, "extractor", "ocr-pdf", "OCR is not configured", nil)
	}
	images, err := e.imager.PageImages(ctx, data)
	if err != nil {
		return pageText{}, err
	}
	if len(images) == 0 {
		return pageText{}, utils.Wrap(utils.ErrExtractionFailed, "extractor", "ocr-pdf", "document has no pages", nil)
	}

	outcomes := make([]pageOutcome, len(images))
	var g errgroup.Group
	g.SetLimit(e.opts.OCRWorkers)
	for i, img := range images {
		if img == nil {
			outcomes[i] = pageOutcome{err: errNoPageImage}
			continue
		}
		i, img := i, img
		g.Go(func() error {
			pages, err := e.recognize(ctx, img)
			if err == nil {
				for j := range pages {
					pages[j].Number = i + 1
				}
			}
			outcomes[i] = pageOutcome{pages: pages, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return pageText{}, err
	}

	return e.assemble(outcomes), nil
}

func (e *Extractor) ocrImage(ctx context.Context, data []byte) (pageText, error) {
	if e.ocr == nil {
		return pageText{}, utils.Wrap(utils.ErrExtractionFailed, "extractor", "ocr-image", "OCR is not configured", nil)
	}
	pages, err := e.recognize(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pageText{}, ctxErr
	}
	return e.assemble([]pageOutcome{{pages: pages, err: err}}), nil
}

// recognize bounds one OCR call by the per-call timeout.
func (e *Extractor) recognize(ctx context.Context, image []byte) ([]OCRPage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.OCRTimeout)
	defer cancel()

	pages, err := e.ocr.Recognize(ctx, image)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("OCR timed out after %s", e.opts.OCRTimeout)
	}
	return pages, err
}

func (e *Extractor) assemble(outcomes []pageOutcome) pageText {
	var (
		pt      pageText
		parts   []string
		confSum float64
	)
	warn := func(msg string) {
		pt.warnings = append(pt.warnings, msg)
		if e.logger != nil {
			e.logger.Warn("OCR page dropped", "detail", msg)
		}
	}

	for i, o := range outcomes {
		if o.err != nil {
			pt.total++
			warn(fmt.Sprintf("page %d: OCR failed: %v", i+1, o.err))
			continue
		}
		for _, p := range o.pages {
			pt.total++
			if reason := e.rejectPage(p); reason != "" {
				warn(fmt.Sprintf("page %d: %s", p.Number, reason))
				continue
			}
			pt.used++
			confSum += p.Confidence
			parts = append(parts, p.Text)
		}
	}

	for i, part := range parts {
		if i > 0 {
			pt.body += "\n\n"
		}
		pt.body += part
	}
	if pt.used > 0 {
		avg := confSum / float64(pt.used)
		pt.confidence = &avg
	}
	return pt
}

func (e *Extractor) rejectPage(p OCRPage) string {
	alnum := textutil.AlnumCount(p.Text)
	if alnum == 0 {
		return "no text recognized"
	}
	visible := 0
	for _, r := range p.Text {
		if r != ' ' && r != '\n' && r != '\t' {
			visible++
		}
	}
	if float64(alnum)/float64(visible) < e.opts.MinPageAlnumRatio {
		return "output looks like noise"
	}
	if p.Confidence > 0 && p.Confidence < e.opts.MinPageConfidence {
		return fmt.Sprintf("confidence %.1f below threshold", p.Confidence)
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
