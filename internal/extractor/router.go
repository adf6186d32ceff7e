package extractor

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
	"github.com/gabriel-vasile/mimetype"
)

type Strategy string

const (
	StrategyNativePDF   Strategy = "native-pdf"
	StrategyOCRImage    Strategy = "ocr-image"
	StrategyOCRPDF      Strategy = "ocr-pdf"
	StrategySpreadsheet Strategy = "spreadsheet"
	StrategyPlainText   Strategy = "plain-text"
	StrategyDOCX        Strategy = "docx"
)

// Route is the router's decision for one input.
type Route struct {
	Strategy    Strategy `json:"strategy"`
	RequiresOCR bool     `json:"requires_ocr"`
	Format      string   `json:"format"`
	MIMEType    string   `json:"mime_type"`

	// nativeText caches the PDF text-layer check so extraction does not parse twice.
	nativeText string
}

type format struct {
	name     string
	mimeType string
	strategy Strategy
}

var formatsByExt = map[string]format{
	".pdf":  {"pdf", "application/pdf", StrategyNativePDF},
	".png":  {"png", "image/png", StrategyOCRImage},
	".jpg":  {"jpeg", "image/jpeg", StrategyOCRImage},
	".jpeg": {"jpeg", "image/jpeg", StrategyOCRImage},
	".tif":  {"tiff", "image/tiff", StrategyOCRImage},
	".tiff": {"tiff", "image/tiff", StrategyOCRImage},
	".bmp":  {"bmp", "image/bmp", StrategyOCRImage},
	".gif":  {"gif", "image/gif", StrategyOCRImage},
	".webp": {"webp", "image/webp", StrategyOCRImage},
	".xlsx": {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", StrategySpreadsheet},
	".xlsm": {"xlsx", "application/vnd.ms-excel.sheet.macroEnabled.12", StrategySpreadsheet},
	".csv":  {"csv", "text/csv", StrategySpreadsheet},
	".tsv":  {"tsv", "text/tab-separated-values", StrategySpreadsheet},
	".txt":  {"txt", "text/plain", StrategyPlainText},
	".text": {"txt", "text/plain", StrategyPlainText},
	".md":   {"txt", "text/markdown", StrategyPlainText},
	".log":  {"txt", "text/plain", StrategyPlainText},
	".docx": {"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", StrategyDOCX},
}

var formatsByMIME = map[string]string{
	"application/pdf":           ".pdf",
	"image/png":                 ".png",
	"image/jpeg":                ".jpg",
	"image/jpg":                 ".jpg",
	"image/tiff":                ".tiff",
	"image/bmp":                 ".bmp",
	"image/gif":                 ".gif",
	"image/webp":                ".webp",
	"text/csv":                  ".csv",
	"application/csv":           ".csv",
	"text/tab-separated-values": ".tsv",
	"text/plain":                ".txt",
	"text/txt":                  ".txt",
	"application/txt":           ".txt",
	"text/markdown":             ".md",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml":          ".docx",
	"application/docx":   ".docx",
	"application/x-docx": ".docx",
}

type RouterOptions struct {
	// MinNativeTextChars is the alphanumeric yield below which a PDF is
	// treated as scanned.
	MinNativeTextChars int
	// MinPrintableRatio is the share of printable runes a native PDF text
	// layer must reach to be trusted.
	MinPrintableRatio float64
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{MinNativeTextChars: 50, MinPrintableRatio: 0.85}
}

type Router struct {
	opts RouterOptions
}

func NewRouter(opts RouterOptions) *Router {
	if opts.MinNativeTextChars <= 0 {
		opts.MinNativeTextChars = DefaultRouterOptions().MinNativeTextChars
	}
	if opts.MinPrintableRatio <= 0 {
		opts.MinPrintableRatio = DefaultRouterOptions().MinPrintableRatio
	}
	return &Router{opts: opts}
}

// Route picks an extraction strategy from the file extension, then the
// declared MIME type, then the content itself.
func (r *Router) Route(data []byte, filename, declaredType string) (Route, error) {
	f, ok := lookupFormat(data, filename, declaredType)
	if !ok {
		return Route{}, utils.Wrap(utils.ErrUnsupportedFormat, "router", "",
			describeInput(filename, declaredType), nil)
	}

	route := Route{
		Strategy:    f.strategy,
		RequiresOCR: f.strategy == StrategyOCRImage,
		Format:      f.name,
		MIMEType:    f.mimeType,
	}

	if f.strategy == StrategyNativePDF && len(data) > 0 {
		text, err := extractNativePDF(data)
		if err != nil || !r.denseEnough(text) {
			route.Strategy = StrategyOCRPDF
			route.RequiresOCR = true
		} else {
			route.nativeText = text
		}
	}

	return route, nil
}

func (r *Router) denseEnough(text string) bool {
	return textutil.AlnumCount(text) >= r.opts.MinNativeTextChars &&
		textutil.PrintableRatio(text) >= r.opts.MinPrintableRatio
}

func lookupFormat(data []byte, filename, declaredType string) (format, bool) {
	if f, ok := formatsByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, true
	}
	if ext, ok := formatsByMIME[baseMIME(declaredType)]; ok {
		return formatsByExt[ext], true
	}
	if len(data) == 0 {
		return format{}, false
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if ext, ok := formatsByMIME[baseMIME(m.String())]; ok {
			return formatsByExt[ext], true
		}
	}
	return format{}, false
}

func baseMIME(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func describeInput(filename, declaredType string) string {
	switch {
	case filename != "" && declaredType != "":
		return filename + " (" + declaredType + ")"
	case filename != "":
		return filename
	case declaredType != "":
		return declaredType
	default:
		return "unrecognized content"
	}
}

// SupportedExtensions lists the file extensions the router accepts.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formatsByExt))
	for ext := range formatsByExt {
		exts = append(exts, ext)
	}
	return exts
}
