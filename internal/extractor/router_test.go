package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

func TestRouteByExtension(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	cases := []struct {
		filename string
		strategy Strategy
		ocr      bool
	}{
		{"scan.PNG", StrategyOCRImage, true},
		{"photo.jpeg", StrategyOCRImage, true},
		{"ledger.xlsx", StrategySpreadsheet, false},
		{"ledger.csv", StrategySpreadsheet, false},
		{"notes.txt", StrategyPlainText, false},
		{"memo.docx", StrategyDOCX, false},
	}
	for _, tc := range cases {
		route, err := r.Route([]byte("x"), tc.filename, "")
		require.NoError(t, err, tc.filename)
		assert.Equal(t, tc.strategy, route.Strategy, tc.filename)
		assert.Equal(t, tc.ocr, route.RequiresOCR, tc.filename)
	}
}

func TestRouteByDeclaredType(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	route, err := r.Route([]byte("a,b\n1,2\n"), "upload", "text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, StrategySpreadsheet, route.Strategy)
	assert.Equal(t, "csv", route.Format)
}

func TestRouteBySniffing(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	route, err := r.Route(png, "blob", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, StrategyOCRImage, route.Strategy)

	route, err = r.Route([]byte("just some words in a file"), "blob", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyPlainText, route.Strategy)
}

func TestRouteUnsupported(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	_, err := r.Route([]byte{0x4d, 0x5a, 0x90, 0x00, 0x03}, "setup.exe", "application/x-msdownload")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "setup.exe")
}

func TestRoutePDFWithoutTextLayerFallsBackToOCR(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	route, err := r.Route([]byte("%PDF-1.4\nnot a real document"), "scan.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, StrategyOCRPDF, route.Strategy)
	assert.True(t, route.RequiresOCR)
}

func TestRouteEmptyPDFStaysNative(t *testing.T) {
	r := NewRouter(DefaultRouterOptions())

	route, err := r.Route(nil, "empty.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyNativePDF, route.Strategy)
	assert.False(t, route.RequiresOCR)
}

func TestDenseEnough(t *testing.T) {
	r := NewRouter(RouterOptions{MinNativeTextChars: 10, MinPrintableRatio: 0.9})

	assert.True(t, r.denseEnough("This page has plenty of readable text."))
	assert.False(t, r.denseEnough("  12  "))
	assert.False(t, r.denseEnough("abcdefghijkl\x00\x01\x02\x03\x04\x05\x06\x07"))
}
