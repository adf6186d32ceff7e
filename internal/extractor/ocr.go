package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// OCRPage is the recognized text of one raster page with the mean word
// confidence on a 0-100 scale.
type OCRPage struct {
	Number     int
	Text       string
	Confidence float64
}

// OCREngine recognizes text in an image. Multi-page images (TIFF) yield one
// OCRPage per page.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) ([]OCRPage, error)
}

// TesseractEngine shells out to the tesseract binary and parses its TSV
// output.
type TesseractEngine struct {
	Path      string
	Languages string
}

func NewTesseractEngine(path, languages string) *TesseractEngine {
	if path == "" {
		path = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &TesseractEngine{Path: path, Languages: languages}
}

func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) ([]OCRPage, error) {
	cmd := exec.CommandContext(ctx, t.Path, "stdin", "stdout", "-l", t.Languages, "tsv")
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseTesseractTSV(stdout.String())
}

type lineKey struct {
	block, par, line int
}

// parseTesseractTSV rebuilds page text from word rows (level 5). Words on
// the same line are joined by spaces and blocks are separated by a blank line.
func parseTesseractTSV(tsv string) ([]OCRPage, error) {
	type pageAcc struct {
		text    strings.Builder
		last    lineKey
		started bool
		confSum float64
		confN   int
	}
	pages := map[int]*pageAcc{}

	rows := strings.Split(tsv, "\n")
	for i, row := range rows {
		if i == 0 && strings.HasPrefix(row, "level") {
			continue
		}
		fields := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(fields) < 12 {
			continue
		}
		ints := make([]int, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.Atoi(fields[j])
			if err != nil {
				return nil, fmt.Errorf("malformed tesseract row %d: %w", i, err)
			}
			ints[j] = v
		}
		level, pageNum := ints[0], ints[1]
		acc, ok := pages[pageNum]
		if !ok {
			acc = &pageAcc{}
			pages[pageNum] = acc
		}
		if level != 5 {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err == nil && conf >= 0 {
			acc.confSum += conf
			acc.confN++
		}

		key := lineKey{block: ints[2], par: ints[3], line: ints[4]}
		switch {
		case !acc.started:
			acc.started = true
		case key.block != acc.last.block:
			acc.text.WriteString("\n\n")
		case key != acc.last:
			acc.text.WriteByte('\n')
		default:
			acc.text.WriteByte(' ')
		}
		acc.last = key
		acc.text.WriteString(word)
	}

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	out := make([]OCRPage, 0, len(numbers))
	for _, n := range numbers {
		acc := pages[n]
		page := OCRPage{Number: n, Text: acc.text.String()}
		if acc.confN > 0 {
			page.Confidence = acc.confSum / float64(acc.confN)
		}
		out = append(out, page)
	}
	return out, nil
}
