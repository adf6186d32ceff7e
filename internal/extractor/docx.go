package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractDOCX walks word/document.xml as a token stream so paragraphs and
// table rows keep their document order. Table cells are joined with " | ".
func extractDOCX(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}
	if documentFile == nil {
		return "", fmt.Errorf("document.xml not found in DOCX")
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer xmlFile.Close()

	var (
		out    strings.Builder
		para   strings.Builder
		cells  []string
		inRow  bool
		inRun  bool
		inText bool
	)

	decoder := xml.NewDecoder(xmlFile)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab", "br", "cr":
				// tab stop definitions in paragraph properties are not runs
				if !inRun {
					continue
				}
				if t.Name.Local == "tab" {
					para.WriteByte('\t')
				} else {
					para.WriteByte('\n')
				}
			case "tr":
				inRow = true
				cells = cells[:0]
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				if inRow {
					// cell paragraphs are joined when the cell closes
					para.WriteByte(' ')
					continue
				}
				out.WriteString(strings.TrimSpace(para.String()))
				out.WriteByte('\n')
				para.Reset()
			case "tc":
				cells = append(cells, strings.TrimSpace(para.String()))
				para.Reset()
			case "tr":
				out.WriteString(strings.Join(cells, " | "))
				out.WriteByte('\n')
				inRow = false
			case "tbl":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return out.String(), nil
}
