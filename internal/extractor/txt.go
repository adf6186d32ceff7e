package extractor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func extractPlainText(data []byte) string {
	return cleanText(decodeText(data))
}

// decodeText honours UTF-8 and UTF-16 byte order marks and falls back to
// Windows-1252 for bytes that are not valid UTF-8.
func decodeText(data []byte) string {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:])
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		if decoded, err := decodeWith(textunicode.UTF16(textunicode.LittleEndian, textunicode.UseBOM).NewDecoder(), data); err == nil {
			return decoded
		}
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		if decoded, err := decodeWith(textunicode.UTF16(textunicode.BigEndian, textunicode.UseBOM).NewDecoder(), data); err == nil {
			return decoded
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	if decoded, err := decodeWith(charmap.Windows1252.NewDecoder(), data); err == nil {
		return decoded
	}
	if decoded, err := decodeWith(charmap.ISO8859_1.NewDecoder(), data); err == nil {
		return decoded
	}

	return strings.ToValidUTF8(string(data), "")
}

func decodeWith(t transform.Transformer, data []byte) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// cleanText normalizes line endings, drops control characters, trims every
// line and keeps at most one blank line between paragraphs.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(cleaned) > 0 {
				cleaned = append(cleaned, "")
			}
			blank = true
			continue
		}
		blank = false
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
