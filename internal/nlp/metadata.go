package nlp

import (
	"regexp"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

var (
	invoiceNumberRe = regexp.MustCompile(`(?i)invoice\s*(?:#|no\.?|number|num\.?)\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{2,})`)
	amountRe        = regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d{2})?`)
	totalRe         = regexp.MustCompile(`(?i)\b(?:grand\s+)?total(?:\s+amount)?(?:\s+due)?\s*:?\s*([$€£]\s?\d[\d,]*(?:\.\d{2})?)`)
	partiesRe       = regexp.MustCompile(`(?i)\bbetween\s+([A-Z][^,;\n]{1,80}?)\s+and\s+([A-Z][^,;.\n(]{1,80})`)
	effectiveDateRe = regexp.MustCompile(`(?i)\beffective\s+(?:as\s+of\s+|date\s*:?\s*|from\s+|on\s+)?`)
	transactionRe   = regexp.MustCompile(`(?i)\b(?:transaction|txn|trans)\s*(?:id|#|no\.?|number)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`)
)

// ExtractCategoryMetadata pulls the fields that matter for the detected
// category. Unknown categories yield an empty result.
func ExtractCategoryMetadata(category, text string, entities models.EntityCollection) models.CategoryMetadata {
	var md models.CategoryMetadata
	dates := entities.UniqueEntities[models.EntityDate]

	switch category {
	case "invoice":
		if m := invoiceNumberRe.FindStringSubmatch(text); m != nil {
			md.InvoiceNumber = m[1]
		}
		md.Amounts = uniqueMatches(amountRe, text, 10)
		if m := totalRe.FindStringSubmatch(text); m != nil {
			md.TotalAmount = strings.TrimSpace(m[1])
		}
		md.Dates = firstN(dates, 5)
	case "contract":
		if m := partiesRe.FindStringSubmatch(text); m != nil {
			md.Parties = []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])}
		}
		md.EffectiveDate = effectiveDate(text, entities)
		md.Dates = firstN(dates, 5)
	case "receipt":
		if m := transactionRe.FindStringSubmatch(text); m != nil {
			md.TransactionID = m[1]
		}
		md.Amounts = uniqueMatches(amountRe, text, 10)
		if m := totalRe.FindStringSubmatch(text); m != nil {
			md.TotalAmount = strings.TrimSpace(m[1])
		}
	case "statement", "report":
		md.Dates = firstN(dates, 5)
	}
	return md
}

// effectiveDate returns the first DATE entity that starts right after an
// "effective" phrase.
func effectiveDate(text string, entities models.EntityCollection) string {
	for _, loc := range effectiveDateRe.FindAllStringIndex(text, -1) {
		for _, e := range entities.Entities {
			if e.Type == models.EntityDate && e.Start >= loc[1] && e.Start <= loc[1]+2 {
				return e.Text
			}
		}
	}
	return ""
}

func uniqueMatches(re *regexp.Regexp, text string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
