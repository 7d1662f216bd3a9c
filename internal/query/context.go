package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkb-project/mkb/internal/index"
)

// CharsPerToken is the crude chars-per-token ratio the context assembler
// uses to turn a token budget into a character budget, matching common
// ballpark estimates for English prose.
const CharsPerToken = 4

// AssembleContext prioritizes rows for LLM consumption: sorted by
// confidence descending (ties broken by observed_at descending), emitted as
// full per-document sections until the character budget derived from
// maxTokens would be exceeded. Once the budget is hit, allowSummary governs
// whether the assembler switches to one bullet per remaining row or simply
// stops emitting full sections (truncating within budget).
func AssembleContext(rows []index.Row, maxTokens int, allowSummary bool) string {
	if len(rows) == 0 {
		return ""
	}

	sorted := make([]index.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].ObservedAt.After(sorted[j].ObservedAt)
	})

	maxChars := maxTokens * CharsPerToken

	var full strings.Builder
	emitted := 0
	for _, r := range sorted {
		section := formatContextSection(r)
		if full.Len()+len(section) > maxChars {
			break
		}
		full.WriteString(section)
		emitted++
	}

	if emitted == len(sorted) {
		return full.String()
	}

	if !allowSummary {
		return full.String()
	}

	const summaryHeader = "## Additional matches (summarized)\n\n"

	var out strings.Builder
	out.WriteString(full.String())
	if out.Len()+len(summaryHeader) > maxChars {
		// Budget too small even for the summary header: return whatever
		// full sections fit, still within budget.
		return full.String()
	}
	out.WriteString(summaryHeader)
	for _, r := range sorted[emitted:] {
		bullet := fmt.Sprintf("- **[%s] %s** (confidence: %.2f)\n", r.DocType, r.Title, r.Confidence)
		if out.Len()+len(bullet) > maxChars {
			break
		}
		out.WriteString(bullet)
	}
	return out.String()
}

func formatContextSection(r index.Row) string {
	return fmt.Sprintf("## [%s] %s\n*Observed: %s | Confidence: %.2f*\n\n%s\n\n---\n\n",
		r.DocType, r.Title, r.ObservedAt.Format("2006-01-02"), r.Confidence, r.Body)
}
