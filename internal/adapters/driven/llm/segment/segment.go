// Package segment implements the wire encoding shared by the LLM
// provider adapters: fragments travel as marker-delimited segments and
// come back the same way, so responses map to fragments explicitly
// rather than by position (providers may reorder or drop items).
//
// Markers carry ordinal aliases, never caller-assigned ids. An id
// containing the delimiter characters therefore cannot corrupt the
// framing; aliases are mapped back to real ids after decoding.
package segment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

// markerPattern matches a segment delimiter on its own line.
var markerPattern = regexp.MustCompile(`(?m)^[ \t]*<<SEG (\d+)>>[ \t]*$`)

// Encode serialises fragments as a marker-delimited payload. Aliases
// are 1-based positions within the sub-batch.
func Encode(fragments []domain.Fragment) string {
	var b strings.Builder
	for i, f := range fragments {
		fmt.Fprintf(&b, "<<SEG %d>>\n%s\n", i+1, f.Original)
	}
	return b.String()
}

// SystemPrompt returns the translation instruction for one batch job.
// The register is tuned for slide decks: natural phrasing, formatting
// such as bullets and numbering preserved.
func SystemPrompt(job driven.BatchJob) string {
	from := "the detected source language"
	if job.SourceLanguage != "" && job.SourceLanguage != domain.SourceLanguageAuto {
		from = fmt.Sprintf("%q", job.SourceLanguage)
	}

	return fmt.Sprintf(`You are a professional translator working on presentation slides.
Translate each segment below from %s into %q.
Segments are delimited by lines of the form <<SEG n>>.
Reply with every segment translated, each preceded by its unchanged <<SEG n>> line, and nothing else.
Keep translations natural and appropriate for slides. Preserve bullet points, numbering and line breaks within each segment.`,
		from, job.TargetLanguage)
}

// MaxTokens estimates a completion budget for a payload. Translations
// rarely exceed the source length by much; the floor keeps short
// batches from being truncated by an overly tight limit.
func MaxTokens(payload string) int {
	est := 1024 + len(payload)/3
	if est > 8192 {
		est = 8192
	}
	return est
}

// Decode parses a provider response back into one item per fragment,
// in sub-batch order. A missing or empty segment means the provider
// dropped part of the batch: the whole sub-batch fails with
// domain.ErrIncompleteResponse so it can be retried intact.
func Decode(body string, fragments []domain.Fragment) ([]driven.BatchItem, error) {
	locs := markerPattern.FindAllStringSubmatchIndex(body, -1)

	texts := make(map[int]string, len(locs))
	for i, loc := range locs {
		alias, err := strconv.Atoi(body[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, dup := texts[alias]; dup {
			continue
		}
		texts[alias] = strings.TrimSpace(body[loc[1]:end])
	}

	items := make([]driven.BatchItem, 0, len(fragments))
	missing := 0
	for i, f := range fragments {
		text, ok := texts[i+1]
		if !ok || text == "" {
			missing++
			continue
		}
		items = append(items, driven.BatchItem{ID: f.ID, Translated: text})
	}

	if missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d segments missing", domain.ErrIncompleteResponse, missing, len(fragments))
	}
	return items, nil
}
