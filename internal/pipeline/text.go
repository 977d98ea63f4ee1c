package pipeline

import (
	"strings"
	"time"

	"earworm/internal/domain"
)

// wordSpacing is shorter than any sensible comma pause, so typed text never
// gains pause commas.
const wordSpacing = 250 * time.Millisecond

// FromText turns typed text into a transcript with evenly spaced words, for
// running the pipeline without an engine.
func FromText(text string) domain.RawTranscript {
	words := strings.Fields(text)
	tokens := make([]domain.Token, 0, len(words))
	for i, word := range words {
		start := time.Duration(i) * wordSpacing
		tokens = append(tokens, domain.Token{Text: word, Start: start, End: start + wordSpacing*4/5, Confidence: 1})
	}
	return domain.RawTranscript{Tokens: tokens}
}
