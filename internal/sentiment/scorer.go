// Package sentiment scores news text with a fixed finance lexicon. Scoring is
// deterministic: the same text always yields the same score and label.
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Label thresholds on the normalized score.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Score rates the given text and returns a score in [-1, 1] together with its
// label. Empty or entirely non-lexical text scores neutral zero.
func Score(text string) (float64, string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, LabelNeutral
	}

	var pos, neg int
	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
			continue
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	// Normalize by sqrt of token count so long articles with a few charged
	// words do not wash out to zero.
	score := float64(pos-neg) / math.Sqrt(float64(len(tokens)))
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}

	return score, labelFor(score)
}

func labelFor(score float64) string {
	switch {
	case score >= positiveThreshold:
		return LabelPositive
	case score <= negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
