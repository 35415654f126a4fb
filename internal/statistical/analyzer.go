// Package statistical scores AI likelihood from lexical signals alone. It is
// pure and deterministic: no I/O, no randomness, no clock.
package statistical

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/truecheckia/detector/internal/models"
)

const (
	baseScore = 30

	// Sentence-length variance below this (in words squared) reads as the
	// uniform cadence typical of generated prose. Only meaningful once a
	// text has a few sentences.
	uniformVarianceThreshold = 10.0
	minSentencesForVariance  = 4

	lowVocabularyRatio  = 0.45
	midVocabularyRatio  = 0.55
	minWordsForVocab    = 40
	minWordsForRegister = 60

	phraseHitWeight = 7
	maxPhraseScore  = 35
)

// Signals are the raw lexical indicators behind a statistical score.
type Signals struct {
	VocabularyRatio  float64 `json:"vocabulary_ratio"`
	SentenceVariance float64 `json:"sentence_variance"`
	AIPhraseHits     int     `json:"ai_phrase_hits"`
	InformalMarkers  int     `json:"informal_markers"`
	RepeatedBigrams  int     `json:"repeated_bigrams"`
}

// Result is the outcome of a statistical analysis.
type Result struct {
	Score           int
	Signals         Signals
	Indicators      []string
	SuspiciousParts []models.SuspiciousPart
	WordCount       int
	CharCount       int
}

// Analyzer computes statistical AI-likelihood scores.
type Analyzer struct {
	phrases  map[models.Language][]string
	informal map[models.Language][]string
}

// New creates an Analyzer with the built-in bilingual lexicons.
func New() *Analyzer {
	return &Analyzer{
		phrases:  aiPhrases(),
		informal: informalMarkers(),
	}
}

// Analyze scores the text. The caller is responsible for length validation;
// texts below the configured minimum must not reach this method.
func (a *Analyzer) Analyze(text string, lang models.Language) Result {
	lower := strings.ToLower(text)
	words := extractWords(lower)
	sentences := splitSentences(text)

	res := Result{
		WordCount: len(words),
		CharCount: len(text),
	}

	res.Signals.VocabularyRatio = vocabularyRatio(words)
	res.Signals.SentenceVariance = sentenceLengthVariance(sentences)
	res.Signals.AIPhraseHits = countMatches(lower, a.phrases[lang])
	res.Signals.InformalMarkers = countMatches(lower, a.informal[lang])
	res.Signals.RepeatedBigrams = repeatedBigrams(words)

	score := baseScore

	if len(sentences) >= minSentencesForVariance && res.Signals.SentenceVariance < uniformVarianceThreshold {
		score += 20
		res.Indicators = append(res.Indicators, "uniform sentence lengths")
	}

	if res.WordCount >= minWordsForVocab {
		switch {
		case res.Signals.VocabularyRatio < lowVocabularyRatio:
			score += 15
			res.Indicators = append(res.Indicators, "low vocabulary diversity")
		case res.Signals.VocabularyRatio < midVocabularyRatio:
			score += 8
			res.Indicators = append(res.Indicators, "reduced vocabulary diversity")
		}
	}

	if res.Signals.AIPhraseHits > 0 {
		score += phraseScore(res.Signals.AIPhraseHits)
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("%d typical AI transition phrases", res.Signals.AIPhraseHits))
	}

	if res.Signals.InformalMarkers > 0 {
		score -= 10
	} else if res.WordCount >= minWordsForRegister {
		score += 5
		res.Indicators = append(res.Indicators, "no informal register markers")
	}

	if res.Signals.RepeatedBigrams > 2 {
		score += 10
		res.Indicators = append(res.Indicators, "repetitive phrasing")
	}

	res.Score = clampScore(score)
	res.SuspiciousParts = a.suspiciousParts(sentences, lang)
	return res
}

// phraseScore converts an AI-phrase hit count into a score contribution.
// Monotonic: more hits never lower the score.
func phraseScore(hits int) int {
	s := hits * phraseHitWeight
	if s > maxPhraseScore {
		return maxPhraseScore
	}
	return s
}

// suspiciousParts flags individual sentences containing AI phrases.
func (a *Analyzer) suspiciousParts(sentences []string, lang models.Language) []models.SuspiciousPart {
	var parts []models.SuspiciousPart
	for _, s := range sentences {
		hits := countMatches(strings.ToLower(s), a.phrases[lang])
		if hits == 0 {
			continue
		}
		score := 55 + 15*hits
		if score > 100 {
			score = 100
		}
		parts = append(parts, models.SuspiciousPart{
			Text:  strings.TrimSpace(s),
			Score: score,
		})
	}
	return parts
}

var (
	wordRegexp     = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	sentenceRegexp = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// extractWords tokenizes lowercased text into words.
func extractWords(lower string) []string {
	cleaned := wordRegexp.ReplaceAllString(lower, " ")
	return strings.Fields(cleaned)
}

// splitSentences splits text into sentences on terminal punctuation.
func splitSentences(text string) []string {
	raw := sentenceRegexp.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// vocabularyRatio is unique words over total words.
func vocabularyRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}

// sentenceLengthVariance is the population variance of sentence word counts.
func sentenceLengthVariance(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	lengths := make([]float64, 0, len(sentences))
	sum := 0.0
	for _, s := range sentences {
		n := float64(len(strings.Fields(s)))
		lengths = append(lengths, n)
		sum += n
	}
	mean := sum / float64(len(lengths))
	variance := 0.0
	for _, n := range lengths {
		d := n - mean
		variance += d * d
	}
	return variance / float64(len(lengths))
}

// countMatches counts case-insensitive substring occurrences of each needle.
func countMatches(lower string, needles []string) int {
	count := 0
	for _, n := range needles {
		count += strings.Count(lower, n)
	}
	return count
}

// repeatedBigrams counts distinct word pairs appearing three or more times.
func repeatedBigrams(words []string) int {
	if len(words) < 2 {
		return 0
	}
	freq := make(map[string]int)
	for i := 0; i < len(words)-1; i++ {
		freq[words[i]+" "+words[i+1]]++
	}
	repeated := 0
	for _, c := range freq {
		if c >= 3 {
			repeated++
		}
	}
	return repeated
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
