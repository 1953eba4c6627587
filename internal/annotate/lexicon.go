package annotate

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// swahiliStopwords are frequent Swahili function and content words. A token
// matching this set is always classified primary, overriding every English
// signal below; "sana" would otherwise trip the fuzzy matcher.
var swahiliStopwords = map[string]struct{}{
	"na": {}, "ya": {}, "wa": {}, "ni": {}, "kwa": {}, "la": {}, "za": {},
	"katika": {}, "kama": {}, "au": {}, "lakini": {}, "pia": {}, "sana": {},
	"tu": {}, "kwenye": {}, "bila": {}, "hii": {}, "hiyo": {}, "hilo": {},
	"hao": {}, "wale": {}, "hawa": {}, "mimi": {}, "wewe": {}, "yeye": {},
	"sisi": {}, "ninyi": {}, "wao": {}, "nini": {}, "nani": {}, "wapi": {},
	"lini": {}, "je": {}, "cha": {}, "vya": {}, "nchi": {}, "watu": {},
	"mtu": {}, "yake": {}, "yangu": {}, "yetu": {}, "moja": {}, "mbili": {},
	"tatu": {}, "nne": {}, "tano": {}, "ndiyo": {}, "hapana": {}, "sasa": {},
	"leo": {}, "jana": {}, "kesho": {}, "wakati": {}, "wengine": {},
	"ndani": {}, "nje": {}, "karibu": {}, "kweli": {}, "hapo": {}, "hapa": {},
	"ule": {}, "ile": {}, "kila": {}, "basi": {},
}

// englishIndicators are common English words whose presence strongly
// suggests a code-switch into English.
var englishIndicators = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "have": {},
	"has": {}, "had": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "can": {}, "may": {}, "must": {}, "do": {}, "does": {},
	"did": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"what": {}, "where": {}, "when": {}, "why": {}, "how": {}, "who": {},
	"which": {}, "and": {}, "but": {}, "or": {}, "so": {}, "because": {},
	"if": {}, "then": {}, "okay": {}, "sure": {}, "yes": {}, "no": {},
	"maybe": {}, "thanks": {}, "morning": {}, "afternoon": {},
	"evening": {},
}

// englishSuffixes are morphological endings that occur in English but not in
// Swahili word formation.
var englishSuffixes = []string{"ing", "ed", "tion", "ment"}

// defaultFuzzyThreshold is the Jaro-Winkler similarity above which a token
// is considered a misspelt English indicator. Tuned so that one-character
// recognition slips ("mornin" vs "morning") still match while unrelated
// Swahili words do not.
const defaultFuzzyThreshold = 0.92

// LexiconOption is a functional option for configuring a Lexicon.
type LexiconOption func(*Lexicon)

// WithFuzzyThreshold sets the Jaro-Winkler similarity threshold for fuzzy
// indicator matching. A threshold of 1.0 or above disables fuzzy matching.
func WithFuzzyThreshold(t float64) LexiconOption {
	return func(l *Lexicon) { l.fuzzyThreshold = t }
}

// Strict disables fuzzy indicator matching, so only exact lexicon hits,
// suffixes, and letter patterns classify a token as English.
func Strict() LexiconOption {
	return func(l *Lexicon) { l.fuzzyThreshold = 1.0 }
}

// Lexicon is a rule-based Classifier for English words embedded in Swahili
// speech. A token is English when it hits the indicator set (exactly or
// fuzzily), ends in an English-only suffix, or contains a letter absent from
// Swahili orthography; a Swahili stopword hit overrides all of these.
type Lexicon struct {
	fuzzyThreshold float64
}

// Compile-time assertion that Lexicon satisfies Classifier.
var _ Classifier = (*Lexicon)(nil)

// NewLexicon creates the default Swahili/English lexical classifier.
func NewLexicon(opts ...LexiconOption) *Lexicon {
	l := &Lexicon{fuzzyThreshold: defaultFuzzyThreshold}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Secondary implements Classifier.
func (l *Lexicon) Secondary(word string) bool {
	w := normalize(word)
	if w == "" {
		return false
	}

	if _, ok := swahiliStopwords[w]; ok {
		return false
	}
	if _, ok := englishIndicators[w]; ok {
		return true
	}

	// Swahili orthography has no x or q.
	if strings.ContainsAny(w, "xq") {
		return true
	}

	for _, suffix := range englishSuffixes {
		if len(w) > len(suffix)+1 && strings.HasSuffix(w, suffix) {
			return true
		}
	}

	if l.fuzzyThreshold < 1.0 && len(w) >= 4 {
		for indicator := range englishIndicators {
			if len(indicator) < 4 {
				continue
			}
			if matchr.JaroWinkler(w, indicator, false) >= l.fuzzyThreshold {
				return true
			}
		}
	}

	return false
}

// normalize lowercases the word and strips surrounding punctuation so that
// "Okay," classifies the same as "okay".
func normalize(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	return strings.Trim(w, ".,!?;:\"'()[]")
}
