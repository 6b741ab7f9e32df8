package classify

import (
	"math"
	"strings"
	"unicode"
)

// Category is an immigration notice classification.
type Category string

const (
	Visa           Category = "Visa"
	Residence      Category = "Residence"
	Naturalization Category = "Naturalization"
	Employment     Category = "Employment"
	Notice         Category = "Notice"
)

// FallbackConfidence is reported when no keyword matched.
const FallbackConfidence = 30

// AllCategories returns all valid categories in canonical order.
func AllCategories() []Category {
	return []Category{Visa, Residence, Naturalization, Employment, Notice}
}

var categoryKeywords = map[Category][]string{
	Visa: {
		"visa", "visas", "entry", "landing", "eta", "waiver", "nomad",
		"certificate of eligibility", "visitor",
		"ビザ", "査証", "上陸", "在留資格認定証明書",
	},
	Residence: {
		"residence", "resident", "renewal", "extension", "status", "card",
		"permanent", "re-entry", "reentry", "period of stay",
		"在留", "永住", "更新", "在留カード", "再入国",
	},
	Naturalization: {
		"naturalization", "naturalisation", "citizenship", "nationality",
		"帰化", "国籍",
	},
	Employment: {
		"employment", "work", "worker", "workers", "skilled", "trainee",
		"intern", "labor", "labour", "employer", "highly skilled", "specified skilled",
		"就労", "特定技能", "技能実習", "高度専門職", "育成就労",
	},
	Notice: {
		"notice", "announcement", "closure", "holiday", "maintenance", "office hours",
		"お知らせ", "休館", "窓口",
	},
}

// Classify determines the category for an item from its title and description
// and a confidence between 0 and 100. Title keywords are weighted 2x.
// Items without any keyword hit fall back to Notice.
func Classify(title, description string) (Category, float64) {
	titleTokens := tokenize(title)
	descTokens := tokenize(description)
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	var bestCat Category
	bestScore := 0

	for _, cat := range AllCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if isWord(kw) {
				for _, t := range titleTokens {
					if t == kw {
						score += 2
					}
				}
				for _, t := range descTokens {
					if t == kw {
						score++
					}
				}
				continue
			}
			// Phrases and Japanese terms are matched against the raw text.
			if strings.Contains(titleLower, kw) {
				score += 2
			}
			if strings.Contains(descLower, kw) {
				score++
			}
		}
		// Strictly greater keeps the earlier category on ties.
		if score > bestScore {
			bestScore = score
			bestCat = cat
		}
	}

	if bestScore == 0 {
		return Notice, FallbackConfidence
	}
	return bestCat, Confidence(bestScore)
}

// Confidence maps a keyword score to a 0-100 confidence.
func Confidence(score int) float64 {
	if score <= 0 {
		return FallbackConfidence
	}
	return math.Min(100, 40+15*float64(score))
}

// isWord reports whether kw is a single ASCII word matched token by token.
func isWord(kw string) bool {
	for _, r := range kw {
		if r > unicode.MaxASCII || r == ' ' {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
