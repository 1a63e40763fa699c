// Package similarity normalises headlines into comparable word sets.
package similarity

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}$%\s]+`)

var stopWords = toSet(
	"a", "an", "the", "and", "or", "but", "nor", "of", "in", "on", "at", "to", "for", "from",
	"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this",
	"that", "these", "those", "has", "have", "had", "will", "would", "could", "should", "can",
	"may", "might", "into", "over", "after", "before", "about", "than", "then", "up", "out",
	"new", "says", "said", "via", "amid", "vs", "not", "no", "so", "if", "all", "more", "just",
	"how", "why", "what", "who", "when", "where", "which", "we", "you", "they", "he", "she",
	"his", "her", "their", "our", "your", "report", "reportedly",
)

// aliases collapse abbreviations, fragments of multi-word company names and
// common synonyms onto one canonical token.
var aliases = map[string]string{
	// companies
	"ea":          "electronic arts",
	"electronic":  "electronic arts",
	"arts":        "electronic arts",
	"taketwo":     "take-two",
	"t2":          "take-two",
	"ttwo":        "take-two",
	"msft":        "microsoft",
	"xbox":        "microsoft",
	"ms":          "microsoft",
	"playstation": "sony",
	"ps5":         "sony",
	"sie":         "sony",
	"riot":        "riot games",
	"epic":        "epic games",
	"rockstar":    "rockstar games",
	"ubi":         "ubisoft",
	"ubisofts":    "ubisoft",
	"tencents":    "tencent",
	"nintendos":   "nintendo",
	"activision":  "activision blizzard",
	"blizzard":    "activision blizzard",
	"atvi":        "activision blizzard",
	"embracer":    "embracer group",
	"savvy":       "savvy games",
	"rblx":        "roblox",
	"steam":       "valve",

	// synonyms
	"acquires":    "acquire",
	"acquired":    "acquire",
	"acquiring":   "acquire",
	"acquisition": "acquire",
	"buys":        "acquire",
	"buy":         "acquire",
	"bought":      "acquire",
	"purchases":   "acquire",
	"layoff":      "layoffs",
	"lays":        "layoffs",
	"cuts":        "layoffs",
	"raises":      "raise",
	"raised":      "raise",
	"funding":     "raise",
	"launches":    "launch",
	"launched":    "launch",
	"releases":    "launch",
	"released":    "launch",
	"shuts":       "shutdown",
	"closes":      "shutdown",
	"closing":     "shutdown",
}

// ExtractWords lowercases a title, strips punctuation other than $ and %, drops
// single-character tokens and stop words, and maps the rest through the alias table.
func ExtractWords(title string) map[string]struct{} {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(title), "")
	words := map[string]struct{}{}
	for _, token := range strings.Fields(cleaned) {
		if len([]rune(token)) <= 1 {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if canonical, ok := aliases[token]; ok {
			token = canonical
		}
		words[token] = struct{}{}
	}
	return words
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
