package tagging

import (
	"regexp"
	"strings"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

// Categories assigned by the rule pass.
const (
	CategoryArticle     = "article"
	CategoryAnalysis    = "analysis"
	CategoryPodcast     = "podcast"
	CategoryEarnings    = "earnings"
	CategoryMergers     = "m-and-a"
	CategoryFundraising = "fundraising"
	CategoryLayoffs     = "layoffs"
	CategoryShutdown    = "shutdown"
	CategoryRegulation  = "regulation"
	CategoryLaunch      = "launch"
	CategoryInterview   = "interview"
	CategoryOpinion     = "opinion"
)

type keywordRule struct {
	value    string
	keywords []string
}

// Keywords are matched as substrings of the folded " title body " text, so a
// leading or trailing space anchors a keyword to a word edge. Punctuation in both
// text and keywords folds to a single space.
var categoryRules = []keywordRule{
	{CategoryEarnings, []string{"earnings", "quarterly results", "fiscal year", "revenue", "net income", "profit warning", "guidance"}},
	{CategoryMergers, []string{"acquire", "acquisition", "merger", " buys ", " bought ", "buyout", "takeover", "to merge"}},
	{CategoryFundraising, []string{" raises ", "funding round", "series a", "series b", "series c", "seed round", "investment round", "venture capital"}},
	{CategoryLayoffs, []string{"layoff", "lays off", "laid off", "job cuts", "redundancies", "restructuring"}},
	{CategoryShutdown, []string{"shut down", "shuts down", "shutting down", "closes its doors", "studio closure", "sunset"}},
	{CategoryRegulation, []string{"regulator", "antitrust", " ftc ", "lawsuit", "legislation", "loot box", "competition authority"}},
	{CategoryLaunch, []string{"launches", "launched", "release date", "now available", "soft launch", "global launch"}},
	{CategoryInterview, []string{"interview", " q&a "}},
	{CategoryOpinion, []string{"opinion", "op-ed", "editorial", "hot take"}},
}

var platformRules = []keywordRule{
	{"mobile", []string{"mobile", " ios ", "android", "iphone", "app store", "google play"}},
	{"pc", []string{" pc ", " pc,", "steam", "windows", "epic games store"}},
	{"console", []string{"console", "playstation", "xbox", "nintendo switch", " ps5 ", " ps4 "}},
	{"vr", []string{" vr ", " xr ", "virtual reality", "mixed reality", "meta quest", "vision pro"}},
	{"cloud", []string{"cloud gaming", "xcloud", "geforce now", "game streaming"}},
	{"web", []string{"browser game", "html5", "web game"}},
}

var themeRules = []keywordRule{
	{"ai", []string{" ai ", " ai-", " ai,", "artificial intelligence", "machine learning", "generative", " llm"}},
	{"live-service", []string{"live service", "live-service", "battle pass", "season pass", "games as a service"}},
	{"monetization", []string{"monetization", "monetisation", "microtransaction", "in-app purchase", "ad revenue", "subscription"}},
	{"ugc", []string{"user-generated", " ugc ", "creator economy", "modding"}},
	{"esports", []string{"esports", "e-sports", "tournament"}},
	{"web3", []string{"blockchain", " nft", "web3", "crypto"}},
	{"labor", []string{"union", "crunch", "layoff", "lays off", "laid off", "workers"}},
	{"transmedia", []string{"film adaptation", "tv series", "movie", "netflix", "streaming series"}},
}

var separators = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func init() {
	for _, table := range [][]keywordRule{categoryRules, platformRules, themeRules} {
		for i := range table {
			for j, kw := range table[i].keywords {
				table[i].keywords[j] = fold(kw)
			}
		}
	}
}

// fold lowercases s and turns every run of punctuation or whitespace into one space.
func fold(s string) string {
	return separators.ReplaceAllString(strings.ToLower(s), " ")
}

// Rules derives a tag bundle from keyword tables. It is pure and deterministic.
// Company is always empty; it is contributed by the AI pass only.
func Rules(title, body, sourceType string) domain.TagBundle {
	text := fold(" " + title + " " + body + " ")

	categories := []string{baseCategory(sourceType)}
	categories = append(categories, match(text, categoryRules)...)

	return domain.TagBundle{
		Category: domain.Union(categories),
		Platform: match(text, platformRules),
		Theme:    match(text, themeRules),
		Company:  []string{},
	}
}

func baseCategory(sourceType string) string {
	switch strings.ToLower(sourceType) {
	case domain.SourceTypeNewsletter, domain.SourceTypeAnalysis:
		return CategoryAnalysis
	case domain.SourceTypePodcast:
		return CategoryPodcast
	default:
		return CategoryArticle
	}
}

func match(text string, rules []keywordRule) []string {
	out := []string{}
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				out = append(out, rule.value)
				break
			}
		}
	}
	return out
}
