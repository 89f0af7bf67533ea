package scraper

import (
	"regexp"
	"strings"
)

// BotDetector recognises interstitial pages that carry no product data
type BotDetector struct {
	patterns []weightedPattern
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

// NewBotDetector creates a new bot detector
func NewBotDetector() *BotDetector {
	bot := func(p string) weightedPattern { return weightedPattern{regexp.MustCompile(`(?i)` + p), 0.3} }
	captcha := func(p string) weightedPattern { return weightedPattern{regexp.MustCompile(`(?i)` + p), 0.5} }
	block := func(p string) weightedPattern { return weightedPattern{regexp.MustCompile(`(?i)` + p), 0.4} }

	return &BotDetector{
		patterns: []weightedPattern{
			bot(`access denied`),
			bot(`bot detected`),
			bot(`checking your browser`),
			bot(`too many requests`),
			bot(`sorry, we just need to make sure you're not a robot`),
			bot(`to discuss automated access to amazon data`),
			captcha(`captcha`),
			captcha(`verify you are human`),
			captcha(`type the characters you see`),
			block(`403 forbidden`),
			block(`429 too many requests`),
			block(`503 service unavailable`),
		},
	}
}

// IsBotWall reports whether the page looks like a block or CAPTCHA page,
// along with the patterns that matched
func (bd *BotDetector) IsBotWall(pageContent, pageTitle string) (bool, string) {
	content := strings.ToLower(pageTitle + " " + pageContent)

	score := 0.0
	var reasons []string
	for _, p := range bd.patterns {
		if p.re.MatchString(content) {
			score += p.weight
			reasons = append(reasons, p.re.String()[4:])
		}
	}

	// short pages with any hit are almost always interstitials
	if score > 0 && len(content) < 1000 {
		score += 0.2
	}

	return score > 0.3, strings.Join(reasons, "; ")
}
