package services

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/models"
)

// MaxClassifiableLength caps input length for regex classification. Longer
// messages are never small talk and are rejected before any pattern runs.
const MaxClassifiableLength = 1000

// DefaultRegexBudget bounds a single pattern evaluation attempt. Go's regexp
// is RE2 (linear time), so the budget is defense in depth against untrusted
// free text rather than a backtracking guard.
const DefaultRegexBudget = 50 * time.Millisecond

// intentGroup is an ordered set of patterns mapping to one intent.
type intentGroup struct {
	intent   models.IntentType
	patterns []*regexp.Regexp
}

// Patterns are anchored to the full trimmed message so that etiquette words
// embedded in a domain question ("oi doutor, estou com dor") never match.
// The platform locale is pt-BR; common English forms are included because
// tenants see both.
var intentGroups = []intentGroup{
	{
		intent: models.IntentGreeting,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(oi+|ol[áa]+|opa+|e a[íi]\??)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(bom dia|boa tarde|boa noite)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(hello+|hi+|hey+|good (morning|afternoon|evening))[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(oi|ol[áa])[\s,]+(tudo bem|td bem|tudo bom)\??[\s!.]*$`),
			regexp.MustCompile(`(?i)^(tudo bem|tudo bom|como vai|como você está|como vc ta)\??[\s!.]*$`),
		},
	},
	{
		intent: models.IntentThanks,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(muito\s+)?(obrigad[oaã]+|obg|brigad[oaã]+)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(valeu+|vlw|agradecid[oa])[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(thanks+|thank you( (so|very) much)?|thx)[\s!.,]*$`),
		},
	},
	{
		intent: models.IntentFarewell,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(tchau+|xau+|adeus|falou+|flw)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(at[ée] (mais|logo|amanh[ãa]|breve))[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(bye+|goodbye|see you( later)?)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(uma )?(boa noite|bom descanso), (tchau|at[ée] (mais|logo))[\s!.,]*$`),
		},
	},
	{
		intent: models.IntentMenu,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(ajuda|menu|op[çc][õo]es)\??[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(o que (voc[êe]|vc) (faz|sabe fazer|pode fazer))\??[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(como (voc[êe]|vc) (pode )?me ajudar?)\??[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(help|what can you do)\??[\s!.,]*$`),
		},
	},
	{
		intent: models.IntentOffTopic,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^((voc[êe]|vc) [ée] (um )?(rob[ôo]|bot|humano|pessoa( de verdade)?))\??[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(qual( [ée])? (o )?seu nome)\??[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(conta uma piada|me conta uma piada)[\s!.,]*$`),
			regexp.MustCompile(`(?i)^(are you a (robot|bot|human))\??[\s!.,]*$`),
		},
	},
}

// RegexIntentMatcher performs zero-cost classification of common
// conversational noise before any network call happens.
type RegexIntentMatcher struct {
	budget time.Duration
	logger *zap.Logger
}

// NewRegexIntentMatcher creates a matcher with the given per-pattern budget.
// A non-positive budget falls back to DefaultRegexBudget.
func NewRegexIntentMatcher(budget time.Duration, logger *zap.Logger) *RegexIntentMatcher {
	if budget <= 0 {
		budget = DefaultRegexBudget
	}
	return &RegexIntentMatcher{
		budget: budget,
		logger: logger.Named("regex-matcher"),
	}
}

// Classify returns the matched intent with confidence 1.0, or nil when no
// pattern matches. Emoji-only input is checked first and is the only case
// that may carry confidence 1.0 by the "never certain" convention elsewhere.
func (m *RegexIntentMatcher) Classify(message string) *models.IntentClassification {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) > MaxClassifiableLength {
		return nil
	}

	if isEmojiOnly(trimmed) {
		return &models.IntentClassification{
			Type:       models.IntentEmoji,
			Confidence: 1.0,
			NeedsLLM:   false,
		}
	}

	for _, group := range intentGroups {
		for _, pattern := range group.patterns {
			matched, timedOut := m.matchWithBudget(pattern, trimmed)
			if timedOut {
				m.logger.Warn("Pattern evaluation exceeded budget, treating as non-match",
					zap.String("pattern", pattern.String()))
				continue
			}
			if matched {
				return &models.IntentClassification{
					Type:       group.intent,
					Confidence: 1.0,
					NeedsLLM:   false,
				}
			}
		}
	}

	return nil
}

// matchWithBudget evaluates one pattern under the time budget. Exhausting the
// budget is a non-match, not an error.
func (m *RegexIntentMatcher) matchWithBudget(pattern *regexp.Regexp, input string) (matched, timedOut bool) {
	done := make(chan bool, 1)

	go func() {
		done <- pattern.MatchString(input)
	}()

	timer := time.NewTimer(m.budget)
	defer timer.Stop()

	select {
	case result := <-done:
		return result, false
	case <-timer.C:
		return false, true
	}
}

// isEmojiOnly reports whether the message consists solely of emoji (plus
// whitespace and emoji modifiers) and contains no digit. A digit anywhere
// disqualifies the message: "option 1 👍" is an answer, not an acknowledgement.
func isEmojiOnly(s string) bool {
	hasEmoji := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			return false
		}
		switch {
		case unicode.IsSpace(r):
			continue
		case isEmojiRune(r):
			hasEmoji = true
		default:
			return false
		}
	}
	return hasEmoji
}

// isEmojiRune covers the Unicode blocks emoji are drawn from, plus the
// joiners and modifiers that compose them.
func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // Misc symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // Emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // Transport and map
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // Supplemental symbols and pictographs
		return true
	case r >= 0x1FA70 && r <= 0x1FAFF: // Symbols and pictographs extended-A
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // Regional indicators (flags)
		return true
	case r >= 0x2600 && r <= 0x26FF: // Misc symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // Dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // Misc symbols and arrows (⭐, ⬆)
		return true
	case r == 0x203C || r == 0x2049: // ‼ and ⁉
		return true
	case r == 0x200D: // Zero-width joiner
		return true
	case r == 0xFE0F: // Variation selector-16
		return true
	}
	return false
}
