package models

// IntentType classifies a short user utterance into a small-talk category.
// Anything with domain content (appointments, doctors, symptoms, insurance,
// prices) is IntentNone regardless of phrasing - small talk covers
// conversational etiquette only.
type IntentType string

const (
	IntentGreeting   IntentType = "greeting"
	IntentThanks     IntentType = "thanks"
	IntentFarewell   IntentType = "farewell"
	IntentMenu       IntentType = "menu"
	IntentOffTopic   IntentType = "off_topic"
	IntentEndService IntentType = "end_service"
	IntentEmoji      IntentType = "emoji"
	IntentNone       IntentType = "none"
)

// ParseIntentType maps a string to a known IntentType.
// Returns IntentNone and false for unrecognized values.
func ParseIntentType(s string) (IntentType, bool) {
	switch IntentType(s) {
	case IntentGreeting, IntentThanks, IntentFarewell, IntentMenu,
		IntentOffTopic, IntentEndService, IntentEmoji, IntentNone:
		return IntentType(s), true
	}
	return IntentNone, false
}

// IsSmallTalk reports whether the intent warrants a small-talk response.
// IntentNone defers to skill routing.
func (t IntentType) IsSmallTalk() bool {
	return t != IntentNone && t != ""
}

// IntentClassification is the ephemeral, per-message result of the intent
// layer. Confidence stays below 1.0 by convention ("never certain") except
// for emoji-only input, which is unambiguous.
type IntentClassification struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
	NeedsLLM   bool       `json:"needs_llm"`
}
