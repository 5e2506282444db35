package service

import (
	"strings"

	"github.com/reviewloop/outreach-backend/internal/model"
)

// Classification is the coarse reading of an inbound message used by the
// nurture agent's branching.
type Classification struct {
	Intent    model.Intent
	Sentiment model.Sentiment
}

// Classifier is a pluggable seam: the default is keyword-driven, and a
// model-backed implementation can be swapped in without changing the
// agents' branching contracts.
type Classifier interface {
	Classify(text string) Classification
}

// KeywordClassifier is the deterministic, rule-based default.
type KeywordClassifier struct{}

var (
	notInterestedWords = []string{"not interested", "no thanks", "no thank you", "stop", "unsubscribe", "leave me alone", "go away", "don't contact", "do not contact"}
	readyToBuyWords    = []string{"yes", "sure", "sounds good", "let's do it", "lets do it", "i'm ready", "im ready", "sign me up", "schedule", "book", "appointment", "when can"}
	objectionWords     = []string{"but ", "however", "too expensive", "too much", "can't afford", "cant afford", "cheaper", "competitor"}
	positiveWords      = []string{"great", "thanks", "thank you", "awesome", "perfect", "love", "excellent", "appreciate", "good"}
	negativeWords      = []string{"angry", "terrible", "awful", "worst", "hate", "horrible", "scam", "annoyed", "bad", "disappointed"}
)

func (c *KeywordClassifier) Classify(text string) Classification {
	lower := strings.ToLower(text)

	return Classification{
		Intent:    classifyIntent(lower),
		Sentiment: classifySentiment(lower),
	}
}

func classifyIntent(lower string) model.Intent {
	// Negation first so "not interested" never reads as interest.
	if containsAny(lower, notInterestedWords) {
		return model.IntentNotInterested
	}
	if containsAny(lower, readyToBuyWords) {
		return model.IntentReadyToBuy
	}
	if strings.Contains(lower, "?") {
		return model.IntentQuestion
	}
	if containsAny(lower, objectionWords) {
		return model.IntentObjection
	}
	return model.IntentUnclear
}

func classifySentiment(lower string) model.Sentiment {
	if containsAny(lower, negativeWords) {
		return model.SentimentNegative
	}
	if containsAny(lower, positiveWords) {
		return model.SentimentPositive
	}
	return model.SentimentNeutral
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

var _ Classifier = (*KeywordClassifier)(nil)
