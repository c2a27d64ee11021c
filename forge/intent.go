package forge

import (
	"regexp"

	"github.com/tessellate-ai/memring/config"
)

// Intent selects the weight profile used when reranking candidates.
type Intent string

const (
	IntentAnalytical Intent = "analytical"
	IntentRelational Intent = "relational"
	IntentFollowUp   Intent = "follow_up"
)

// Classifier is the intent-classifier boundary. Absence falls back to the
// rule-based classifier below.
type Classifier interface {
	Classify(text string) Intent
}

// RuleClassifier is an O(1) heuristic classifier. An LLM-backed classifier
// can replace it without touching the pipeline.
type RuleClassifier struct{}

var _ Classifier = (*RuleClassifier)(nil)

var (
	relationalPattern = regexp.MustCompile(`(?i)\b(relationship|related to|connected to|between|link|owns|part of|parent|child|who)\b`)
	followUpPattern   = regexp.MustCompile(`(?i)\b(what about|and then|also|again|that one|previous|earlier|last time)\b`)
)

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(text string) Intent {
	switch {
	case relationalPattern.MatchString(text):
		return IntentRelational
	case followUpPattern.MatchString(text):
		return IntentFollowUp
	default:
		return IntentAnalytical
	}
}

// ProfileFor maps an intent to its configured weight profile.
func ProfileFor(intent Intent, conf *config.ForgeConfig) config.WeightProfile {
	switch intent {
	case IntentRelational:
		return conf.Relational
	case IntentFollowUp:
		return conf.FollowUp
	default:
		return conf.Analytical
	}
}
