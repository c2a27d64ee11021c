package memory

import (
	"context"
	"regexp"
	"strings"
)

type (
	// Tags is the write-path annotation attached to an incoming turn.
	Tags struct {
		Importance float64
		Topic      string
	}

	// Tagger assigns importance and topic to a turn before placement. The
	// default is a local heuristic; an LLM-backed implementation can be
	// injected at construction.
	Tagger interface {
		Tag(ctx context.Context, turn *Turn) (Tags, error)
	}

	// HeuristicTagger scores turns without any network dependency: explicit
	// preferences, facts and decisions rate higher than chitchat, longer turns
	// slightly higher than short ones.
	HeuristicTagger struct{}
)

var _ Tagger = (*HeuristicTagger)(nil)

var (
	importantPattern = regexp.MustCompile(`(?i)\b(always|never|remember|important|prefer|decided|must|deadline|my name is)\b`)
	chitchatPattern  = regexp.MustCompile(`(?i)^(hi|hello|hey|thanks|thank you|ok|okay|bye|goodbye)[\s!.,]*$`)
	topicWordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9'-]{2,}`)
)

func NewHeuristicTagger() *HeuristicTagger {
	return &HeuristicTagger{}
}

func (t *HeuristicTagger) Tag(ctx context.Context, turn *Turn) (Tags, error) {
	content := strings.TrimSpace(turn.Content)

	importance := 0.3
	switch {
	case chitchatPattern.MatchString(content):
		importance = 0.1
	case importantPattern.MatchString(content):
		importance = 0.7
	case len(content) > 240:
		importance = 0.5
	}

	return Tags{
		Importance: importance,
		Topic:      topicOf(content),
	}, nil
}

// topicOf picks the first few content words as a coarse topic key for
// summarization buffering.
func topicOf(content string) string {
	words := topicWordPattern.FindAllString(content, 3)
	if len(words) == 0 {
		return "general"
	}
	return strings.ToLower(strings.Join(words, " "))
}
