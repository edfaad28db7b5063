package command

import "strings"

// rule maps one trigger word to a Kind and Source. The marked form
// ("/imagine red balloon") and the bare form ("imagine red balloon")
// classify identically; only the trigger token differs in spelling.
type rule struct {
	trigger string
	kind    Kind
	source  string
}

// builtinRules is the classification table. Order matters only for
// documentation; triggers are disjoint.
var builtinRules = []rule{
	{"imagine", KindMediaGenerate, "midjourney"},
	{"draw", KindMediaGenerate, "midjourney"},
	{"search", KindSearch, "web"},
	{"lookup", KindSearch, "web"},
	{"system", KindSystem, "system"},
	{"status", KindSystem, "system"},
}

// Classifier is a pure text-to-Command mapping. It never fails:
// unrecognized input classifies as plain chat.
type Classifier struct {
	rules []rule
}

// NewClassifier returns a Classifier with the builtin rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: builtinRules}
}

// Classify turns raw input into a Command. The bool is false only for
// empty input; everything else is a command, at worst plain chat.
func (c *Classifier) Classify(raw string, origin Origin) (Command, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Command{}, false
	}

	trigger, rest := splitTrigger(text)
	for _, r := range c.rules {
		if trigger != r.trigger {
			continue
		}
		return New(r.kind, r.source, rest, origin), true
	}

	return New(KindChat, string(origin), text, origin), true
}

// splitTrigger extracts the first token with any leading slash marker and
// trailing bot mention stripped, plus the remainder of the input.
func splitTrigger(text string) (trigger, rest string) {
	parts := strings.SplitN(text, " ", 2)
	trigger = strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if i := strings.Index(trigger, "@"); i >= 0 {
		trigger = trigger[:i]
	}
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return trigger, rest
}
