// Package rulebased implements the "rule-based" [intent.NLUProvider]: it
// scores an utterance against every phrase donated handlers publish and
// returns the intent of the best match above a minimum score. No model or
// network call is involved, so it's the default NLU backend for a
// deployment with no embeddings provider configured.
//
// Grounded on internal/transcript/phonetic's use of
// github.com/antzucaro/matchr's Jaro-Winkler scorer for fuzzy string
// matching, generalized from fuzzy entity matching to fuzzy phrase
// matching.
package rulebased

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/intent"
)

// compiledPhrase is a donation phrase with its {param} placeholders turned
// into a matchable regexp and its plain-text form kept for scoring.
type compiledPhrase struct {
	intentName string
	domain     string
	action     string
	plain      string
	pattern    *regexp.Regexp
	paramNames []string
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Provider is a rule-based NLU backend. Its phrases are fixed by New and
// Recognize only reads them, so concurrent Recognize calls are safe.
type Provider struct {
	name              string
	phrases           []compiledPhrase
	minScore          float64
}

// Config configures a Provider.
type Config struct {
	// MinScore is the Jaro-Winkler similarity, in [0,1], an utterance must
	// reach against a phrase's plain-text form for that phrase to be
	// considered a candidate match at all, before parameter extraction.
	// Typical: 0.75.
	MinScore float64
}

// New builds a Provider from a donation set. Each donated phrase is compiled
// once at construction time; Recognize performs no further parsing.
func New(name string, donations *intent.DonationSet, cfg Config) *Provider {
	p := &Provider{name: name, minScore: cfg.MinScore}
	for intentName, method := range donations.All() {
		domain, action, _ := strings.Cut(intentName, ".")
		for _, phrase := range method.Phrases {
			p.phrases = append(p.phrases, compile(intentName, domain, action, phrase))
		}
	}
	return p
}

func compile(intentName, domain, action, phrase string) compiledPhrase {
	var paramNames []string
	quoted := regexp.QuoteMeta(phrase)
	// QuoteMeta escapes the braces; undo that so placeholderPattern still
	// matches, then replace each placeholder with a capturing wildcard.
	quoted = strings.NewReplacer(`\{`, "{", `\}`, "}").Replace(quoted)
	pattern := placeholderPattern.ReplaceAllStringFunc(quoted, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		paramNames = append(paramNames, name)
		return `(?P<` + name + `>.+)`
	})
	return compiledPhrase{
		intentName: intentName,
		domain:     domain,
		action:     action,
		plain:      placeholderPattern.ReplaceAllString(phrase, ""),
		pattern:    regexp.MustCompile(`(?i)^` + pattern + `$`),
		paramNames: paramNames,
	}
}

// Name implements [intent.NLUProvider].
func (p *Provider) Name() string { return p.name }

// Recognize implements [intent.NLUProvider]. It scores text against every
// compiled phrase's plain-text form and, for the best match at or above
// MinScore, extracts {param} values via the phrase's regexp (falling back to
// an empty entity map when the exact text didn't match the pattern but
// scored well enough on similarity alone).
func (p *Provider) Recognize(_ context.Context, text string, _ *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
	trimmed := strings.TrimSpace(text)
	normalized := strings.ToLower(trimmed)

	// An exact structural match (the phrase's placeholders regexp) is scored
	// 1.0 and wins outright, since it's both the best possible confidence
	// and the only case where parameter extraction is reliable.
	for _, cp := range p.phrases {
		if match := cp.pattern.FindStringSubmatch(trimmed); match != nil {
			return intent.Intent{
				Name:       cp.intentName,
				Domain:     cp.domain,
				Action:     cp.action,
				Text:       text,
				Entities:   entitiesFromMatch(cp, match),
				Confidence: 1.0,
			}, nil
		}
	}

	var best compiledPhrase
	var bestScore float64
	for _, cp := range p.phrases {
		score := matchr.JaroWinkler(normalized, strings.ToLower(strings.TrimSpace(cp.plain)), true)
		if score > bestScore {
			bestScore = score
			best = cp
		}
	}

	if bestScore < p.minScore {
		return intent.Intent{}, nil
	}

	return intent.Intent{
		Name:       best.intentName,
		Domain:     best.domain,
		Action:     best.action,
		Text:       text,
		Confidence: bestScore,
	}, nil
}

func entitiesFromMatch(cp compiledPhrase, match []string) map[string]any {
	if len(cp.paramNames) == 0 {
		return nil
	}
	entities := make(map[string]any, len(cp.paramNames))
	for i, name := range cp.pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		entities[name] = coerceEntity(match[i])
	}
	return entities
}

func coerceEntity(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}
