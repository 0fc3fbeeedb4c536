package intent

import "fmt"

// ParameterSpec describes one named parameter a donation method extracts
// from matched phrases. Type is one of: string, integer, float, duration,
// datetime, boolean, choice, entity (spec §6).
type ParameterSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Choices     []string `json:"choices,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Description string   `json:"description,omitempty"`
}

// DonationMethod is one named, independently matchable capability a handler
// publishes: the intent suffix it resolves to, the phrases the NLU matches
// against, the parameters it extracts, and example utterances for
// documentation/testing.
type DonationMethod struct {
	Name         string          `json:"method_name"`
	IntentSuffix string          `json:"intent_suffix"`
	Phrases      []string        `json:"phrases"`
	Parameters   []ParameterSpec `json:"parameters,omitempty"`
	Examples     []string        `json:"examples,omitempty"`
}

// Donation is a handler's declarative manifest of [DonationMethod]s,
// published under a domain (e.g. "timer") for NLU phrase matching and
// orchestrator dispatch. Field tags match the donation JSON schema spec §6
// defines, so the donation loader (LoadDonationsDir in internal/provider)
// can unmarshal a manifest directly into this type.
//
// Grounded on spec §4.5 "Donation-driven routing" and validated against the
// schema shape described in spec §6.
type Donation struct {
	Domain             string           `json:"handler_domain"`
	Methods            []DonationMethod `json:"method_donations"`
	IntentNamePatterns []string         `json:"intent_name_patterns,omitempty"`
}

// Validate checks the donation manifest against the schema spec §6
// requires: a non-empty domain, at least one method, and every method
// carrying a unique name, a unique intent suffix, and at least one matchable
// phrase. Every parameter needs a name, and a "choice" parameter needs at
// least one choice.
func (d Donation) Validate() error {
	if d.Domain == "" {
		return fmt.Errorf("intent: donation manifest missing domain")
	}
	if len(d.Methods) == 0 {
		return fmt.Errorf("intent: donation manifest for domain %q declares no methods", d.Domain)
	}
	seen := make(map[string]bool, len(d.Methods))
	seenSuffix := make(map[string]bool, len(d.Methods))
	for _, m := range d.Methods {
		if m.Name == "" {
			return fmt.Errorf("intent: donation method in domain %q missing name", d.Domain)
		}
		if seen[m.Name] {
			return fmt.Errorf("intent: donation method %q duplicated in domain %q", m.Name, d.Domain)
		}
		seen[m.Name] = true
		if m.IntentSuffix == "" {
			return fmt.Errorf("intent: donation method %q in domain %q missing intent suffix", m.Name, d.Domain)
		}
		if seenSuffix[m.IntentSuffix] {
			return fmt.Errorf("intent: intent suffix %q duplicated in domain %q", m.IntentSuffix, d.Domain)
		}
		seenSuffix[m.IntentSuffix] = true
		if len(m.Phrases) == 0 {
			return fmt.Errorf("intent: donation method %q in domain %q declares no matchable phrases", m.Name, d.Domain)
		}
		for _, p := range m.Parameters {
			if p.Name == "" {
				return fmt.Errorf("intent: donation method %q in domain %q has a parameter with no name", m.Name, d.Domain)
			}
			if p.Type == "choice" && len(p.Choices) == 0 {
				return fmt.Errorf("intent: choice parameter %q of donation method %q in domain %q declares no choices", p.Name, m.Name, d.Domain)
			}
		}
	}
	return nil
}

// IntentName returns the full "domain.suffix" intent name a method resolves
// to.
func (d Donation) IntentName(method DonationMethod) string {
	return d.Domain + "." + method.IntentSuffix
}

// DonationSet validates and indexes a collection of donations published
// during post-initialization (spec §4.7 "NLU component loads handler
// donations during post-initialization").
type DonationSet struct {
	byIntent map[string]DonationMethod
	domains  []string
}

// NewDonationSet validates every donation and builds the intent-name index.
// The first invalid donation's error is returned; valid donations registered
// before it are discarded along with the whole set, since a partially loaded
// donation set would silently under-match user phrases.
func NewDonationSet(donations []Donation) (*DonationSet, error) {
	ds := &DonationSet{byIntent: make(map[string]DonationMethod)}
	for _, d := range donations {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		ds.domains = append(ds.domains, d.Domain)
		for _, m := range d.Methods {
			ds.byIntent[d.IntentName(m)] = m
		}
	}
	return ds, nil
}

// Lookup returns the donation method registered for the given full intent
// name.
func (ds *DonationSet) Lookup(intentName string) (DonationMethod, bool) {
	m, ok := ds.byIntent[intentName]
	return m, ok
}

// All returns every registered donation method keyed by its full intent
// name, for callers that need to scan the whole set (e.g. a phrase matcher
// scoring an utterance against every donated phrase). The returned map is a
// copy; mutating it does not affect the DonationSet.
func (ds *DonationSet) All() map[string]DonationMethod {
	out := make(map[string]DonationMethod, len(ds.byIntent))
	for k, v := range ds.byIntent {
		out[k] = v
	}
	return out
}

// Domains returns every domain that published a donation.
func (ds *DonationSet) Domains() []string {
	out := make([]string, len(ds.domains))
	copy(out, ds.domains)
	return out
}
