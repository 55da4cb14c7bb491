package providers

import (
	"fmt"
	"log/slog"
	"sort"
)

// SelectorConfig carries the operator-supplied wiring for provider choice:
// which keys are present, which vendor handles unlabeled traffic, the order
// automatic routing tries vendors in, and per-vendor upstream overrides for
// self-hosted or proxied deployments.
type SelectorConfig struct {
	Keys            map[Provider]string
	DefaultProvider Provider
	Priority        []Provider
	URLOverrides    map[Provider]string
}

// Selector resolves a client's provider request against configured
// credentials.
type Selector struct {
	keys            map[Provider]string
	defaultProvider Provider
	priority        []Provider
	overrides       map[Provider]string
}

// NotConfiguredError marks a request for a known vendor that has no
// credential configured.
type NotConfiguredError struct {
	Provider Provider
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, e.Provider.EnvKey())
}

func NewSelector(cfg SelectorConfig) *Selector {
	s := &Selector{
		keys:            make(map[Provider]string),
		defaultProvider: cfg.DefaultProvider,
		priority:        cfg.Priority,
		overrides:       cfg.URLOverrides,
	}
	for p, key := range cfg.Keys {
		if key != "" {
			s.keys[p] = key
		}
	}
	if s.defaultProvider == "" {
		s.defaultProvider = Deepgram
	}
	if len(s.priority) == 0 {
		s.priority = All()
	}
	return s
}

// Selection is a resolved provider plus its credential. The credential is
// only reachable through APIKey so it cannot leak through %v formatting or
// structured logs.
type Selection struct {
	Provider    Provider
	UpstreamURL string

	apiKey string
}

func (s Selection) APIKey() string { return s.apiKey }

func (s Selection) String() string {
	return fmt.Sprintf("%s key=%s", s.Provider, redactKey(s.apiKey))
}

func (s Selection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", string(s.Provider)),
		slog.String("key", redactKey(s.apiKey)),
	)
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 3 {
		return "***"
	}
	return key[:3] + "***"
}

// Available lists the vendors that have a key configured.
func (s *Selector) Available() []Provider {
	var out []Provider
	for _, p := range All() {
		if _, ok := s.keys[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Select resolves a requested provider name. An empty name falls back to
// the configured default; "auto" routes by language coverage across the
// priority list. Unknown names and unconfigured vendors are errors the
// caller surfaces before any upstream connection is attempted.
func (s *Selector) Select(name string, languages []string) (Selection, error) {
	if name == Auto {
		return s.selectAuto(languages)
	}
	provider := s.defaultProvider
	if name != "" {
		parsed, err := Parse(name)
		if err != nil {
			return Selection{}, err
		}
		provider = parsed
	}
	return s.selection(provider)
}

// selectAuto orders configured vendors by quality tier for the requested
// languages, breaking ties by the operator's priority order.
func (s *Selector) selectAuto(languages []string) (Selection, error) {
	type candidate struct {
		provider Provider
		tier     Support
		rank     int
	}
	var candidates []candidate
	for rank, p := range s.priority {
		if _, ok := s.keys[p]; !ok {
			continue
		}
		tier := SupportLevel(p, languages)
		if !tier.Supported() {
			continue
		}
		candidates = append(candidates, candidate{provider: p, tier: tier, rank: rank})
	}
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("no configured provider supports languages %v", languages)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier > candidates[j].tier
		}
		return candidates[i].rank < candidates[j].rank
	})
	return s.selection(candidates[0].provider)
}

func (s *Selector) selection(p Provider) (Selection, error) {
	key, ok := s.keys[p]
	if !ok {
		return Selection{}, &NotConfiguredError{Provider: p}
	}
	return Selection{
		Provider:    p,
		UpstreamURL: s.overrides[p],
		apiKey:      key,
	}, nil
}
