package translation

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/relaytranslate/relaytranslate/internal/langhint"
)

// Policy maps a language hint to the language it is translated into.
// Hints without an entry, and HintUnknown always, are not translated.
type Policy struct {
	targets map[langhint.Hint]Language
}

// NewPolicy builds a policy from a hint→target table. The table is copied.
func NewPolicy(targets map[langhint.Hint]Language) Policy {
	p := Policy{targets: make(map[langhint.Hint]Language, len(targets))}
	for hint, target := range targets {
		if hint == langhint.HintUnknown || target == "" {
			continue
		}
		p.targets[hint] = target
	}
	return p
}

// PolicyUrdu translates Chinese into Urdu, Tagalog and Urdu into English.
func PolicyUrdu() Policy {
	return NewPolicy(map[langhint.Hint]Language{
		langhint.HintChinese: LanguageUrdu,
		langhint.HintTagalog: LanguageEnglish,
		langhint.HintUrdu:    LanguageEnglish,
	})
}

// PolicyEnglish translates every supported hint into English.
func PolicyEnglish() Policy {
	return NewPolicy(map[langhint.Hint]Language{
		langhint.HintChinese: LanguageEnglish,
		langhint.HintTagalog: LanguageEnglish,
		langhint.HintUrdu:    LanguageEnglish,
	})
}

// PolicyFor returns the built-in policy whose Chinese target is chinese.
func PolicyFor(chinese Language) (Policy, error) {
	switch chinese {
	case LanguageUrdu:
		return PolicyUrdu(), nil
	case LanguageEnglish:
		return PolicyEnglish(), nil
	}
	return Policy{}, fmt.Errorf("%w for chinese: %q", ErrUnsupportedLanguage, chinese)
}

// Target returns the target language for hint.
func (p Policy) Target(hint langhint.Hint) (Language, bool) {
	if hint == langhint.HintUnknown {
		return "", false
	}
	target, ok := p.targets[hint]
	return target, ok
}

// Direction is one hint→target pair of a policy.
type Direction struct {
	Source langhint.Hint
	Target Language
}

// Directions lists the policy entries in a stable order.
func (p Policy) Directions() []Direction {
	out := make([]Direction, 0, len(p.targets))
	for hint, target := range p.targets {
		out = append(out, Direction{Source: hint, Target: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// policyFile is the YAML form of a policy, e.g.
//
//	chinese: ur
//	tagalog: en
//	urdu: en
type policyFile map[string]string

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Policy{}, fmt.Errorf("decoding policy: %w", err)
	}

	targets := make(map[langhint.Hint]Language, len(raw))
	for source, target := range raw {
		hint, err := langhint.ParseHint(source)
		if err != nil {
			return Policy{}, fmt.Errorf("policy source %q: %w", source, err)
		}
		lang, err := ParseLanguage(target)
		if err != nil {
			return Policy{}, fmt.Errorf("policy target %q: %w", target, err)
		}
		targets[hint] = lang
	}

	return NewPolicy(targets), nil
}

// LoadPolicy reads a YAML policy from path.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}
