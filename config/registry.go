package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/haproxytech/acme-core/acme"
	"github.com/haproxytech/acme-core/acme/keys"
)

// Registry holds every acme.Config built from a config file, keyed by
// stanza name, after Build has validated each one. It is read-only once
// built: no renewal or config reload mutates a Registry's Configs map in
// place, a fresh Registry is built and swapped in wholesale instead.
type Registry struct {
	Configs map[string]*acme.Config
}

// Build validates every RawSection and assembles a Registry, or returns
// the first acme.ConfigError encountered. experimentalOptIn mirrors the
// "embedded ACME support is experimental and must be enabled via a global
// opt-in" requirement: if false, any `acme` stanza at all is rejected
// before its directives are even inspected, so a config file written for
// a build with the feature enabled fails loudly rather than silently
// skipping renewal for every certificate it names.
func Build(sections []RawSection, experimentalOptIn bool) (*Registry, error) {
	if len(sections) > 0 && !experimentalOptIn {
		return nil, &acme.ConfigError{
			Stanza: sections[0].Name,
			Reason: "acme support is experimental and must be enabled globally before any `acme` stanza is used",
		}
	}

	reg := &Registry{Configs: map[string]*acme.Config{}}
	for _, section := range sections {
		if _, dup := reg.Configs[section.Name]; dup {
			return nil, &acme.ConfigError{Stanza: section.Name, Reason: "duplicate stanza name"}
		}
		cfg, err := buildOne(section)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		reg.Configs[section.Name] = cfg
	}
	return reg, nil
}

func buildOne(section RawSection) (*acme.Config, error) {
	cfg := &acme.Config{Name: section.Name, LeafPolicy: keys.LeafPolicy{Type: keys.EC}}

	for _, d := range section.Directives {
		switch d.Name {
		case "uri":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			cfg.Directory = d.Args[0]
		case "contact":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			cfg.Contact = append(cfg.Contact, d.Args[0])
		case "account":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			cfg.AccountKeyPath = d.Args[0]
		case "challenge":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			switch strings.ToLower(d.Args[0]) {
			case "http-01":
				cfg.Challenge = acme.CHALLENGE_HTTP01
			case "dns-01":
				cfg.Challenge = acme.CHALLENGE_DNS01
			default:
				return nil, directiveErr(section.Name, d, fmt.Sprintf("unknown challenge type %q", d.Args[0]))
			}
		case "keytype":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			switch strings.ToLower(d.Args[0]) {
			case "rsa":
				cfg.LeafPolicy.Type = keys.RSA
			case "ecdsa", "ec":
				cfg.LeafPolicy.Type = keys.EC
			default:
				return nil, directiveErr(section.Name, d, fmt.Sprintf("unknown key type %q", d.Args[0]))
			}
		case "bits":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			bits, err := strconv.Atoi(d.Args[0])
			if err != nil {
				return nil, directiveErr(section.Name, d, "expects an integer argument")
			}
			cfg.LeafPolicy.Bits = bits
		case "curves":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			curve, err := keys.CurveByName(d.Args[0])
			if err != nil {
				return nil, directiveErr(section.Name, d, err.Error())
			}
			cfg.LeafPolicy.Curve = curve
		case "retry":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			n, err := strconv.Atoi(d.Args[0])
			if err != nil {
				return nil, directiveErr(section.Name, d, "expects an integer argument")
			}
			cfg.RetryBudget = n
		case "timeout":
			if len(d.Args) != 1 {
				return nil, directiveErr(section.Name, d, "expects exactly one argument")
			}
			dur, err := time.ParseDuration(d.Args[0])
			if err != nil {
				return nil, directiveErr(section.Name, d, "expects a duration argument (e.g. 30s)")
			}
			cfg.HTTPTimeout = dur
		default:
			return nil, directiveErr(section.Name, d, "unknown directive")
		}
	}

	if cfg.AccountKeyPath == "" {
		cfg.AccountKeyPath = cfg.Name + ".account.key"
	}

	return cfg, nil
}

func directiveErr(stanza string, d Directive, reason string) *acme.ConfigError {
	return &acme.ConfigError{
		Stanza: stanza,
		Reason: fmt.Sprintf("line %d: directive %q %s", d.Line, d.Name, reason),
	}
}
