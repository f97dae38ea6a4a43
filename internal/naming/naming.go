package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultContainerPrefix is the literal every managed container name starts with.
	DefaultContainerPrefix = "ptvnc"
	// DefaultConnectionPrefix is the short prefix of registry connection names.
	DefaultConnectionPrefix = "pt"
)

var suffixRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Rule identifies which naming convention produced a connection candidate.
type Rule int

const (
	// RulePadded maps a numeric suffix to a two-digit zero-padded number (pt01).
	RulePadded Rule = iota
	// RuleUnpadded maps a numeric suffix to its plain decimal form (pt1).
	RuleUnpadded
	// RuleVerbatim carries a non-numeric suffix over unchanged (pt-lab).
	RuleVerbatim
)

func (r Rule) String() string {
	switch r {
	case RulePadded:
		return "padded"
	case RuleUnpadded:
		return "unpadded"
	case RuleVerbatim:
		return "verbatim"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Candidate is one connection name a container may be registered under.
type Candidate struct {
	Name string
	Rule Rule
}

// Resolver maps container names to connection names. It is pure and safe
// for concurrent use.
type Resolver struct {
	ContainerPrefix  string
	ConnectionPrefix string
}

// Default returns a Resolver with the ptvnc/pt prefixes.
func Default() Resolver {
	return Resolver{
		ContainerPrefix:  DefaultContainerPrefix,
		ConnectionPrefix: DefaultConnectionPrefix,
	}
}

// Suffix returns the part of a container name after the container prefix.
// ok is false when the name does not carry the prefix.
func (r Resolver) Suffix(container string) (suffix string, ok bool) {
	if !strings.HasPrefix(container, r.ContainerPrefix) {
		return "", false
	}
	return container[len(r.ContainerPrefix):], true
}

// Candidates returns the connection names for a container in lookup order,
// with duplicates removed. Names without the prefix, or with an empty
// suffix, yield nil. An all-digit suffix too large for an int cannot be
// padded and is carried over verbatim.
func (r Resolver) Candidates(container string) []Candidate {
	suffix, ok := r.Suffix(container)
	if !ok || suffix == "" {
		return nil
	}

	n, numeric := parseNumeric(suffix)
	if !numeric {
		return []Candidate{{Name: r.ConnectionPrefix + suffix, Rule: RuleVerbatim}}
	}

	padded := fmt.Sprintf("%s%02d", r.ConnectionPrefix, n)
	unpadded := fmt.Sprintf("%s%d", r.ConnectionPrefix, n)
	if padded == unpadded {
		return []Candidate{{Name: padded, Rule: RulePadded}}
	}
	return []Candidate{
		{Name: padded, Rule: RulePadded},
		{Name: unpadded, Rule: RuleUnpadded},
	}
}

// ConnectionCandidates returns the names from Candidates.
func (r Resolver) ConnectionCandidates(container string) []string {
	cands := r.Candidates(container)
	if len(cands) == 0 {
		return nil
	}
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	return names
}

// MatchesContainer reports whether connection is one of the candidates
// for container.
func (r Resolver) MatchesContainer(connection, container string) bool {
	for _, c := range r.Candidates(container) {
		if c.Name == connection {
			return true
		}
	}
	return false
}

// ValidateContainerName checks that name is the container prefix followed
// by a non-empty suffix of letters, digits, hyphens and underscores.
func (r Resolver) ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	suffix, ok := r.Suffix(name)
	if !ok {
		return fmt.Errorf("container name %q must start with %q (e.g. %s1, %s-lab01)",
			name, r.ContainerPrefix, r.ContainerPrefix, r.ContainerPrefix)
	}
	if suffix == "" {
		return fmt.Errorf("container name %q needs a suffix after %q", name, r.ContainerPrefix)
	}
	if !suffixRegex.MatchString(suffix) {
		return fmt.Errorf("invalid container name suffix %q: only letters, digits, hyphens and underscores are allowed", suffix)
	}
	return nil
}

// NumericSuffix returns the integer suffix of a container name.
func (r Resolver) NumericSuffix(container string) (int, bool) {
	suffix, ok := r.Suffix(container)
	if !ok {
		return 0, false
	}
	return parseNumeric(suffix)
}

// NextContainerName returns the prefix followed by one more than the
// highest numeric suffix in existing, starting at 1. Names with
// non-numeric suffixes are ignored.
func (r Resolver) NextContainerName(existing []string) string {
	highest := 0
	for _, name := range existing {
		if n, ok := r.NumericSuffix(name); ok && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%d", r.ContainerPrefix, highest+1)
}

// parseNumeric accepts only ASCII digits so that signs and spaces fall
// through to the verbatim rule. Digits that overflow int are reported as
// non-numeric.
func parseNumeric(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
