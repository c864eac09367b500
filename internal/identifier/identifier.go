// Package identifier rewrites source identifiers (table, column, index,
// constraint names) into a target vendor's naming convention, enforcing its
// maximum identifier length with a deterministic, collision-resistant
// truncation scheme.
package identifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/relaydb/dbshift/internal/migerr"
	"github.com/relaydb/dbshift/internal/schema"
)

// Style selects a naming convention. Auto defers to the target vendor's
// canonical convention.
type Style string

const (
	Auto       Style = "auto"
	SnakeCase  Style = "snake_case"
	PascalCase Style = "PascalCase"
	Lowercase  Style = "lowercase"
	Uppercase  Style = "UPPERCASE"
	Preserve   Style = "preserve"
)

// Converter rewrites identifiers for one target vendor under one naming
// style, truncating to the vendor's (or an overridden) max length.
type Converter struct {
	Target  schema.Vendor
	Style   Style
	MaxLen  int // 0 means "use Target's default"
}

// NewConverter builds a Converter. maxLen <= 0 selects the target vendor's
// default maximum identifier length.
func NewConverter(target schema.Vendor, style Style, maxLen int) Converter {
	if maxLen <= 0 {
		maxLen = target.MaxIdentifierLength()
	}
	return Converter{Target: target, Style: style, MaxLen: maxLen}
}

func canonicalStyleFor(v schema.Vendor) Style {
	switch v {
	case schema.SQLServer:
		return PascalCase
	case schema.Postgres:
		return SnakeCase
	case schema.MySQL:
		return Lowercase
	case schema.Oracle:
		return Uppercase
	default:
		return SnakeCase
	}
}

// Convert rewrites s per the converter's style and truncates to MaxLen,
// preserving the prefix and appending a 6-hex-char stable hash suffix on
// truncation to avoid collisions. Convert is a pure function: the same
// input always produces the same output.
func (c Converter) Convert(s string) (string, error) {
	if s == "" {
		return "", migerr.New(migerr.InvalidIdentifier, "identifier must not be empty", nil)
	}

	style := c.Style
	if style == "" || style == Auto {
		style = canonicalStyleFor(c.Target)
	}

	var out string
	if style == Preserve {
		out = s
	} else {
		tokens := tokenize(s)
		out = recombine(tokens, style)
	}

	if len(out) > c.MaxLen {
		out = truncate(out, c.MaxLen)
	}
	return out, nil
}

// tokenize splits on existing underscores, case boundaries (lower->upper),
// and digit/letter boundaries.
func tokenize(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = nil
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			flush()
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			boundary := false
			if unicode.IsLower(prev) && unicode.IsUpper(r) {
				boundary = true
			} else if isLetter(prev) != isLetter(r) && (unicode.IsDigit(prev) || unicode.IsDigit(r)) {
				boundary = true
			} else if unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				boundary = true // e.g. "HTTPServer" -> "HTTP", "Server"
			}
			if boundary {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func recombine(tokens []string, style Style) string {
	switch style {
	case SnakeCase:
		parts := make([]string, len(tokens))
		for i, t := range tokens {
			parts[i] = strings.ToLower(t)
		}
		return strings.Join(parts, "_")
	case PascalCase:
		var b strings.Builder
		for _, t := range tokens {
			b.WriteString(capitalize(t))
		}
		return b.String()
	case Lowercase:
		var b strings.Builder
		for _, t := range tokens {
			b.WriteString(strings.ToLower(t))
		}
		return b.String()
	case Uppercase:
		var b strings.Builder
		for _, t := range tokens {
			b.WriteString(strings.ToUpper(t))
		}
		return b.String()
	default:
		parts := make([]string, len(tokens))
		for i, t := range tokens {
			parts[i] = strings.ToLower(t)
		}
		return strings.Join(parts, "_")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r := []rune(lower)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// truncate keeps the original prefix and appends a 6-hex-char suffix derived
// from a non-cryptographic hash of the full pre-truncation name, so two
// distinct long names that share a truncated prefix don't collide.
func truncate(name string, maxLen int) string {
	const suffixLen = 7 // "_" + 6 hex chars
	if maxLen <= suffixLen {
		sum := xxhash.Sum64String(name)
		return fmt.Sprintf("%06x", sum&0xFFFFFF)[:maxLen]
	}
	sum := xxhash.Sum64String(name)
	suffix := fmt.Sprintf("_%06x", sum&0xFFFFFF)
	prefixLen := maxLen - len(suffix)
	return name[:prefixLen] + suffix
}
