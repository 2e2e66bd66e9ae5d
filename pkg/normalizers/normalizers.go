// Package normalizers canonicalizes names, emails and organizations before matching
package normalizers

import (
	"strings"
	"unicode"
)

var nameSuffixes = []string{" jr", " sr", " iii", " ii", " iv", " phd", " md", " dds", " esq", " cpa", " cfa"}

var companySuffixes = []string{
	" incorporated", " inc", " llc", " llp", " ltd", " limited", " corp", " corporation",
	" co", " company", " gmbh", " plc", " sa", " ag", " lp",
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps only digits
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeName normalizes a person's name for matching
// - Lowercase
// - Remove punctuation and collapse whitespace
// - Remove trailing honorific suffixes (Jr, Sr, III, PhD, ...)
func NormalizeName(s string) string {
	return stripSuffixes(collapse(strings.ToLower(s)), nameSuffixes)
}

// NormalizeCompanyName normalizes a company name, dropping legal-form
// suffixes such as Inc or LLC
func NormalizeCompanyName(s string) string {
	return stripSuffixes(collapse(strings.ToLower(s)), companySuffixes)
}

// NormalizeDomain reduces a URL or domain to its bare host
func NormalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

// NormalizeOrganization normalizes an organization value as either a
// domain or a company name
func NormalizeOrganization(s string) string {
	if strings.Contains(s, ".") && !strings.Contains(strings.TrimSpace(s), " ") {
		return NormalizeDomain(s)
	}
	return NormalizeCompanyName(s)
}

// Tokens splits an already-normalized name into words
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// FirstToken returns the first word of a normalized name
func FirstToken(normalized string) string {
	tokens := Tokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// LastToken returns the last word of a normalized name
func LastToken(normalized string) string {
	tokens := Tokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// collapse keeps letters and digits, turning any run of other characters
// into a single space
func collapse(s string) string {
	var result strings.Builder
	prevSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
			continue
		}
		if r == '\'' || r == '’' {
			continue
		}
		if !prevSpace {
			result.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(result.String())
}

func stripSuffixes(s string, suffixes []string) string {
	for {
		stripped := false
		for _, suffix := range suffixes {
			if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
				s = strings.TrimSpace(s[:len(s)-len(suffix)])
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}
