package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxUsernameLen = 50

var (
	nonWordRe     = regexp.MustCompile(`[^\w\s-]`)
	invalidCharRe = regexp.MustCompile(`[^a-z0-9_]`)

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// GenerateUsername builds a username from a person's name and their
// organization name: first word of each, joined by an underscore, with
// diacritics and special characters stripped.
func GenerateUsername(name, orgName string) string {
	nameParts := strings.Fields(normalizeText(name))
	orgParts := strings.Fields(normalizeText(orgName))

	var username string
	switch {
	case len(nameParts) > 0 && len(orgParts) > 0:
		username = nameParts[0] + "_" + orgParts[0]
	case len(nameParts) > 0:
		username = nameParts[0]
	default:
		username = "user"
	}
	return cleanUsername(username)
}

// GenerateAvailableUsername resolves conflicts by appending a counter, with a
// timestamp suffix as last resort. exists reports whether a username is taken.
func GenerateAvailableUsername(ctx context.Context, name, orgName string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := GenerateUsername(name, orgName)
	taken, err := exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	for i := 1; i < 100; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s_%d", base, time.Now().Unix()%10000), nil
}

func normalizeText(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = nonWordRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

func cleanUsername(s string) string {
	s = invalidCharRe.ReplaceAllString(strings.ToLower(s), "")
	if s == "" {
		return "user"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "user_" + s
	}
	if len(s) > maxUsernameLen {
		s = s[:maxUsernameLen]
	}
	return s
}
