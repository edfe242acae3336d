// Package affiliate rewrites canonical merchant URLs into tagged outbound
// links according to per-network rules from the channel registry.
package affiliate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"deals-bot/models"
)

// Tag types supported by network rules.
const (
	TagTypeParameter = "parameter"
	TagTypeWrapper   = "wrapper"
)

// Wrapper template placeholders.
const (
	PlaceholderURL    = "{{URL}}"     // canonical URL verbatim
	PlaceholderURLEnc = "{{URL_ENC}}" // canonical URL, query-escaped
	PlaceholderSep    = "{{SEP}}"     // "?" or "&" depending on the embedded URL
)

var placeholderRe = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// ValidateTemplate checks a wrapper template at registry load time: it must
// reference the URL at least once and contain no unknown placeholders.
// An unresolved placeholder is a configuration error, never a runtime one.
func ValidateTemplate(template string) error {
	if template == "" {
		return fmt.Errorf("wrapper template is empty")
	}
	if !strings.Contains(template, PlaceholderURL) && !strings.Contains(template, PlaceholderURLEnc) {
		return fmt.Errorf("wrapper template must contain %s or %s", PlaceholderURL, PlaceholderURLEnc)
	}
	stripped := strings.NewReplacer(PlaceholderURL, "", PlaceholderURLEnc, "", PlaceholderSep, "").Replace(template)
	if leftover := placeholderRe.FindString(stripped); leftover != "" {
		return fmt.Errorf("wrapper template contains unknown placeholder %s", leftover)
	}
	return nil
}

// Apply walks the channel's network rules in priority order and applies the
// first satisfiable one. The second return value reports whether a tag was
// applied; when no rule is satisfiable the canonical URL is returned
// untouched so the record can still be persisted for human review.
func Apply(canonicalURL string, rules []models.NetworkRule) (models.AffiliateLink, bool) {
	parsed, err := url.Parse(canonicalURL)
	if err != nil {
		return untagged(canonicalURL), false
	}

	for _, rule := range rules {
		if !satisfiable(rule, parsed.Host) {
			continue
		}

		switch rule.TagType {
		case TagTypeParameter:
			final, err := applyParameter(parsed, rule)
			if err != nil {
				continue
			}
			return models.AffiliateLink{
				CanonicalURL: canonicalURL,
				NetworkID:    rule.NetworkID,
				FinalURL:     final,
			}, true
		case TagTypeWrapper:
			return models.AffiliateLink{
				CanonicalURL: canonicalURL,
				NetworkID:    rule.NetworkID,
				FinalURL:     applyWrapper(canonicalURL, rule),
			}, true
		}
	}

	return untagged(canonicalURL), false
}

func untagged(canonicalURL string) models.AffiliateLink {
	return models.AffiliateLink{CanonicalURL: canonicalURL, FinalURL: canonicalURL}
}

// satisfiable reports whether a rule's required inputs hold for this URL.
// An empty host pattern matches everything; otherwise the canonical host
// must equal the pattern or be a subdomain of it.
func satisfiable(rule models.NetworkRule, host string) bool {
	if rule.HostPattern == "" {
		return true
	}
	host = strings.ToLower(host)
	pattern := strings.ToLower(rule.HostPattern)
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// applyParameter sets the network's query parameter on a copy of the URL.
// url.Values.Set replaces any existing value, so a URL that already carries
// a same-named parameter (from the author, or from a reprocessed record)
// ends up with the tag exactly once.
func applyParameter(parsed *url.URL, rule models.NetworkRule) (string, error) {
	q, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return "", fmt.Errorf("unparseable query string: %w", err)
	}
	q.Set(rule.ParamName, rule.ParamValue)

	tagged := *parsed
	tagged.RawQuery = q.Encode()
	return tagged.String(), nil
}

// applyWrapper substitutes the canonical URL into the network template.
// {{SEP}} resolves to "?" or "&" depending on whether the verbatim embedded
// URL already has a query string.
func applyWrapper(canonicalURL string, rule models.NetworkRule) string {
	sep := "?"
	if strings.Contains(canonicalURL, "?") {
		sep = "&"
	}
	return strings.NewReplacer(
		PlaceholderURL, canonicalURL,
		PlaceholderURLEnc, url.QueryEscape(canonicalURL),
		PlaceholderSep, sep,
	).Replace(rule.Template)
}
