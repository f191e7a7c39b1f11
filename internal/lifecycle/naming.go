package lifecycle

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/titooo7/teamarr-sub000/internal/xmltv"
)

var titleCaser = cases.Title(language.English)

var namingPlaceholderPattern = regexp.MustCompile(`\{[^{}]+\}`)

// hasUnresolvedPlaceholder reports whether template references any
// {variable} that vars doesn't supply a value for.
func hasUnresolvedPlaceholder(template string, vars map[string]string) bool {
	for _, token := range namingPlaceholderPattern.FindAllString(template, -1) {
		key := token[1 : len(token)-1]
		if _, ok := vars[key]; !ok {
			return true
		}
	}
	return false
}

// defaultChannelName is the fallback "<Away> @ <Home>" shape used whenever
// no group template is configured, or the configured template can't be
// fully resolved against the available variables.
func defaultChannelName(awayName, homeName string) string {
	return awayName + " @ " + homeName
}

// GenerateChannelName resolves a managed channel's display name. If
// template is empty, or references a variable not present in vars, the
// generic away-at-home shape is used instead of emitting literal
// "{placeholder}" text. A matched exception keyword is appended in title
// case, e.g. "... (Spanish)".
func GenerateChannelName(template string, vars map[string]string, awayName, homeName, exceptionKeyword string) string {
	name := defaultChannelName(awayName, homeName)
	if template != "" && !hasUnresolvedPlaceholder(template, vars) {
		name = xmltv.Substitute(template, vars)
	}
	if exceptionKeyword != "" {
		name = name + " (" + titleCaser.String(exceptionKeyword) + ")"
	}
	return name
}

// ResolveLogoURL resolves a managed channel's logo. A template containing
// "{" is resolved against vars the same way as the channel name; an
// unresolved or absent template falls back to the home team's static logo.
func ResolveLogoURL(template string, vars map[string]string, homeLogoURL string) string {
	if template == "" {
		return homeLogoURL
	}
	if !containsPlaceholder(template) {
		return template
	}
	if hasUnresolvedPlaceholder(template, vars) {
		return homeLogoURL
	}
	return xmltv.Substitute(template, vars)
}

func containsPlaceholder(s string) bool {
	return namingPlaceholderPattern.MatchString(s)
}
