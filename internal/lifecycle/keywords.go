package lifecycle

import "strings"

// ExceptionKeyword routes streams whose name contains Keyword onto a
// sibling "keyword channel" rather than the group's primary channel for an
// event, using Behavior as that channel's own duplicate-handling mode.
type ExceptionKeyword struct {
	Keyword  string
	Behavior DuplicateMode
}

// CheckExceptionKeyword reports the first configured keyword whose text
// appears in streamName (case-insensitive substring match), along with the
// duplicate-handling behavior it overrides onto. Returns ok=false if no
// keyword matches.
func CheckExceptionKeyword(streamName string, keywords []ExceptionKeyword) (matched string, behavior DuplicateMode, ok bool) {
	lowered := strings.ToLower(streamName)
	for _, kw := range keywords {
		if kw.Keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw.Keyword)) {
			return kw.Keyword, kw.Behavior, true
		}
	}
	return "", "", false
}
