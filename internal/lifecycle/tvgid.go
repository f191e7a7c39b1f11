package lifecycle

import "fmt"

// tvgIDPrefix namespaces every channel this system creates, so the orphan
// sweep can recognize and reclaim them on the aggregator side.
const tvgIDPrefix = "teamarr-event"

// GenerateEventTVGID derives the stable tvg-id for an event-backed managed
// channel. It is keyed on the event id and provider, not the channel's own
// id, so re-running a match against the same event always resolves back to
// the same tvg-id even across a soft-delete/recreate cycle.
func GenerateEventTVGID(eventID, eventProvider string) string {
	return fmt.Sprintf("%s-%s-%s", tvgIDPrefix, eventProvider, eventID)
}

// HasEventPrefix reports whether a tvg-id was issued by this system, for
// use by the orphan-channel sweep.
func HasEventPrefix(tvgID string) bool {
	prefix := tvgIDPrefix + "-"
	return len(tvgID) > len(prefix) && tvgID[:len(prefix)] == prefix
}
