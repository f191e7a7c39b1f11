package xmltv

import (
	"bytes"
	"strings"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// programmeKey identifies a programme for de-duplication across merged
// documents: same channel, same start, same stop is the same broadcast.
type programmeKey struct {
	channel string
	start   string
	stop    string
}

// Merge combines multiple XMLTV documents into one, deduplicating channels
// by id and programmes by (channel, start, stop). Documents are merged in
// the order given; the first occurrence of a duplicate wins.
func Merge(documents [][]byte, generatorName string) ([]byte, error) {
	seenChannels := map[string]bool{}
	var channels []model.Channel

	seenProgrammes := map[programmeKey]bool{}
	var programmes []model.Programme

	for _, doc := range documents {
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		parsed, err := Parse(bytes.NewReader(doc))
		if err != nil {
			continue // malformed source document: skip, don't fail the whole merge
		}

		for _, c := range parsed.Channels {
			if c.ID == "" || seenChannels[c.ID] {
				continue
			}
			seenChannels[c.ID] = true
			channels = append(channels, c)
		}

		for _, p := range parsed.Programmes {
			key := programmeKey{
				channel: p.ChannelID,
				start:   p.Start.Format(dateLayout),
				stop:    p.Stop.Format(dateLayout),
			}
			if seenProgrammes[key] {
				continue
			}
			seenProgrammes[key] = true
			programmes = append(programmes, p)
		}
	}

	if generatorName == "" {
		generatorName = DefaultGenerator + " (merged)"
	}
	return Render(channels, programmes, generatorName)
}

// MergeStrings is a convenience wrapper over Merge for callers that already
// hold XMLTV content as strings (e.g. fetched from an upstream source URL).
func MergeStrings(documents []string, generatorName string) ([]byte, error) {
	byteDocs := make([][]byte, 0, len(documents))
	for _, d := range documents {
		if strings.TrimSpace(d) == "" {
			continue
		}
		byteDocs = append(byteDocs, []byte(d))
	}
	return Merge(byteDocs, generatorName)
}
