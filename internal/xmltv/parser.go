// Package xmltv renders and parses XMLTV-formatted EPG documents: the
// standard <tv><channel/><programme/></tv> format most IPTV front ends
// consume. It also merges multiple XMLTV documents (e.g. our own output
// plus a scraped upstream feed) and synthesizes filler programmes for
// the gaps between scheduled events.
//
// XMLTV date format: YYYYMMDDHHmmss +ZZZZ (e.g. "20260223140000 +0000")
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// dateLayout is the XMLTV timestamp format.
const dateLayout = "20060102150405 -0700"

// ParseResult holds everything read out of one XMLTV document.
type ParseResult struct {
	Channels   []model.Channel
	Programmes []model.Programme
}

type xmlChannel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
	Icon        struct {
		Src string `xml:"src,attr"`
	} `xml:"icon"`
}

type xmlProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	SubTitle string `xml:"sub-title"`
	Desc    string `xml:"desc"`
	Icon    struct {
		Src string `xml:"src,attr"`
	} `xml:"icon"`
	Category []string `xml:"category"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty xmltv date")
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse("20060102150405", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse xmltv date %q: %w", s, err)
		}
	}
	return t, nil
}

// Parse reads an XMLTV document from r. Malformed individual elements are
// skipped rather than failing the whole parse, so a partial upstream feed
// still yields maximum usable data.
func Parse(r io.Reader) (*ParseResult, error) {
	decoder := xml.NewDecoder(r)
	result := &ParseResult{}

	var inTV bool
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml token: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tv":
				inTV = true
			case "channel":
				if !inTV {
					continue
				}
				var raw xmlChannel
				if err := decoder.DecodeElement(&raw, &el); err != nil {
					continue
				}
				if raw.ID == "" {
					continue
				}
				result.Channels = append(result.Channels, model.Channel{
					ID:          raw.ID,
					DisplayName: raw.DisplayName,
					IconURL:     raw.Icon.Src,
				})
			case "programme":
				if !inTV {
					continue
				}
				var raw xmlProgramme
				if err := decoder.DecodeElement(&raw, &el); err != nil {
					continue
				}
				start, err := parseDate(raw.Start)
				if err != nil {
					continue
				}
				stop, err := parseDate(raw.Stop)
				if err != nil {
					continue
				}
				category := ""
				if len(raw.Category) > 0 {
					category = raw.Category[0]
				}
				result.Programmes = append(result.Programmes, model.Programme{
					ChannelID:   raw.Channel,
					Start:       start,
					Stop:        stop,
					Title:       raw.Title,
					SubTitle:    raw.SubTitle,
					Description: raw.Desc,
					Category:    category,
					IconURL:     raw.Icon.Src,
				})
			}
		case xml.EndElement:
			if el.Name.Local == "tv" {
				inTV = false
			}
		}
	}

	return result, nil
}
