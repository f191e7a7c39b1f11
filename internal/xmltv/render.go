package xmltv

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// DefaultGenerator is the generator-info-name advertised in rendered
// XMLTV documents when the caller doesn't override it.
const DefaultGenerator = "Teamarr"

type tvRoot struct {
	XMLName        xml.Name       `xml:"tv"`
	GeneratorName  string         `xml:"generator-info-name,attr"`
	Channels       []renderChannel `xml:"channel"`
	Programmes     []renderProgramme `xml:"programme"`
}

type renderChannel struct {
	ID          string     `xml:"id,attr"`
	DisplayName string     `xml:"display-name"`
	Icon        *iconField `xml:"icon"`
}

type renderProgramme struct {
	Start    string       `xml:"start,attr"`
	Stop     string       `xml:"stop,attr"`
	Channel  string       `xml:"channel,attr"`
	Title    langField    `xml:"title"`
	SubTitle *langField   `xml:"sub-title,omitempty"`
	Desc     *langField   `xml:"desc,omitempty"`
	Category *langField   `xml:"category,omitempty"`
	Icon     *iconField   `xml:"icon"`
}

type langField struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type iconField struct {
	Src string `xml:"src,attr"`
}

// Render serializes channels and programmes into an XMLTV document. Output
// is deterministic in the order the slices are given — callers are
// responsible for sorting (by channel number, then by start time) before
// calling Render, since XMLTV readers render list order as guide order.
func Render(channels []model.Channel, programmes []model.Programme, generatorName string) ([]byte, error) {
	if generatorName == "" {
		generatorName = DefaultGenerator
	}

	root := tvRoot{GeneratorName: generatorName}
	for _, c := range channels {
		rc := renderChannel{ID: c.ID, DisplayName: c.DisplayName}
		if c.IconURL != "" {
			rc.Icon = &iconField{Src: c.IconURL}
		}
		root.Channels = append(root.Channels, rc)
	}

	for _, p := range programmes {
		start, stop := p.Start.Format(dateLayout), p.Stop.Format(dateLayout)
		rp := renderProgramme{
			Start:   start,
			Stop:    stop,
			Channel: p.ChannelID,
			Title:   langField{Lang: "en", Text: p.Title},
		}
		if p.SubTitle != "" {
			rp.SubTitle = &langField{Lang: "en", Text: p.SubTitle}
		}
		if p.Description != "" {
			rp.Desc = &langField{Lang: "en", Text: p.Description}
		}
		if p.Category != "" {
			rp.Category = &langField{Lang: "en", Text: p.Category}
		}
		if p.IconURL != "" {
			rp.Icon = &iconField{Src: p.IconURL}
		}
		root.Programmes = append(root.Programmes, rp)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("xmltv: encode: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
