package normalize

import (
	"errors"
	"strings"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/source"
)

// ErrMalformedRecord marks a record that cannot enter the pipeline (no title).
// The orchestrator counts it as a task error and moves on.
var ErrMalformedRecord = errors.New("malformed record")

// DefaultRoute is the label used when a playback string carries no route name.
const DefaultRoute = "默认"

// NormalizedRecord is the canonical field set produced from one source record.
// Missing source fields become empty strings/slices, never nulls.
type NormalizedRecord struct {
	ExternalID string
	Title      string
	Year       string
	Area       string
	Language   string
	Cast       []string
	Directors  []string
	Writers    []string
	Synopsis   string
	Tags       []string
	Remarks    string
	Cover      string
	// PlayRoutes maps route label -> url, labels as the source named them.
	PlayRoutes map[string]string
	SourceName string
}

// Normalize maps a raw source record into the canonical schema. Pure, no I/O.
func Normalize(raw source.RawRecord, site repo.SourceSite) (*NormalizedRecord, error) {
	title := strings.TrimSpace(raw.Fields["vod_name"])
	if title == "" {
		return nil, ErrMalformedRecord
	}

	return &NormalizedRecord{
		ExternalID: strings.TrimSpace(raw.Fields["vod_id"]),
		Title:      title,
		Year:       strings.TrimSpace(raw.Fields["vod_year"]),
		Area:       strings.TrimSpace(raw.Fields["vod_area"]),
		Language:   strings.TrimSpace(raw.Fields["vod_lang"]),
		Cast:       splitPersons(raw.Fields["vod_actor"]),
		Directors:  splitPersons(raw.Fields["vod_director"]),
		Writers:    splitPersons(raw.Fields["vod_writer"]),
		Synopsis:   strings.TrimSpace(raw.Fields["vod_content"]),
		Tags:       splitPersons(raw.Fields["vod_class"]),
		Remarks:    strings.TrimSpace(raw.Fields["vod_remarks"]),
		Cover:      strings.TrimSpace(raw.Fields["vod_pic"]),
		PlayRoutes: SplitPlayRoutes(raw.Fields["vod_play_from"], raw.Fields["vod_play_url"]),
		SourceName: site.Name,
	}, nil
}

// SplitPlayRoutes breaks a CMS playback string into {label: url} pairs.
//
// playFrom names parallel route groups separated by "$$$" (m3u8$$$mp4), and
// playURL carries the matching groups, each a #/;/, separated list of
// "label$url" or "label$$url" episode entries. We keep one representative URL
// per route group. A bare URL with no label falls back to DefaultRoute.
func SplitPlayRoutes(playFrom, playURL string) map[string]string {
	playURL = strings.TrimSpace(playURL)
	if playURL == "" {
		return map[string]string{}
	}

	froms := strings.Split(playFrom, "$$$")
	groups := strings.Split(playURL, "$$$")

	routes := make(map[string]string, len(groups))
	for i, group := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}

		label, url := splitEntry(firstEntry(group))
		if url == "" {
			continue
		}
		if label == "" {
			if i < len(froms) && strings.TrimSpace(froms[i]) != "" {
				label = strings.TrimSpace(froms[i])
			} else {
				label = DefaultRoute
			}
		}
		routes[label] = url
	}
	return routes
}

func firstEntry(group string) string {
	for _, sep := range []string{"#", ";", ","} {
		if idx := strings.Index(group, sep); idx >= 0 {
			return group[:idx]
		}
	}
	return group
}

// splitEntry splits "label$$url" or "label$url" into its parts. An entry that
// is just a URL yields an empty label.
func splitEntry(entry string) (label, url string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", ""
	}

	if idx := strings.Index(entry, "$$"); idx >= 0 {
		return strings.TrimSpace(entry[:idx]), strings.TrimSpace(entry[idx+2:])
	}
	if idx := strings.Index(entry, "$"); idx >= 0 {
		return strings.TrimSpace(entry[:idx]), strings.TrimSpace(entry[idx+1:])
	}
	return "", entry
}

func splitPersons(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '，' || r == '、'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
