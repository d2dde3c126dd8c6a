package tasks

import (
	"cmp"
	"slices"
	"time"

	"github.com/desertthunder/plexwrapped/internal/models"
)

// DefaultTop is the length of each top list when the caller does not choose one.
const DefaultTop = 10

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// Count is one row of a top list. Detail names the artist for albums and tracks.
type Count struct {
	Name       string `json:"name"`
	Detail     string `json:"detail,omitempty"`
	Plays      int    `json:"plays"`
	DurationMs int64  `json:"durationMs"`
}

// MonthCount is the number of plays in one calendar month, formatted "2006-01".
type MonthCount struct {
	Month string `json:"month"`
	Plays int    `json:"plays"`
}

// Summary is the listening recap computed from play history.
type Summary struct {
	Year            int                `json:"year,omitempty"`
	TotalPlays      int                `json:"totalPlays"`
	TotalDurationMs int64              `json:"totalDurationMs"`
	UniqueArtists   int                `json:"uniqueArtists"`
	UniqueAlbums    int                `json:"uniqueAlbums"`
	UniqueTracks    int                `json:"uniqueTracks"`
	TopArtists      []Count            `json:"topArtists"`
	TopAlbums       []Count            `json:"topAlbums"`
	TopTracks       []Count            `json:"topTracks"`
	Months          []MonthCount       `json:"months"`
	FirstPlay       *models.PlayRecord `json:"firstPlay,omitempty"`
	LastPlay        *models.PlayRecord `json:"lastPlay,omitempty"`
}

// FilterByYear keeps records played during year (UTC). A year of zero keeps everything.
func FilterByYear(records []models.PlayRecord, year int) []models.PlayRecord {
	if year == 0 {
		return records
	}

	out := make([]models.PlayRecord, 0, len(records))
	for _, r := range records {
		if r.ViewedTime().Year() == year {
			out = append(out, r)
		}
	}
	return out
}

type tally struct {
	counts map[string]*Count
}

func newTally() *tally { return &tally{counts: make(map[string]*Count)} }

func (t *tally) add(key, name, detail string, durationMs int64) {
	c, ok := t.counts[key]
	if !ok {
		c = &Count{Name: name, Detail: detail}
		t.counts[key] = c
	}
	c.Plays++
	c.DurationMs += durationMs
}

// top returns the n most played entries; ties are broken by name, then detail.
func (t *tally) top(n int) []Count {
	out := make([]Count, 0, len(t.counts))
	for _, c := range t.counts {
		out = append(out, *c)
	}

	slices.SortFunc(out, func(a, b Count) int {
		if a.Plays != b.Plays {
			return cmp.Compare(b.Plays, a.Plays)
		}
		if a.Name != b.Name {
			return cmp.Compare(a.Name, b.Name)
		}
		return cmp.Compare(a.Detail, b.Detail)
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Summarize computes totals, top lists and a per-month breakdown. A top of zero or less uses [DefaultTop].
func Summarize(records []models.PlayRecord, top int) Summary {
	if top <= 0 {
		top = DefaultTop
	}

	artists, albums, tracks := newTally(), newTally(), newTally()
	months := make(map[string]int)
	summary := Summary{TotalPlays: len(records)}

	for i := range records {
		r := records[i]
		artist := orDefault(r.GrandparentTitle, unknownArtist)
		album := orDefault(r.ParentTitle, unknownAlbum)

		summary.TotalDurationMs += r.Duration
		artists.add(artist, artist, "", r.Duration)
		albums.add(artist+"\x00"+album, album, artist, r.Duration)
		tracks.add(artist+"\x00"+album+"\x00"+r.Title, r.Title, artist, r.Duration)
		months[r.ViewedTime().Format("2006-01")]++

		if summary.FirstPlay == nil || r.ViewedAt < summary.FirstPlay.ViewedAt {
			summary.FirstPlay = &records[i]
		}
		if summary.LastPlay == nil || r.ViewedAt > summary.LastPlay.ViewedAt {
			summary.LastPlay = &records[i]
		}
	}

	summary.UniqueArtists = len(artists.counts)
	summary.UniqueAlbums = len(albums.counts)
	summary.UniqueTracks = len(tracks.counts)
	summary.TopArtists = artists.top(top)
	summary.TopAlbums = albums.top(top)
	summary.TopTracks = tracks.top(top)

	summary.Months = make([]MonthCount, 0, len(months))
	for m, n := range months {
		summary.Months = append(summary.Months, MonthCount{Month: m, Plays: n})
	}
	slices.SortFunc(summary.Months, func(a, b MonthCount) int { return cmp.Compare(a.Month, b.Month) })

	return summary
}

// ListeningTime returns the summed play duration.
func (s Summary) ListeningTime() time.Duration {
	return time.Duration(s.TotalDurationMs) * time.Millisecond
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
