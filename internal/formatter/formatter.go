// package formatter renders play history and recaps as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
)

// Format is an output format accepted by --format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts json, csv, markdown/md and text/txt. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or text)", shared.ErrInvalidFlag, s)
	}
}

// History renders records in format f.
func History(f Format, records []models.PlayRecord, title string) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(records, true)
	case FormatCSV:
		return HistoryToCSV(records)
	case FormatMarkdown:
		return HistoryToMarkdown(records, title)
	default:
		return HistoryToText(records, title)
	}
}

// Wrapped renders a recap in format f. CSV output lists the underlying plays.
func Wrapped(f Format, result *tasks.WrappedResult) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(result, true)
	case FormatCSV:
		return HistoryToCSV(result.Records)
	case FormatMarkdown:
		return SummaryToMarkdown(result.Summary, libraryTitle(result.Library))
	default:
		return SummaryToText(result.Summary, libraryTitle(result.Library))
	}
}

func libraryTitle(lib models.MusicLibrary) string {
	return fmt.Sprintf("%s on %s", lib.Library.Title, lib.Server.Name)
}

// HistoryToCSV converts play records to CSV with columns: Viewed At, Artist, Album, Title, Duration, Key
func HistoryToCSV(records []models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Viewed At", "Artist", "Album", "Title", "Duration", "Key"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			shared.FormatTimestamp(r.ViewedAt),
			r.GrandparentTitle,
			r.ParentTitle,
			r.Title,
			strconv.FormatInt(r.Duration, 10),
			r.Key,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts play records to a Markdown list headed by title
func HistoryToMarkdown(records []models.PlayRecord, title string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Plays**: %d\n\n", len(records))

	buf.WriteString("## History\n\n")
	for i, r := range records {
		albumPart := ""
		if r.ParentTitle != "" {
			albumPart = fmt.Sprintf(" (%s)", r.ParentTitle)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s] %s\n", i+1, orUnknown(r.GrandparentTitle), r.Title, albumPart,
			shared.FormatDuration(r.Duration), shared.FormatTimestamp(r.ViewedAt))
	}

	return buf.Bytes(), nil
}

// HistoryToText converts play records to plain text
func HistoryToText(records []models.PlayRecord, title string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Plays: %d\n\n", len(records))

	for i, r := range records {
		fmt.Fprintf(&buf, "%d. %s  %s - %s\n", i+1, shared.FormatTimestamp(r.ViewedAt), orUnknown(r.GrandparentTitle), r.Title)
	}

	return buf.Bytes(), nil
}

// SummaryToText renders a recap as plain text
func SummaryToText(s tasks.Summary, title string) ([]byte, error) {
	var buf bytes.Buffer

	heading := "Plex Wrapped"
	if s.Year != 0 {
		heading = fmt.Sprintf("Plex Wrapped %d", s.Year)
	}
	fmt.Fprintf(&buf, "%s: %s\n\n", heading, title)

	fmt.Fprintf(&buf, "Plays:          %d\n", s.TotalPlays)
	fmt.Fprintf(&buf, "Listening time: %s\n", shared.FormatDuration(s.TotalDurationMs))
	fmt.Fprintf(&buf, "Artists:        %d\n", s.UniqueArtists)
	fmt.Fprintf(&buf, "Albums:         %d\n", s.UniqueAlbums)
	fmt.Fprintf(&buf, "Tracks:         %d\n", s.UniqueTracks)
	if s.FirstPlay != nil && s.LastPlay != nil {
		fmt.Fprintf(&buf, "From:           %s\n", shared.FormatTimestamp(s.FirstPlay.ViewedAt))
		fmt.Fprintf(&buf, "To:             %s\n", shared.FormatTimestamp(s.LastPlay.ViewedAt))
	}

	writeTextList(&buf, "Top Artists", s.TopArtists)
	writeTextList(&buf, "Top Albums", s.TopAlbums)
	writeTextList(&buf, "Top Tracks", s.TopTracks)

	if len(s.Months) > 0 {
		buf.WriteString("\nBy Month\n")
		for _, m := range s.Months {
			fmt.Fprintf(&buf, "  %s  %d\n", m.Month, m.Plays)
		}
	}

	return buf.Bytes(), nil
}

func writeTextList(buf *bytes.Buffer, heading string, counts []tasks.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n%s\n", heading)
	for i, c := range counts {
		fmt.Fprintf(buf, "  %2d. %s (%d plays)\n", i+1, countLabel(c), c.Plays)
	}
}

// SummaryToMarkdown renders a recap as Markdown
func SummaryToMarkdown(s tasks.Summary, title string) ([]byte, error) {
	var buf bytes.Buffer

	if s.Year != 0 {
		fmt.Fprintf(&buf, "# Plex Wrapped %d\n\n", s.Year)
	} else {
		buf.WriteString("# Plex Wrapped\n\n")
	}
	fmt.Fprintf(&buf, "_%s_\n\n", title)

	fmt.Fprintf(&buf, "**Plays**: %d\n", s.TotalPlays)
	fmt.Fprintf(&buf, "**Listening time**: %s\n", shared.FormatDuration(s.TotalDurationMs))
	fmt.Fprintf(&buf, "**Artists**: %d | **Albums**: %d | **Tracks**: %d\n", s.UniqueArtists, s.UniqueAlbums, s.UniqueTracks)

	writeMarkdownTable(&buf, "Top Artists", s.TopArtists)
	writeMarkdownTable(&buf, "Top Albums", s.TopAlbums)
	writeMarkdownTable(&buf, "Top Tracks", s.TopTracks)

	if len(s.Months) > 0 {
		buf.WriteString("\n## By Month\n\n| Month | Plays |\n| --- | --- |\n")
		for _, m := range s.Months {
			fmt.Fprintf(&buf, "| %s | %d |\n", m.Month, m.Plays)
		}
	}

	return buf.Bytes(), nil
}

func writeMarkdownTable(buf *bytes.Buffer, heading string, counts []tasks.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n## %s\n\n| # | Name | Plays | Time |\n| --- | --- | --- | --- |\n", heading)
	for i, c := range counts {
		fmt.Fprintf(buf, "| %d | %s | %d | %s |\n", i+1, escapeCell(countLabel(c)), c.Plays, shared.FormatDuration(c.DurationMs))
	}
}

// LibrariesToText lists music libraries, one per line.
func LibrariesToText(libs []models.MusicLibrary) []byte {
	var buf bytes.Buffer
	if len(libs) == 0 {
		buf.WriteString("No music libraries found\n")
		return buf.Bytes()
	}
	for _, l := range libs {
		fmt.Fprintf(&buf, "%s\t%s\t%s (%s)\n", l.Server.Name, l.Library.Key, l.Library.Title, l.Server.ClientIdentifier)
	}
	return buf.Bytes()
}

// ServersToText lists servers with the URL that would be used to reach them.
func ServersToText(servers []models.Server) []byte {
	var buf bytes.Buffer
	if len(servers) == 0 {
		buf.WriteString("No servers found\n")
		return buf.Bytes()
	}
	for _, s := range servers {
		uri, err := services.SelectBestURL(s)
		if err != nil {
			uri = "unreachable: " + err.Error()
		}
		owned := ""
		if s.Owned {
			owned = " [owned]"
		}
		fmt.Fprintf(&buf, "%s (%s)%s\n  %s\n", s.Name, s.ClientIdentifier, owned, uri)
	}
	return buf.Bytes()
}

func countLabel(c tasks.Count) string {
	if c.Detail == "" {
		return c.Name
	}
	return fmt.Sprintf("%s - %s", c.Detail, c.Name)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown Artist"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
