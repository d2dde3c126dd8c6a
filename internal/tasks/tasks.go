package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

// WrappedOpts selects the library and shapes the recap.
type WrappedOpts struct {
	ServerID   string // client identifier or name; empty picks the first server with music
	LibraryKey string // section key or title; empty picks the first music library
	Limit      int    // history page size; zero uses services.DefaultHistoryLimit
	Year       int    // keep plays from this UTC year; zero keeps everything
	Top        int    // length of the top lists
}

// WrappedResult is the library that was read, its play history, and the recap built from it.
type WrappedResult struct {
	Library models.MusicLibrary `json:"library"`
	Records []models.PlayRecord `json:"-"`
	Summary Summary             `json:"summary"`
}

// WrappedEngine ties discovery and history together for one token at a time.
type WrappedEngine struct {
	dir    services.Directory
	logger *log.Logger
}

// NewWrappedEngine creates a [WrappedEngine] backed by dir.
func NewWrappedEngine(dir services.Directory, logger *log.Logger) *WrappedEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &WrappedEngine{dir: dir, logger: logger}
}

// Libraries lists every music library reachable with token. Servers that cannot be reached are skipped.
func (e *WrappedEngine) Libraries(ctx context.Context, prog chan<- ProgressUpdate, token string) ([]models.MusicLibrary, error) {
	if e.dir == nil {
		return nil, fmt.Errorf("%w: Plex client not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(prog, fetchServersUpdate())
	servers, err := e.dir.ListServers(ctx, token)
	if err != nil {
		return nil, err
	}

	sendProgress(prog, probeServersUpdate(servers))
	libs := e.dir.FindMusicLibraries(ctx, servers, token)
	sendProgress(prog, foundLibrariesUpdate(len(servers), libs))

	e.logger.Debug("found music libraries", "servers", len(servers), "libraries", len(libs))
	return libs, nil
}

// History fetches play history for lib through its server's best connection.
func (e *WrappedEngine) History(ctx context.Context, prog chan<- ProgressUpdate, token string, lib models.MusicLibrary, limit int) ([]models.PlayRecord, error) {
	serverURL, err := services.SelectBestURL(lib.Server)
	if err != nil {
		return nil, err
	}

	sendProgress(prog, fetchHistoryUpdate(lib))
	return e.dir.FetchPlayHistory(ctx, serverURL, token, lib.Library.Key, limit)
}

// Run finds the requested music library, fetches its history and summarizes it.
func (e *WrappedEngine) Run(ctx context.Context, prog chan<- ProgressUpdate, token string, opts WrappedOpts) (*WrappedResult, error) {
	libs, err := e.Libraries(ctx, prog, token)
	if err != nil {
		return nil, err
	}

	lib, err := SelectLibrary(libs, opts.ServerID, opts.LibraryKey)
	if err != nil {
		return nil, err
	}

	records, err := e.History(ctx, prog, token, lib, opts.Limit)
	if err != nil {
		return nil, err
	}

	records = FilterByYear(records, opts.Year)
	sendProgress(prog, summarizeUpdate(len(records)))

	summary := Summarize(records, opts.Top)
	summary.Year = opts.Year

	return &WrappedResult{Library: lib, Records: records, Summary: summary}, nil
}

// SelectLibrary picks a library by server (client identifier or name) and library (key or title).
//
// Empty selectors match anything, so with no selectors the first library wins. Names and titles
// compare case-insensitively.
func SelectLibrary(libs []models.MusicLibrary, server, library string) (models.MusicLibrary, error) {
	for _, l := range libs {
		if server != "" && l.Server.ClientIdentifier != server && !strings.EqualFold(l.Server.Name, server) {
			continue
		}
		if library != "" && l.Library.Key != library && !strings.EqualFold(l.Library.Title, library) {
			continue
		}
		return l, nil
	}

	switch {
	case server != "" && library != "":
		return models.MusicLibrary{}, fmt.Errorf("%w: %q on server %q", shared.ErrLibraryNotFound, library, server)
	case server != "":
		return models.MusicLibrary{}, fmt.Errorf("%w: on server %q", shared.ErrLibraryNotFound, server)
	case library != "":
		return models.MusicLibrary{}, fmt.Errorf("%w: %q", shared.ErrLibraryNotFound, library)
	default:
		return models.MusicLibrary{}, shared.ErrLibraryNotFound
	}
}
