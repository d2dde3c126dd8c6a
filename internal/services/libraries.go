package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

// ServerOutcome is the result of listing one server's libraries.
//
// Exactly one of Libraries or Err is meaningful; URL is empty when no connection could be selected.
type ServerOutcome struct {
	Server    models.Server
	URL       string
	Libraries []models.Library
	Err       error
}

// OK reports whether the probe succeeded.
func (o ServerOutcome) OK() bool { return o.Err == nil }

// ListLibraries returns the content sections of the server at serverURL.
func (c *Client) ListLibraries(ctx context.Context, serverURL, token string) ([]models.Library, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var resp struct {
		MediaContainer struct {
			Directory []models.Library `json:"Directory"`
		} `json:"MediaContainer"`
	}
	err := c.doRequest(ctx, request{
		op:     "get libraries",
		method: http.MethodGet,
		url:    joinURL(serverURL, "/library/sections"),
		token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.MediaContainer.Directory == nil {
		return []models.Library{}, nil
	}
	return resp.MediaContainer.Directory, nil
}

// ProbeServers lists libraries on every server concurrently.
//
// The result has one entry per server and outcome i always belongs to servers[i]. Each probe
// runs under its own timeout, so a slow or failing server never affects the others.
func (c *Client) ProbeServers(ctx context.Context, servers []models.Server, token string) []ServerOutcome {
	outcomes := make([]ServerOutcome, len(servers))
	sem := make(chan struct{}, c.probeWorkers)
	var wg sync.WaitGroup

	for i, server := range servers {
		wg.Add(1)
		go func(i int, server models.Server) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = ServerOutcome{Server: server, Err: ctx.Err()}
				return
			}

			outcomes[i] = c.probe(ctx, server, token)
		}(i, server)
	}

	wg.Wait()
	return outcomes
}

func (c *Client) probe(ctx context.Context, server models.Server, token string) ServerOutcome {
	outcome := ServerOutcome{Server: server}

	serverURL, err := SelectBestURL(server)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.URL = serverURL

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	outcome.Libraries, outcome.Err = c.ListLibraries(ctx, serverURL, token)
	return outcome
}

// FindMusicLibraries returns every (server, music library) pair reachable with token.
//
// Servers that fail are logged and skipped. Order follows servers, then each server's library order.
func (c *Client) FindMusicLibraries(ctx context.Context, servers []models.Server, token string) []models.MusicLibrary {
	return c.MusicLibraries(c.ProbeServers(ctx, servers, token))
}

// MusicLibraries filters successful outcomes down to music libraries, logging each failure.
func (c *Client) MusicLibraries(outcomes []ServerOutcome) []models.MusicLibrary {
	music := []models.MusicLibrary{}
	for _, o := range outcomes {
		if !o.OK() {
			c.logger.Warn("failed to get libraries for server", "server", o.Server.Name, "error", o.Err)
			c.recorder.ProbeFailed(o.Server.Name)
			continue
		}

		for _, lib := range o.Libraries {
			if lib.IsMusic() {
				music = append(music, models.MusicLibrary{Server: o.Server, Library: lib})
			}
		}
	}
	return music
}
