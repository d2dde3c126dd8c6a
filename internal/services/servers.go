package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

type resourceResponse struct {
	ClientIdentifier string              `json:"clientIdentifier"`
	Name             string              `json:"name"`
	Provides         string              `json:"provides"`
	Owned            bool                `json:"owned"`
	AccessToken      string              `json:"accessToken"`
	Connections      []models.Connection `json:"connections"`
}

func (r resourceResponse) toModel() models.Server {
	return models.Server{
		ClientIdentifier: r.ClientIdentifier,
		Name:             r.Name,
		Provides:         r.Provides,
		Owned:            r.Owned,
		AccessToken:      r.AccessToken,
		Connections:      r.Connections,
	}
}

// ListServers returns the account's media servers in the order plex.tv lists them.
//
// Resources that only act as clients or players are dropped.
func (c *Client) ListServers(ctx context.Context, token string) ([]models.Server, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var resources []resourceResponse
	err := c.doRequest(ctx, request{
		op:     "get Plex servers",
		method: http.MethodGet,
		url:    c.baseURL + "/api/v2/resources?includeHttps=1",
		token:  token,
	}, &resources)
	if err != nil {
		return nil, err
	}

	servers := make([]models.Server, 0, len(resources))
	for _, r := range resources {
		if server := r.toModel(); server.IsMediaServer() {
			servers = append(servers, server)
		}
	}

	c.logger.Debug("listed Plex resources", "resources", len(resources), "servers", len(servers))
	return servers, nil
}

// SelectBestURL picks the endpoint used to reach server.
//
// The first https connection that is not local wins; otherwise the first connection is used.
func SelectBestURL(server models.Server) (string, error) {
	if len(server.Connections) == 0 {
		return "", &shared.NoConnectionError{Server: server.Name}
	}

	for _, conn := range server.Connections {
		if conn.Secure() && !conn.Local {
			return conn.URI, nil
		}
	}

	return server.Connections[0].URI, nil
}
