package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

// DefaultHistoryLimit is the page size used when the caller passes no limit.
const DefaultHistoryLimit = 10000

// historyPage is one page of history. Size is nil when the server omits it.
type historyPage struct {
	Size     *int                `json:"size"`
	Metadata []models.PlayRecord `json:"Metadata"`
}

// FetchPlayHistory returns up to limit plays from one library section, most recent first.
//
// Only the first page is requested. A limit of zero or less uses [DefaultHistoryLimit].
func (c *Client) FetchPlayHistory(ctx context.Context, serverURL, token, sectionID string, limit int) ([]models.PlayRecord, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	if sectionID == "" {
		return nil, fmt.Errorf("%w: library section", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	params := url.Values{}
	params.Set("librarySectionID", sectionID)
	params.Set("sort", "viewedAt:desc")
	params.Set("X-Plex-Container-Start", "0")
	params.Set("X-Plex-Container-Size", strconv.Itoa(limit))

	// Plex wraps the page in MediaContainer; some proxies return it bare.
	var resp struct {
		historyPage
		MediaContainer *historyPage `json:"MediaContainer"`
	}
	err := c.doRequest(ctx, request{
		op:     "get play history",
		method: http.MethodGet,
		url:    joinURL(serverURL, "/status/sessions/history/all") + "?" + params.Encode(),
		token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}

	page := resp.historyPage
	if resp.MediaContainer != nil {
		page = *resp.MediaContainer
	}

	if page.Metadata == nil || (page.Size != nil && *page.Size == 0) {
		return []models.PlayRecord{}, nil
	}
	return page.Metadata, nil
}
