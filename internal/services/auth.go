package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

// ClaimTokenPrefix marks short-lived claim tokens from plex.tv/claim.
const ClaimTokenPrefix = "claim-"

type pinResponse struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	AuthToken *string `json:"authToken"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Thumb     string `json:"thumb"`
	AuthToken string `json:"authToken"`
}

func (u userResponse) toModel() models.User {
	return models.User{ID: u.ID, UUID: u.UUID, Username: u.Username, Email: u.Email, Thumb: u.Thumb}
}

// IsClaimToken reports whether s is a claim token rather than an account token.
func IsClaimToken(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ClaimTokenPrefix)
}

// CreatePin creates a strong PIN on plex.tv.
func (c *Client) CreatePin(ctx context.Context) (models.Pin, error) {
	var resp pinResponse
	err := c.doRequest(ctx, request{
		op:     "create Plex PIN",
		method: http.MethodPost,
		url:    c.baseURL + "/api/v2/pins?strong=true",
	}, &resp)
	if err != nil {
		return models.Pin{}, err
	}

	if resp.ID == 0 {
		return models.Pin{}, &shared.ProtocolError{Op: "create Plex PIN", Field: "id"}
	}
	if resp.Code == "" {
		return models.Pin{}, &shared.ProtocolError{Op: "create Plex PIN", Field: "code"}
	}

	c.logger.Debug("created Plex PIN", "pin", resp.ID)
	return models.Pin{ID: resp.ID, Code: resp.Code}, nil
}

// AuthURL builds the app.plex.tv page where the user authorizes code.
func (c *Client) AuthURL(code string) string {
	params := url.Values{}
	params.Set("clientID", c.clientID)
	params.Set("code", code)
	params.Set("context[device][product]", c.product)
	return c.authAppURL + "#?" + params.Encode()
}

// PollPinStatus checks pinID once. An absent or empty authToken means the PIN is still pending.
func (c *Client) PollPinStatus(ctx context.Context, pinID int64) (string, bool, error) {
	var resp pinResponse
	err := c.doRequest(ctx, request{
		op:     "check PIN status",
		method: http.MethodGet,
		url:    c.baseURL + "/api/v2/pins/" + strconv.FormatInt(pinID, 10),
	}, &resp)
	if err != nil {
		return "", false, err
	}

	if resp.AuthToken == nil || *resp.AuthToken == "" {
		return "", false, nil
	}

	return *resp.AuthToken, true, nil
}

// ExchangeClaimToken trades a claim token for an account token.
func (c *Client) ExchangeClaimToken(ctx context.Context, claim string) (string, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return "", fmt.Errorf("%w: claim token", shared.ErrMissingArgument)
	}

	var resp struct {
		AuthToken string `json:"authToken"`
	}
	err := c.doRequest(ctx, request{
		op:     "exchange claim token",
		method: http.MethodPost,
		url:    c.baseURL + "/api/claim/exchange?token=" + url.QueryEscape(claim),
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.AuthToken == "" {
		return "", &shared.ProtocolError{Op: "exchange claim token", Field: "authToken"}
	}

	return resp.AuthToken, nil
}

// ValidateToken fetches the account profile for token. A 401 means the token was revoked or never valid.
func (c *Client) ValidateToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, shared.ErrNotAuthenticated
	}

	var resp userResponse
	err := c.doRequest(ctx, request{
		op:     "get Plex user",
		method: http.MethodGet,
		url:    c.baseURL + "/api/v2/user",
		token:  token,
	}, &resp)
	if isStatus(err, http.StatusUnauthorized) {
		return models.User{}, &shared.AuthenticationError{Op: "get Plex user", Err: shared.ErrTokenExpired}
	}
	if err != nil {
		return models.User{}, err
	}

	return resp.toModel(), nil
}

// SignIn authenticates with a username or email and a password.
func (c *Client) SignIn(ctx context.Context, login, password string) (string, models.User, error) {
	if login == "" || password == "" {
		return "", models.User{}, shared.ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("login", login)
	form.Set("password", password)

	var resp struct {
		User *userResponse `json:"user"`
	}
	err := c.doRequest(ctx, request{
		op:     "sign in",
		method: http.MethodPost,
		url:    c.baseURL + "/users/sign_in.json",
		form:   form,
	}, &resp)
	if isStatus(err, http.StatusUnauthorized) {
		return "", models.User{}, &shared.AuthenticationError{Op: "sign in", Err: shared.ErrInvalidCredentials}
	}
	if err != nil {
		return "", models.User{}, err
	}

	if resp.User == nil || resp.User.AuthToken == "" {
		return "", models.User{}, &shared.ProtocolError{Op: "sign in", Field: "user.authToken"}
	}

	return resp.User.AuthToken, resp.User.toModel(), nil
}
