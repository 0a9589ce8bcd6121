package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/msilvprog7/receipt/internal/core"
)

// FacebookConfig carries the Graph API credentials loaded at startup.
type FacebookConfig struct {
	ClientID     string
	ClientSecret string
	Version      string
	Scope        string
}

// facebookProfile is the Graph API "me" response for fields=name,picture.
// The picture sits inside a data wrapper that the mapping flattens.
type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebook builds a Flow against the Facebook Graph API for the
// configured version. The profile request asks only for the fields the
// identity mapping consumes.
func NewFacebook(cfg FacebookConfig, client *http.Client) *Flow {
	endpoints := Endpoints{
		Authorize: fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", cfg.Version),
		Token:     fmt.Sprintf("https://graph.facebook.com/%s/oauth/access_token", cfg.Version),
		Profile:   fmt.Sprintf("https://graph.facebook.com/%s/me?fields=name,picture", cfg.Version),
	}
	return NewFlow(cfg.ClientID, cfg.ClientSecret, cfg.Scope, endpoints, MapFacebookProfile, client)
}

// MapFacebookProfile maps a Graph API profile body into a core.User:
//
//	id                  -> User.ID
//	name                -> User.Name (split on whitespace into first/last/full)
//	picture.data.url    -> User.Picture.URL
//	picture.data.width  -> User.Picture.Width
//	picture.data.height -> User.Picture.Height
func MapFacebookProfile(body []byte) (core.User, error) {
	var profile facebookProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrMalformedIdentity, err)
	}
	if profile.ID == "" || profile.Name == "" || profile.Picture.Data.URL == "" {
		return core.User{}, core.ErrMalformedIdentity
	}
	return core.User{
		ID:   profile.ID,
		Name: core.SplitName(profile.Name),
		Picture: core.Picture{
			URL:    profile.Picture.Data.URL,
			Width:  profile.Picture.Data.Width,
			Height: profile.Picture.Data.Height,
		},
	}, nil
}
