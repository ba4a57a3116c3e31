package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"recipe-planner/internal/recipe"
	"recipe-planner/internal/session"
	"recipe-planner/internal/user"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, creds user.Credentials) (*session.Session, error) {
	return c.authenticate(ctx, "signIn", "/users/signin", creds)
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, creds user.Credentials) (*session.Session, error) {
	return c.authenticate(ctx, "signUp", "/users/signup", creds)
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds user.Credentials) (*session.Session, error) {
	var resp tokenResponse
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, body: creds}, &resp); err != nil {
		return nil, err
	}
	s, err := session.Parse(resp.Token)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("unusable token in response: %w", err))
	}
	return s, nil
}

// GetMe returns the signed-in user.
func (c *Client) GetMe(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, request{op: "getMe", method: http.MethodGet, path: "/users/me", auth: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe changes the profile fields set in upd.
func (c *Client) UpdateMe(ctx context.Context, upd user.Update) (*user.User, error) {
	f := &form{}
	if upd.Username != "" {
		f.add("username", upd.Username)
	}
	if upd.Email != "" {
		f.add("email", upd.Email)
	}
	if upd.Gender != user.GenderUnspecified {
		f.add("gender", string(upd.Gender))
	}
	if len(upd.ProfileImage) > 0 {
		name := upd.ProfileImageName
		if name == "" {
			name = "profile.jpg"
		}
		f.addFile("profileImage", name, upd.ProfileImage)
	}

	var u user.User
	if err := c.do(ctx, request{op: "updateUser", method: http.MethodPut, path: "/users/me", form: f, auth: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetFavorites(ctx context.Context) ([]recipe.Recipe, error) {
	var list recipe.List
	if err := c.do(ctx, request{op: "getFavoriteRecipes", method: http.MethodGet, path: "/users/favorites", auth: true}, &list); err != nil {
		return nil, err
	}
	return []recipe.Recipe(list), nil
}

func (c *Client) AddFavorite(ctx context.Context, recipeID string) error {
	return c.do(ctx, request{op: "addToFavorites", method: http.MethodPost, path: "/users/favorites/" + url.PathEscape(recipeID), auth: true}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, recipeID string) error {
	return c.do(ctx, request{op: "removeFromFavorites", method: http.MethodDelete, path: "/users/favorites/" + url.PathEscape(recipeID), auth: true}, nil)
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, request{op: "follow", method: http.MethodPost, path: "/users/" + url.PathEscape(userID) + "/follow", auth: true}, nil)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.do(ctx, request{op: "unfollow", method: http.MethodDelete, path: "/users/" + url.PathEscape(userID) + "/follow", auth: true}, nil)
}
