package api

import (
	"context"
	"errors"
	"fmt"

	"axolotl/internal/types"
)

// ErrNoToken is returned by Login when the backend accepted the credentials
// but sent no token.
var ErrNoToken = errors.New("login succeeded but no token was returned")

// Paths of the backend contract.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathMe       = "/users/me"
	PathPets     = "/api/pets"
)

// PetPath returns /api/pets/{id}.
func PetPath(id int64) string {
	return fmt.Sprintf("%s/%d", PathPets, id)
}

// PetActionsPath returns /api/pets/{id}/actions.
func PetActionsPath(id int64) string {
	return PetPath(id) + "/actions"
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (string, error) {
	raw, err := c.Post(ctx, PathLogin, creds, Anonymous())
	if err != nil {
		return "", err
	}
	resp, err := decode[types.AuthResponse](raw)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.BearerToken() == "" {
		return "", ErrNoToken
	}
	return resp.BearerToken(), nil
}

// Register creates an account. The token is "" when the backend expects a
// separate login.
func (c *Client) Register(ctx context.Context, reg types.Registration) (string, error) {
	raw, err := c.Post(ctx, PathRegister, reg, Anonymous())
	if err != nil {
		return "", err
	}
	resp, err := decode[types.AuthResponse](raw)
	if err != nil || resp == nil {
		return "", err
	}
	return resp.BearerToken(), nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	raw, err := c.Get(ctx, PathMe)
	if err != nil {
		return nil, err
	}
	return decodeRequired[types.User](raw)
}

// UpdateMe saves profile fields. The returned user is nil when the backend
// answers without a body.
func (c *Client) UpdateMe(ctx context.Context, upd types.ProfileUpdate) (*types.User, error) {
	raw, err := c.Put(ctx, PathMe, upd)
	if err != nil {
		return nil, err
	}
	return decode[types.User](raw)
}

// -----------------------------------------------------------------------------
// Pets
// -----------------------------------------------------------------------------

// ListPets returns the caller's pets. An empty body is an empty list.
func (c *Client) ListPets(ctx context.Context) ([]types.Pet, error) {
	raw, err := c.Get(ctx, PathPets)
	if err != nil {
		return nil, err
	}
	pets, err := decode[[]types.Pet](raw)
	if err != nil || pets == nil {
		return nil, err
	}
	return *pets, nil
}

// GetPet fetches one pet.
func (c *Client) GetPet(ctx context.Context, id int64) (*types.Pet, error) {
	raw, err := c.Get(ctx, PetPath(id))
	if err != nil {
		return nil, err
	}
	return decodeRequired[types.Pet](raw)
}

// CreatePet creates a pet. The result carries the id the caller navigates to.
func (c *Client) CreatePet(ctx context.Context, p types.NewPet) (*types.Pet, error) {
	if _, err := types.ParseColor(string(p.Color)); err != nil {
		return nil, err
	}
	raw, err := c.Post(ctx, PathPets, p)
	if err != nil {
		return nil, err
	}
	return decodeRequired[types.Pet](raw)
}

// UpdatePet sets hunger and happiness.
func (c *Client) UpdatePet(ctx context.Context, id int64, upd types.PetUpdate) (*types.Pet, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	raw, err := c.Put(ctx, PetPath(id), upd)
	if err != nil {
		return nil, err
	}
	return decode[types.Pet](raw)
}

// DeletePet removes a pet.
func (c *Client) DeletePet(ctx context.Context, id int64) error {
	_, err := c.Delete(ctx, PetPath(id))
	return err
}

// Act submits one action. The result is empty, never nil, when the backend
// sends no body.
func (c *Client) Act(ctx context.Context, id int64, action types.Action) (*types.ActionResult, error) {
	raw, err := c.Post(ctx, PetActionsPath(id), types.ActionRequest{Action: action})
	if err != nil {
		return nil, err
	}
	res, err := decode[types.ActionResult](raw)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &types.ActionResult{}
	}
	return res, nil
}
