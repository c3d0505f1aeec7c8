package client

import (
	"context"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/service"
	"github.com/and161185/recipebook/internal/session"
)

// Auth is the remote auth provider.
type Auth struct {
	api *api.BackendClient
}

var (
	_ session.AuthBackend = (*Auth)(nil)
	_ service.Identities  = (*Auth)(nil)
)

func toIdentity(id api.Identity) model.Identity {
	return model.Identity{Email: id.Email, DisplayName: id.DisplayName, PhotoURL: id.PhotoURL}
}

// SignUp creates an identity.
func (a *Auth) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	resp, err := a.api.SignUp(ctx, &api.Credentials{Email: email, Password: password})
	if err != nil {
		return model.Identity{}, fromStatus(err)
	}
	return toIdentity(resp.Identity), nil
}

// SignIn exchanges credentials for an access token.
func (a *Auth) SignIn(ctx context.Context, email, password string) (model.Tokens, model.Identity, error) {
	resp, err := a.api.SignIn(ctx, &api.Credentials{Email: email, Password: password})
	if err != nil {
		return model.Tokens{}, model.Identity{}, fromStatus(err)
	}
	return model.Tokens{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt}, toIdentity(resp.Identity), nil
}

// SendPasswordReset asks the backend to mail a reset token.
func (a *Auth) SendPasswordReset(ctx context.Context, email string) error {
	_, err := a.api.SendPasswordReset(ctx, &api.EmailRequest{Email: email})
	return fromStatus(err)
}

// ResetPassword consumes a mailed reset token.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) error {
	_, err := a.api.ResetPassword(ctx, &api.ResetPasswordRequest{Token: token, Password: password})
	return fromStatus(err)
}

// UpdateDisplay sets display name and photo of email.
func (a *Auth) UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error {
	_, err := a.api.UpdateDisplay(ctx, &api.UpdateDisplayRequest{Email: email, DisplayName: displayName, PhotoURL: photoURL})
	return fromStatus(err)
}

// DeleteIdentity removes the identity email.
func (a *Auth) DeleteIdentity(ctx context.Context, email string) error {
	_, err := a.api.DeleteIdentity(ctx, &api.EmailRequest{Email: email})
	return fromStatus(err)
}
