// Package session signs users in and out and owns the stored token pair.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/tokens"
	"github.com/vidtube/client/internal/validate"
)

// Controller orchestrates the auth endpoints against a token store. Route
// guarding is not enforced here: callers that need a session simply send
// the request and let the server answer 401.
type Controller struct {
	client *api.Client
	store  tokens.Store
	logger *slog.Logger
}

// New wires a Controller. The same store should back client's TokenSource.
func New(client *api.Client, store tokens.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{client: client, store: store, logger: logger}
}

// RegisterResult reports the outcome of a successful registration.
type RegisterResult struct {
	User models.User
	// SignedIn is true when the server issued tokens with the account.
	SignedIn bool
	Message  string
}

type authPayload struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

func (p authPayload) tokens() models.SessionTokens {
	return models.SessionTokens{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

// Login exchanges credentials for a token pair. The store is only written
// on success.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if err := validate.Login(username, password); err != nil {
		return err
	}

	ctx, span := logging.StartSpan(c.withLogger(ctx), "session.login")
	defer span.End()

	var payload authPayload
	_, err := c.client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointLogin,
		JSON:     map[string]string{"username": strings.TrimSpace(username), "password": password},
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("login", err)
		span.Fail(appErr)
		return appErr
	}

	pair := payload.tokens()
	if !pair.Complete() {
		appErr := &apperrors.Error{Kind: apperrors.KindServer, Op: "login", Message: "The server did not return a session."}
		span.Fail(appErr)
		return appErr
	}
	if err := c.store.Set(ctx, pair); err != nil {
		span.Fail(err)
		return fmt.Errorf("store session: %w", err)
	}

	logging.FromContext(ctx).Info("signed in", "username", strings.TrimSpace(username))
	return nil
}

// Register creates an account. When the response carries tokens the user is
// signed in as if by Login; otherwise the session stays inactive.
func (c *Controller) Register(ctx context.Context, reg models.Registration) (RegisterResult, error) {
	if err := validate.Registration(reg); err != nil {
		return RegisterResult{}, err
	}

	ctx, span := logging.StartSpan(c.withLogger(ctx), "session.register")
	defer span.End()

	form := api.NewForm().
		Add("fullname", strings.TrimSpace(reg.FullName)).
		Add("username", strings.TrimSpace(reg.Username)).
		Add("email", strings.TrimSpace(reg.Email)).
		Add("phone", strings.TrimSpace(reg.Phone)).
		Add("password", reg.Password).
		AddFile("avatar", reg.Avatar).
		AddFile("coverImage", reg.Cover)

	var payload authPayload
	env, err := c.client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointRegister,
		Form:     form,
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("register", err)
		span.Fail(appErr)
		return RegisterResult{}, appErr
	}

	result := RegisterResult{Message: env.Message}
	if payload.User != nil {
		result.User = *payload.User
	}

	pair := payload.tokens()
	switch {
	case pair.Complete():
		if err := c.store.Set(ctx, pair); err != nil {
			span.Fail(err)
			return result, fmt.Errorf("store session: %w", err)
		}
		result.SignedIn = true
	case !pair.Empty():
		logging.FromContext(ctx).Warn("registration returned a partial token pair, ignoring it")
	}
	if result.Message == "" {
		if result.SignedIn {
			result.Message = "Registered and signed in."
		} else {
			result.Message = "Registered, please log in."
		}
	}
	return result, nil
}

// Logout tells the server to end the session and then clears the store
// whatever the server said. Only a failure to clear the store is returned.
func (c *Controller) Logout(ctx context.Context) error {
	ctx, span := logging.StartSpan(c.withLogger(ctx), "session.logout")
	defer span.End()

	_, err := c.client.Do(ctx, api.Request{Method: http.MethodPost, Endpoint: api.EndpointLogout, Auth: true}, nil)
	if err != nil {
		logging.FromContext(ctx).Warn("logout request failed, clearing local session anyway",
			"error", apperrors.FromAPI("logout", err))
	}

	if err := c.store.Clear(ctx); err != nil {
		span.Fail(err)
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ErrNoRefreshToken is returned by Refresh when nothing is stored.
var ErrNoRefreshToken = &apperrors.Error{Kind: apperrors.KindAuth, Op: "refresh", Message: "You are not signed in."}

// Refresh trades the stored refresh token for a new pair. An auth failure
// ends the session since the refresh token can no longer be used.
func (c *Controller) Refresh(ctx context.Context) error {
	current, err := c.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if strings.TrimSpace(current.RefreshToken) == "" {
		return ErrNoRefreshToken
	}

	ctx, span := logging.StartSpan(c.withLogger(ctx), "session.refresh")
	defer span.End()

	var payload authPayload
	_, err = c.client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointRefreshToken,
		JSON:     map[string]string{"refreshToken": current.RefreshToken},
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("refresh", err)
		span.Fail(appErr)
		if errors.Is(appErr, apperrors.ErrAuth) {
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				return errors.Join(appErr, fmt.Errorf("clear session: %w", clearErr))
			}
		}
		return appErr
	}

	pair := payload.tokens()
	if !pair.Complete() {
		appErr := &apperrors.Error{Kind: apperrors.KindServer, Op: "refresh", Message: "The server did not return a session."}
		span.Fail(appErr)
		return appErr
	}
	if err := c.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// CurrentToken returns the stored access token, empty when signed out.
func (c *Controller) CurrentToken(ctx context.Context) (string, error) {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return pair.AccessToken, nil
}

// Active reports whether an access token is held.
func (c *Controller) Active(ctx context.Context) (bool, error) {
	token, err := c.CurrentToken(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(token) != "", nil
}

// Profile fetches the signed-in user.
func (c *Controller) Profile(ctx context.Context) (models.User, error) {
	ctx, span := logging.StartSpan(c.withLogger(ctx), "session.profile")
	defer span.End()

	var payload struct {
		User models.User `json:"user"`
	}
	if _, err := c.client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetProfile, Auth: true}, &payload); err != nil {
		appErr := apperrors.FromAPI("profile", err)
		span.Fail(appErr)
		return models.User{}, appErr
	}
	return payload.User, nil
}

func (c *Controller) withLogger(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.FromContext(ctx) == slog.Default() {
		return logging.WithLogger(ctx, c.logger)
	}
	return ctx
}
