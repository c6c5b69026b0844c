package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/validate"
)

// Users is the dashboard's user list. Only SlotAll is used.
type Users struct {
	client *api.Client
	store  *Store[models.User]
	logger *slog.Logger
}

// NewUsers wires the user catalog.
func NewUsers(client *api.Client, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	return &Users{client: client, store: NewStore[models.User](logger), logger: logger}
}

// Store exposes the underlying list.
func (u *Users) Store() *Store[models.User] { return u.store }

// LoadAll fetches every user and overwrites the list.
func (u *Users) LoadAll(ctx context.Context) ([]models.User, error) {
	ctx, span := logging.StartSpan(withLogger(ctx, u.logger), "catalog.users.load")
	defer span.End()

	ticket := u.store.Begin(SlotAll)

	var users []models.User
	if _, err := u.client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetAllUsers, Auth: true}, &users); err != nil {
		appErr := apperrors.FromAPI("load users", err)
		span.Fail(appErr)
		u.store.Fail(ticket, appErr)
		return nil, appErr
	}

	u.store.Commit(ticket, users)
	return u.store.Snapshot(SlotAll), nil
}

// Update saves the editable profile fields of id.
func (u *Users) Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	if err := validate.UserUpdate(upd); err != nil {
		return models.User{}, err
	}

	ctx, span := logging.StartSpan(withLogger(ctx, u.logger), "catalog.users.update")
	defer span.End()

	body := models.UserUpdate{
		FullName: strings.TrimSpace(upd.FullName),
		Username: strings.TrimSpace(upd.Username),
		Email:    strings.TrimSpace(upd.Email),
		Phone:    strings.TrimSpace(upd.Phone),
	}

	var user models.User
	_, err := u.client.Do(ctx, api.Request{
		Method:   http.MethodPatch,
		Endpoint: api.EndpointUpdateUser,
		Path:     []string{id},
		JSON:     body,
		Auth:     true,
	}, &user)
	if err != nil {
		appErr := apperrors.FromAPI("update user", err)
		span.Fail(appErr)
		return models.User{}, appErr
	}

	if user.ID != "" {
		// A miss is logged by the store; the server already has the change.
		_ = u.store.ApplyUpdate(user)
	}
	return user, nil
}

// Delete marks id deleted on the server and refetches the list. When the
// refetch fails the user is removed locally instead.
func (u *Users) Delete(ctx context.Context, id string) error {
	ctx, span := logging.StartSpan(withLogger(ctx, u.logger), "catalog.users.delete")
	defer span.End()

	_, err := u.client.Do(ctx, api.Request{
		Method:   http.MethodPatch,
		Endpoint: api.EndpointDeleteUser,
		Path:     []string{id},
		Auth:     true,
	}, nil)
	if err != nil {
		appErr := apperrors.FromAPI("delete user", err)
		span.Fail(appErr)
		return appErr
	}

	if _, err := u.LoadAll(ctx); err != nil {
		logging.FromContext(ctx).Warn("refresh users after delete", "error", err)
		u.store.ApplyDelete(id)
	}
	return nil
}
