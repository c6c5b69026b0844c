package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/catalog"
	"github.com/vidtube/client/internal/models"
)

func runUsers(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("users", e), args, 0, 0); err != nil {
		return err
	}
	users, err := e.deps.Users.LoadAll(ctx)
	if err != nil {
		return err
	}
	writeUsers(e.out, users)
	return nil
}

// runUserUpdate prefills the form from the listed account, like the
// dashboard's edit modal, then applies the flags that were given.
func runUserUpdate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("user-update", e)
	fullName := fs.String("fullname", "", "full name")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	id := rest[0]

	if _, err := e.deps.Users.LoadAll(ctx); err != nil {
		return err
	}
	current, ok := e.deps.Users.Store().Find(id)
	if !ok {
		return apperrors.NotFoundLocal("updateUser", id)
	}

	upd := models.UserUpdate{
		FullName: current.FullName,
		Username: current.Username,
		Email:    current.Email,
		Phone:    current.Phone,
	}
	if *fullName != "" {
		upd.FullName = *fullName
	}
	if *username != "" {
		upd.Username = *username
	}
	if *email != "" {
		upd.Email = *email
	}
	if *phone != "" {
		upd.Phone = *phone
	}

	user, err := e.deps.Users.Update(ctx, id, upd)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Updated %s.\n", user.Username)
	return nil
}

func runUserDelete(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("user-delete", e), args, 1, 1)
	if err != nil {
		return err
	}
	if err := e.deps.Users.Delete(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Deleted user %s.\n", rest[0])
	return nil
}

var errExportBucket = errors.New("no export bucket configured; set VIDTUBE_EXPORT_BUCKET")

func runExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export", e)
	slotName := fs.String("slot", "all", "what to export: all, mine or users")
	name := fs.String("name", "", "object key; defaults to a timestamped name under exports/")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	if strings.TrimSpace(e.cfg.Export.Bucket) == "" {
		return errExportBucket
	}
	sink, err := openExportSink(ctx, e.cfg.Export)
	if err != nil {
		return err
	}

	var location string
	switch strings.ToLower(strings.TrimSpace(*slotName)) {
	case "users":
		if _, err := e.deps.Users.LoadAll(ctx); err != nil {
			return err
		}
		key := *name
		if key == "" {
			key = fmt.Sprintf("exports/users-%s.json", time.Now().UTC().Format("20060102T150405Z"))
		}
		location, err = catalog.Export(ctx, e.deps.Users.Store(), catalog.SlotAll, sink, key)
	default:
		slot, perr := catalog.ParseSlot(*slotName)
		if perr != nil {
			return perr
		}
		load := e.deps.Videos.LoadAll
		if slot == catalog.SlotMine {
			load = e.deps.Videos.LoadMine
		}
		if _, err := load(ctx); err != nil {
			return err
		}
		location, err = catalog.Export(ctx, e.deps.Videos.Store(), slot, sink, *name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Exported to %s.\n", location)
	return nil
}
