package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vidtube/client/internal/models"
)

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login", e)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password; falls back to VIDTUBE_PASSWORD")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	pass := *password
	if pass == "" {
		pass = os.Getenv("VIDTUBE_PASSWORD")
	}
	if err := e.deps.Session.Login(ctx, *username, pass); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Signed in as %s.\n", strings.TrimSpace(*username))
	return nil
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register", e)
	fullName := fs.String("fullname", "", "full name")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "10 digit phone number")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation; defaults to -password")
	avatarPath := fs.String("avatar", "", "profile picture")
	coverPath := fs.String("cover", "", "cover image")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	avatar, avatarCloser, err := openBlob(*avatarPath)
	if err != nil {
		return err
	}
	cover, coverCloser, err := openBlob(*coverPath)
	if err != nil {
		closeAll(e.logger, avatarCloser)
		return err
	}
	defer closeAll(e.logger, avatarCloser, coverCloser)

	if *confirm == "" {
		*confirm = *password
	}

	result, err := e.deps.Session.Register(ctx, models.Registration{
		FullName:        *fullName,
		Username:        *username,
		Email:           *email,
		Phone:           *phone,
		Password:        *password,
		ConfirmPassword: *confirm,
		Avatar:          avatar,
		Cover:           cover,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, result.Message)
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("logout", e), args, 0, 0); err != nil {
		return err
	}
	if err := e.deps.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Signed out.")
	return nil
}

func runRefresh(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("refresh", e), args, 0, 0); err != nil {
		return err
	}
	if err := e.deps.Session.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Session refreshed.")
	return nil
}

func runStatus(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("status", e), args, 0, 0); err != nil {
		return err
	}
	active, err := e.deps.Session.Active(ctx)
	if err != nil {
		return err
	}
	state := "signed out"
	if active {
		state = "signed in"
	}
	fmt.Fprintf(e.out, "API:     %s\nSession: %s (%s backend, profile %s)\n",
		e.deps.Client.BaseURL(), state, e.cfg.Session.Backend, e.cfg.Session.Profile)
	return nil
}

func runProfile(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("profile", e), args, 0, 0); err != nil {
		return err
	}
	user, err := e.deps.Session.Profile(ctx)
	if err != nil {
		return err
	}
	printUser(e.out, user)
	return nil
}
