// Package app implements the vidtube command-line client.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/vidtube/client/internal/config"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
)

// command is one vidtube subcommand. Standalone commands run without a
// session store or API client.
type command struct {
	name       string
	usage      string
	summary    string
	standalone bool
	run        func(ctx context.Context, e *env, args []string) error
}

// env is what a command runs against.
type env struct {
	cfg    config.Config
	deps   dependencies
	out    io.Writer
	logger *slog.Logger
}

func commandTable() []command {
	return []command{
		{name: "login", usage: "-username NAME -password PASS", summary: "sign in and store the session", run: runLogin},
		{name: "register", usage: "-fullname NAME -username NAME -email ADDR -phone DIGITS -password PASS -avatar FILE [-cover FILE]", summary: "create an account", run: runRegister},
		{name: "logout", summary: "end the session", run: runLogout},
		{name: "refresh", summary: "rotate the stored token pair", run: runRefresh},
		{name: "status", summary: "report whether a session is stored", run: runStatus},
		{name: "profile", summary: "show the signed-in account", run: runProfile},
		{name: "videos", summary: "list every video", run: runVideos},
		{name: "my-videos", summary: "list your uploads", run: runMyVideos},
		{name: "show", usage: "ID", summary: "show one video", run: runShow},
		{name: "play", usage: "[ID]", summary: "pick the current video and list what plays next", run: runPlay},
		{name: "upload", usage: "-title T -description D -video FILE -thumbnail FILE", summary: "upload a video", run: runUpload},
		{name: "upload-batch", usage: "MANIFEST.yaml", summary: "upload every video listed in a manifest", run: runUploadBatch},
		{name: "import", usage: "[-dry-run] [-dir DIR] [-title T] [-description D] URL", summary: "download a video with yt-dlp and upload it", run: runImport},
		{name: "edit", usage: "[-title T] [-description D] [-thumbnail FILE] ID", summary: "edit one of your videos", run: runEdit},
		{name: "delete", usage: "ID", summary: "delete one of your videos", run: runDelete},
		{name: "like", usage: "ID", summary: "like a video", run: runLike},
		{name: "publish", usage: "ID", summary: "toggle whether a video is published", run: runPublish},
		{name: "comments", usage: "VIDEO_ID", summary: "list the comments on a video", run: runComments},
		{name: "comment", usage: "VIDEO_ID TEXT...", summary: "comment on a video", run: runComment},
		{name: "comment-like", usage: "COMMENT_ID", summary: "like a comment", run: runCommentLike},
		{name: "users", summary: "list accounts", run: runUsers},
		{name: "user-update", usage: "[-fullname N] [-username N] [-email E] [-phone P] ID", summary: "edit an account", run: runUserUpdate},
		{name: "user-delete", usage: "ID", summary: "delete an account", run: runUserDelete},
		{name: "export", usage: "[-slot all|mine|users] [-name KEY]", summary: "write a catalog snapshot to object storage", run: runExport},
		{name: "mock-server", usage: "[-host H] [-port N] [-seed]", summary: "serve a local in-memory VideoTube API", standalone: true, run: runMockServer},
	}
}

var errNoCommand = errors.New("expected a command; run 'vidtube help' for the list")

// Run executes one vidtube command using configuration from the environment.
func Run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return run(ctx, cfg, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, cfg config.Config, args []string, out, logOut io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return errNoCommand
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(out)
		return nil
	}

	cmd, ok := lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	ctx = logging.WithLogger(ctx, logger)
	e := &env{cfg: cfg, out: out, logger: logger}

	if !cmd.standalone {
		deps, cleanup, err := buildDependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := cleanup(); err != nil {
				logger.Warn("release session store", "error", err)
			}
		}()
		e.deps = deps
	}

	return dispatch(ctx, e, cmd, args[1:])
}

func dispatch(ctx context.Context, e *env, cmd command, args []string) error {
	err := cmd.run(ctx, e, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func lookup(name string) (command, bool) {
	for _, cmd := range commandTable() {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: vidtube <command> [flags] [args]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commandTable() {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	tw.Flush()
}

func newFlags(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.out)
	fs.Usage = func() {
		cmd, _ := lookup(name)
		fmt.Fprintf(e.out, "usage: vidtube %s %s\n", name, cmd.usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses flags and checks the positional argument count.
func parseArgs(fs *flag.FlagSet, args []string, min, max int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < min || (max >= 0 && len(rest) > max) {
		cmd, _ := lookup(fs.Name())
		return nil, fmt.Errorf("usage: vidtube %s %s", fs.Name(), cmd.usage)
	}
	return rest, nil
}

// openBlob opens path as an upload part. An empty path yields no blob.
func openBlob(path string) (*models.Blob, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, nil
	}
	return models.OpenFileBlob(path)
}

func closeAll(logger *slog.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("close file", "error", err)
		}
	}
}
