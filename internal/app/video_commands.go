package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vidtube/client/internal/catalog"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/uistate"
)

func runVideos(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("videos", e), args, 0, 0); err != nil {
		return err
	}
	return listVideos(ctx, e, catalog.SlotAll, e.deps.Videos.LoadAll)
}

func runMyVideos(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlags("my-videos", e), args, 0, 0); err != nil {
		return err
	}
	return listVideos(ctx, e, catalog.SlotMine, e.deps.Videos.LoadMine)
}

func listVideos(ctx context.Context, e *env, slot catalog.Slot, load func(context.Context) ([]models.VideoRecord, error)) error {
	if _, err := load(ctx); err != nil {
		return err
	}
	fmt.Fprint(e.out, renderVideos(e.deps.Videos.Store().View(slot)))
	return nil
}

func renderVideos(view uistate.Load[[]models.VideoRecord]) string {
	return uistate.Render(view,
		func() string { return "Loading...\n" },
		func(message string) string { return message + "\n" },
		func(videos []models.VideoRecord) string {
			var b strings.Builder
			writeVideos(&b, videos)
			return b.String()
		},
	)
}

func runShow(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("show", e), args, 1, 1)
	if err != nil {
		return err
	}
	video, err := e.deps.Videos.Get(ctx, rest[0])
	if err != nil {
		return err
	}
	printVideo(e.out, video)
	return nil
}

// runPlay loads the full list and picks the current video: the requested id
// when listed, otherwise the first one.
func runPlay(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("play", e), args, 0, 1)
	if err != nil {
		return err
	}
	deepLink := ""
	if len(rest) == 1 {
		deepLink = rest[0]
	}

	videos, err := e.deps.Videos.LoadAll(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}

	sel := uistate.NewSelection()
	current := sel.InitCurrent(ids, deepLink)
	if current == "" {
		fmt.Fprintln(e.out, "No videos to play.")
		return nil
	}
	if deepLink != "" && current != deepLink {
		fmt.Fprintf(e.out, "Video %s is not listed; playing the first video instead.\n", deepLink)
	}

	var next []models.VideoRecord
	for _, v := range videos {
		if v.ID == current {
			fmt.Fprintf(e.out, "Now playing: %s\n", v.Title)
			fmt.Fprintf(e.out, "  by %s, %d likes\n  %s\n", v.Username, v.Likes, v.VideoFile)
			continue
		}
		next = append(next, v)
	}
	if len(next) > 0 {
		fmt.Fprintln(e.out, "\nUp next:")
		writeVideos(e.out, next)
	}
	return nil
}

func runUpload(ctx context.Context, e *env, args []string) error {
	fs := newFlags("upload", e)
	title := fs.String("title", "", "video title (5-100 characters)")
	description := fs.String("description", "", "video description (10-1000 characters)")
	videoPath := fs.String("video", "", "video file (mp4, avi, mov or wmv, up to 100MB)")
	thumbPath := fs.String("thumbnail", "", "thumbnail image (jpeg, png or gif, up to 5MB)")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	video, videoCloser, err := openBlob(*videoPath)
	if err != nil {
		return err
	}
	thumb, thumbCloser, err := openBlob(*thumbPath)
	if err != nil {
		closeAll(e.logger, videoCloser)
		return err
	}
	defer closeAll(e.logger, videoCloser, thumbCloser)

	return upload(ctx, e, models.PendingUpload{
		Title:       *title,
		Description: *description,
		Video:       video,
		Thumbnail:   thumb,
	})
}

func upload(ctx context.Context, e *env, u models.PendingUpload) error {
	bar := newProgressBar(e.out, "Uploading")
	rec, err := e.deps.Videos.Upload(ctx, u, bar.report)
	bar.done()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Uploaded %q as %s.\n", rec.Title, rec.ID)
	return nil
}

func runEdit(ctx context.Context, e *env, args []string) error {
	fs := newFlags("edit", e)
	title := fs.String("title", "", "new title; keeps the current one when empty")
	description := fs.String("description", "", "new description; keeps the current one when empty")
	thumbPath := fs.String("thumbnail", "", "replacement thumbnail")
	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	id := rest[0]

	current, err := e.deps.Videos.Get(ctx, id)
	if err != nil {
		return err
	}

	edit := models.VideoEdit{Title: current.Title, Description: current.Description}
	if *title != "" {
		edit.Title = *title
	}
	if *description != "" {
		edit.Description = *description
	}

	thumb, closer, err := openBlob(*thumbPath)
	if err != nil {
		return err
	}
	defer closeAll(e.logger, closer)
	edit.Thumbnail = thumb

	rec, err := e.deps.Videos.Edit(ctx, id, edit)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Updated %q.\n", rec.Title)
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("delete", e), args, 1, 1)
	if err != nil {
		return err
	}
	if err := e.deps.Videos.Delete(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Deleted video %s.\n", rest[0])
	return nil
}

func runLike(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("like", e), args, 1, 1)
	if err != nil {
		return err
	}
	rec, err := e.deps.Videos.Like(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Liked %q (%d likes).\n", rec.Title, rec.Likes)
	return nil
}

func runPublish(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("publish", e), args, 1, 1)
	if err != nil {
		return err
	}
	rec, err := e.deps.Videos.TogglePublish(ctx, rest[0])
	if err != nil {
		return err
	}
	state := "unpublished"
	if rec.IsPublished {
		state = "published"
	}
	fmt.Fprintf(e.out, "%q is now %s.\n", rec.Title, state)
	return nil
}

func runComments(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("comments", e), args, 1, 1)
	if err != nil {
		return err
	}
	comments, err := e.deps.Comments.List(ctx, rest[0])
	if err != nil {
		return err
	}
	writeComments(e.out, comments)
	return nil
}

func runComment(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("comment", e), args, 2, -1)
	if err != nil {
		return err
	}
	comment, err := e.deps.Comments.Add(ctx, rest[0], strings.Join(rest[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Comment %s added.\n", comment.ID)
	return nil
}

func runCommentLike(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("comment-like", e), args, 1, 1)
	if err != nil {
		return err
	}
	comment, err := e.deps.Comments.Like(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Liked comment %s (%d likes).\n", comment.ID, comment.Likes)
	return nil
}
