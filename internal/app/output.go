package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/vidtube/client/internal/models"
)

const dateLayout = "2006-01-02 15:04"

func writeVideos(w io.Writer, videos []models.VideoRecord) {
	if len(videos) == 0 {
		fmt.Fprintln(w, "No videos yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tBY\tLIKES\tPUBLISHED\tCREATED")
	for _, v := range videos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", v.ID, shorten(v.Title, 40), v.Username, v.Likes, yesNo(v.IsPublished), formatTime(v.CreatedAt))
	}
	tw.Flush()
}

func printVideo(w io.Writer, v models.VideoRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", v.Title)
	fmt.Fprintf(tw, "By:\t%s\n", v.Username)
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(v.CreatedAt))
	if v.Duration != "" {
		fmt.Fprintf(tw, "Duration:\t%s\n", v.Duration)
	}
	fmt.Fprintf(tw, "Views:\t%d\n", v.Views)
	fmt.Fprintf(tw, "Likes:\t%d\n", v.Likes)
	fmt.Fprintf(tw, "Published:\t%s\n", yesNo(v.IsPublished))
	fmt.Fprintf(tw, "Video:\t%s\n", v.VideoFile)
	fmt.Fprintf(tw, "Thumbnail:\t%s\n", v.Thumbnail)
	tw.Flush()
	if d := strings.TrimSpace(v.Description); d != "" {
		fmt.Fprintf(w, "\n%s\n", d)
	}
}

func writeUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tEMAIL\tPHONE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Email, u.Phone)
	}
	tw.Flush()
}

func printUser(w io.Writer, u models.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Name:\t%s\n", u.FullName)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", u.Phone)
	if u.Avatar != "" {
		fmt.Fprintf(tw, "Avatar:\t%s\n", u.Avatar)
	}
	if u.CoverImage != "" {
		fmt.Fprintf(tw, "Cover:\t%s\n", u.CoverImage)
	}
	fmt.Fprintf(tw, "Joined:\t%s\n", formatTime(u.CreatedAt))
	tw.Flush()
}

func writeComments(w io.Writer, comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBY\tLIKES\tCOMMENT")
	for _, c := range comments {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Username, c.Likes, shorten(c.Content, 60))
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shorten(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}

// progressBar redraws a single status line as upload progress arrives.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	last  int
	drawn bool
}

func newProgressBar(w io.Writer, label string) *progressBar {
	return &progressBar{w: w, label: label, last: -1}
}

func (p *progressBar) report(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent == p.last {
		return
	}
	p.last = percent
	p.drawn = true
	fmt.Fprintf(p.w, "\r%s %3d%%", p.label, percent)
}

// done ends the progress line.
func (p *progressBar) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
