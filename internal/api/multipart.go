package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"

	"github.com/vidtube/client/internal/models"
)

// Form is a multipart/form-data body. Fields are written before files, each
// group in insertion order.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	blob  *models.Blob
}

// NewForm returns an empty form.
func NewForm() *Form { return &Form{} }

// Add appends a text field.
func (f *Form) Add(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile appends a file part. A nil blob is ignored.
func (f *Form) AddFile(field string, blob *models.Blob) *Form {
	if blob == nil || blob.Content == nil {
		return f
	}
	f.files = append(f.files, formFile{field: field, blob: blob})
	return f
}

func (f *Form) totalFileBytes() int64 {
	var total int64
	for _, file := range f.files {
		if file.blob.Size > 0 {
			total += file.blob.Size
		}
	}
	return total
}

// stream encodes the form through an io.Pipe so large files are never held
// in memory. Progress is reported against file bytes.
func (f *Form) stream(progress func(int)) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	tracker := newProgressTracker(f.totalFileBytes(), progress)

	go func() {
		for _, field := range f.fields {
			if err := writer.WriteField(field.name, field.value); err != nil {
				pw.CloseWithError(err)
				return
			}
		}

		buffer := make([]byte, 256*1024)
		for _, file := range f.files {
			part, err := writer.CreatePart(fileHeader(file))
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.CopyBuffer(io.MultiWriter(part, tracker), file.blob.Content, buffer); err != nil {
				pw.CloseWithError(fmt.Errorf("stream %s: %w", file.field, err))
				return
			}
		}

		if err := writer.Close(); err != nil {
			pw.CloseWithError(err)
			return
		}
		tracker.finish()
		pw.Close()
	}()

	return pr, writer.FormDataContentType()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(file formFile) textproto.MIMEHeader {
	contentType := file.blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.blob.Name)))
	h.Set("Content-Type", contentType)
	return h
}

// progressTracker converts written byte counts into non-decreasing percentages.
type progressTracker struct {
	mu      sync.Mutex
	total   int64
	written int64
	last    int
	report  func(int)
}

func newProgressTracker(total int64, report func(int)) *progressTracker {
	return &progressTracker{total: total, last: -1, report: report}
}

func (p *progressTracker) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.written += int64(len(b))
	var pct int
	if p.total > 0 {
		pct = int(p.written * 100 / p.total)
	}
	p.emitLocked(pct)
	p.mu.Unlock()
	return len(b), nil
}

func (p *progressTracker) finish() {
	p.mu.Lock()
	p.emitLocked(100)
	p.mu.Unlock()
}

func (p *progressTracker) emitLocked(pct int) {
	if pct > 100 {
		pct = 100
	}
	if p.report == nil || pct <= p.last {
		return
	}
	p.last = pct
	p.report(pct)
}
