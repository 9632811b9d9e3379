package save

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/samber/do"

	"imagen/internal/log"
	"imagen/internal/store"
)

// Item is one base64 payload to persist, tagged with its position in the
// response data array.
type Item struct {
	Index   int
	Payload string
}

type Persister struct {
	uploader store.Uploader
	out      io.Writer
	now      func() time.Time
}

func New(uploader store.Uploader, out io.Writer) *Persister {
	return &Persister{uploader: uploader, out: out, now: time.Now}
}

func NewPersister(i *do.Injector) (*Persister, error) {
	return New(
		do.MustInvoke[store.Uploader](i),
		do.MustInvokeNamed[io.Writer](i, "out"),
	), nil
}

// SaveAll decodes and persists every payload. The timestamp in the filename
// is taken once per call, so all images from one response share it. A bad
// payload or a failed write is reported and skipped; the rest still save.
// Returns the names that were saved.
func (p *Persister) SaveAll(ctx context.Context, items []Item, prefix, format string, metadata map[string]string) []string {
	stamp := p.now().Format("20060102_150405")

	var saved []string
	for _, item := range items {
		name, err := p.save(ctx, item, prefix, stamp, format, metadata)
		if err != nil {
			fmt.Fprintf(p.out, "Error saving image: %v\n", err)
			continue
		}
		fmt.Fprintf(p.out, "Saved image: %s\n", name)
		saved = append(saved, name)
	}
	return saved
}

func (p *Persister) save(ctx context.Context, item Item, prefix, stamp, format string, metadata map[string]string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(item.Payload)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%d.%s", prefix, stamp, item.Index+1, format)
	log := log.FromContextOrDiscard(ctx).WithGroup("save")
	log.Debug("persisting image", "name", name, "bytes", len(data))

	if err := p.uploader.Upload(ctx, store.UploadParams{
		Name:        name,
		Data:        data,
		ContentType: "image/" + format,
		Metadata:    metadata,
	}); err != nil {
		return "", err
	}
	return name, nil
}
