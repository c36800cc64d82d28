// Package media prepares uploaded files for storage. An Upload value is
// threaded through independent steps; each returns a new value or an error.
package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

type Upload struct {
	Filename string
	Folder   string
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Blob     blobstore.Blob
	Result   models.MediaRef
}

type Step func(ctx context.Context, u Upload) (Upload, error)

// Run applies steps in order and stops at the first error.
func Run(ctx context.Context, u Upload, steps ...Step) (Upload, error) {
	var err error
	for _, step := range steps {
		if err = ctx.Err(); err != nil {
			return u, err
		}
		if u, err = step(ctx, u); err != nil {
			return u, err
		}
	}
	return u, nil
}

var allowed = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"video/mp4", "video/quicktime", "video/webm",
}

// Pipeline holds the limits and the blob store used by the steps.
type Pipeline struct {
	MaxBytes int64
	MaxEdge  int
	Blobs    blobstore.Store
}

// Process validates, downsizes and stores u, returning the reference to attach.
func (p *Pipeline) Process(ctx context.Context, u Upload) (models.MediaRef, error) {
	out, err := Run(ctx, u, p.Validate, p.Transform, p.Store, AttachResult)
	if err != nil {
		return models.MediaRef{}, err
	}
	return out.Result, nil
}

// Validate sniffs the content type and enforces the size limit and the allow-list.
func (p *Pipeline) Validate(_ context.Context, u Upload) (Upload, error) {
	if len(u.Data) == 0 {
		return u, models.NewValidationError("empty upload")
	}
	if p.MaxBytes > 0 && int64(len(u.Data)) > p.MaxBytes {
		return u, models.NewValidationError(fmt.Sprintf("upload exceeds %d bytes", p.MaxBytes))
	}
	mt := mimetype.Detect(u.Data)
	for _, a := range allowed {
		if mt.Is(a) {
			u.MimeType = a
			return u, nil
		}
	}
	return u, models.NewValidationError(fmt.Sprintf("unsupported media type %s", mt.String()))
}

// Transform fits JPEG and PNG images inside MaxEdge. Other types pass through.
func (p *Pipeline) Transform(_ context.Context, u Upload) (Upload, error) {
	var format imaging.Format
	switch u.MimeType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return u, nil
	}

	img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
	if err != nil {
		return u, models.NewValidationError("image could not be decoded")
	}
	b := img.Bounds()
	u.Width, u.Height = b.Dx(), b.Dy()
	if p.MaxEdge <= 0 || (u.Width <= p.MaxEdge && u.Height <= p.MaxEdge) {
		return u, nil
	}

	resized := imaging.Fit(img, p.MaxEdge, p.MaxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return u, fmt.Errorf("encode resized image: %w", err)
	}
	u.Data = buf.Bytes()
	u.Width, u.Height = resized.Bounds().Dx(), resized.Bounds().Dy()
	return u, nil
}

// Store writes the bytes to the blob store.
func (p *Pipeline) Store(ctx context.Context, u Upload) (Upload, error) {
	blob, err := p.Blobs.Upload(ctx, u.Data, u.Filename, u.MimeType, u.Folder)
	if err != nil {
		return u, fmt.Errorf("store media: %w", err)
	}
	metrics.UploadBytes.Observe(float64(len(u.Data)))
	u.Blob = blob
	return u, nil
}

func AttachResult(_ context.Context, u Upload) (Upload, error) {
	u.Result = models.MediaRef{
		BlobID:   u.Blob.ID,
		URL:      u.Blob.URL,
		MimeType: u.MimeType,
		Width:    u.Width,
		Height:   u.Height,
		Size:     int64(len(u.Data)),
	}
	return u, nil
}
