package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"
)

// compressibleFormats are the output formats the API accepts an
// output_compression level for.
var compressibleFormats = []string{"jpeg", "webp"}

type GenerationRequest struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	N                 int    `json:"n"`
	Quality           string `json:"quality"`
	Size              string `json:"size"`
	Background        string `json:"background"`
	OutputFormat      string `json:"output_format"`
	OutputCompression *int   `json:"output_compression,omitempty"`
	Moderation        string `json:"moderation,omitempty"`
	User              string `json:"user,omitempty"`
}

// MarshalJSON drops output_compression unless the output format can carry
// it. The generations endpoint rejects the field for png.
func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	type plain GenerationRequest
	p := plain(r)
	if !lo.Contains(compressibleFormats, p.OutputFormat) {
		p.OutputCompression = nil
	}
	return json.Marshal(p)
}

// EditRequest is sent as a multipart form. Images are ordered and share the
// image[] field; the mask, if any, is a single mask field.
type EditRequest struct {
	Prompt  string
	Model   string
	N       int
	Quality string
	Size    string
	User    string
	Images  []string
	Mask    string
}

// ValidationError marks an edit request that referenced a local file the
// client could not open. No network call is made for such a request.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("image file not found: %s", e.Path)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// form buffers the full multipart body. Each source file is opened, copied
// and closed in turn, so no handle outlives the build, even when a later
// path turns out to be missing.
func (r EditRequest) form() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"prompt", r.Prompt},
		{"model", r.Model},
		{"n", strconv.Itoa(r.N)},
		{"quality", r.Quality},
		{"size", r.Size},
	}
	if r.User != "" {
		fields = append(fields, [2]string{"user", r.User})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	for _, path := range r.Images {
		if err := addFilePart(w, "image[]", path); err != nil {
			return nil, "", err
		}
	}
	if r.Mask != "" {
		if err := addFilePart(w, "mask", r.Mask); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func addFilePart(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ValidationError{Path: path, Err: err}
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
