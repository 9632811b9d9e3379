package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequestMarshalCompression(t *testing.T) {
	compression := 80

	tests := []struct {
		name   string
		format string
		want   bool
	}{
		{"png drops compression", "png", false},
		{"jpeg keeps compression", "jpeg", true},
		{"webp keeps compression", "webp", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := GenerationRequest{
				Prompt:            "a red circle",
				Model:             "gpt-image-1",
				N:                 1,
				Quality:           "low",
				Size:              "1024x1024",
				Background:        "opaque",
				OutputFormat:      tt.format,
				OutputCompression: &compression,
			}

			data, err := json.Marshal(req)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(data, &fields))
			_, ok := fields["output_compression"]
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestGenerationRequestMarshalOptionalFields(t *testing.T) {
	data, err := json.Marshal(GenerationRequest{
		Prompt:       "a red circle",
		Model:        "gpt-image-1",
		N:            2,
		Quality:      "low",
		Size:         "1024x1024",
		Background:   "opaque",
		OutputFormat: "png",
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "user")
	assert.NotContains(t, fields, "moderation")
	assert.Equal(t, float64(2), fields["n"])
}

func writeTempImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestEditRequestFormLayout(t *testing.T) {
	first := writeTempImage(t, "first.png", []byte("first-bytes"))
	second := writeTempImage(t, "second.png", []byte("second-bytes"))
	mask := writeTempImage(t, "mask.png", []byte("mask-bytes"))

	req := EditRequest{
		Prompt:  "add a hat",
		Model:   "gpt-image-1",
		N:       1,
		Quality: "low",
		Size:    "1024x1024",
		User:    "tester",
		Images:  []string{first, second},
		Mask:    mask,
	}

	buf, contentType, err := req.form()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(buf, params["boundary"])

	type part struct {
		field, filename string
		data            []byte
	}
	var parts []part
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, part{p.FormName(), p.FileName(), data})
	}

	require.Len(t, parts, 9)
	assert.Equal(t, part{"prompt", "", []byte("add a hat")}, parts[0])
	assert.Equal(t, part{"model", "", []byte("gpt-image-1")}, parts[1])
	assert.Equal(t, part{"n", "", []byte("1")}, parts[2])
	assert.Equal(t, part{"quality", "", []byte("low")}, parts[3])
	assert.Equal(t, part{"size", "", []byte("1024x1024")}, parts[4])
	assert.Equal(t, part{"user", "", []byte("tester")}, parts[5])

	// ordered multi-value image[] field, then the single mask field
	assert.Equal(t, part{"image[]", "first.png", []byte("first-bytes")}, parts[6])
	assert.Equal(t, part{"image[]", "second.png", []byte("second-bytes")}, parts[7])
	assert.Equal(t, part{"mask", "mask.png", []byte("mask-bytes")}, parts[8])
}

func TestEditRequestFormMissingImage(t *testing.T) {
	req := EditRequest{
		Prompt:  "add a hat",
		Model:   "gpt-image-1",
		N:       1,
		Quality: "low",
		Size:    "1024x1024",
		Images:  []string{"missing.png"},
	}

	_, _, err := req.form()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "missing.png", verr.Path)
}

func TestEditRequestFormMissingMask(t *testing.T) {
	first := writeTempImage(t, "first.png", []byte("first-bytes"))

	req := EditRequest{
		Prompt:  "add a hat",
		Model:   "gpt-image-1",
		N:       1,
		Quality: "low",
		Size:    "1024x1024",
		Images:  []string{first},
		Mask:    "missing-mask.png",
	}

	_, _, err := req.form()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "missing-mask.png", verr.Path)
	assert.True(t, errors.Is(verr.Err, os.ErrNotExist))
}
