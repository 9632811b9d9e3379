package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileUploaderWrite(t *testing.T) {
	dir := t.TempDir()
	uploader := &FileUploader{Dir: dir}

	err := uploader.Upload(context.Background(), UploadParams{
		Name:        "gen_20260831_143005_1.png",
		Data:        []byte("image-bytes"),
		ContentType: "image/png",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "gen_20260831_143005_1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestFileUploaderOverwritesSilently(t *testing.T) {
	dir := t.TempDir()
	uploader := &FileUploader{Dir: dir}

	for _, data := range [][]byte{[]byte("first"), []byte("second")} {
		require.NoError(t, uploader.Upload(context.Background(), UploadParams{
			Name: "same.png",
			Data: data,
		}))
	}

	data, err := os.ReadFile(filepath.Join(dir, "same.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestFileUploaderDefaultsToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	uploader := &FileUploader{}
	require.NoError(t, uploader.Upload(context.Background(), UploadParams{
		Name: "cwd.png",
		Data: []byte("cwd-bytes"),
	}))

	data, err := os.ReadFile(filepath.Join(dir, "cwd.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("cwd-bytes"), data)
}
