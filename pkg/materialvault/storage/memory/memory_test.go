package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materialvault/materialvault/pkg/materialvault"
)

func TestUploadDownload(t *testing.T) {
	backend := New()
	ctx := context.Background()

	err := backend.UploadWithParams(ctx, strings.NewReader("image bytes"), materialvault.UploadParams{
		ObjectKey: "materials/1/primary/abc.png",
		MimeType:  "image/png",
	})
	require.NoError(t, err)

	reader, err := backend.Download(ctx, "materials/1/primary/abc.png")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	meta, err := backend.GetObjectMeta(ctx, "materials/1/primary/abc.png")
	require.NoError(t, err)
	assert.Equal(t, int64(len("image bytes")), meta.Size)
	assert.Equal(t, "image/png", meta.ContentType)
}

func TestDownloadMissing(t *testing.T) {
	backend := New()

	_, err := backend.Download(context.Background(), "missing")
	assert.Error(t, err)

	_, err = backend.GetObjectMeta(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "key"))

	_, err := backend.Download(ctx, "key")
	assert.Error(t, err)

	assert.Error(t, backend.Delete(ctx, "key"))
}

func TestGetPublicURL(t *testing.T) {
	backend := New()

	url, err := backend.GetPublicURL(context.Background(), "materials/1/primary/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "memory://materials/1/primary/abc.png", url)
}
