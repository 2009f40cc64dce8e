package file_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/file"
	dummydb "github.com/langhour/tracker/storage/database/dummy"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	conf := &core.Config{MaxUploadSize: 16}
	svc := file.NewService(dummydb.NewFileRepository(dummydb.Open()), conf)

	f, err := svc.Upload(ctx, "u1", "../../certs/ILTP.txt", []byte("hello, world"))
	require.NoError(t, err)
	assert.Equal(t, "ILTP.txt", f.Name)
	assert.Equal(t, int64(12), f.Size)
	assert.Equal(t, "text/plain; charset=utf-8", f.ContentType)
	assert.Nil(t, f.Content)

	files, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Nil(t, files[0].Content, "listing never loads content")

	got, err := svc.Download(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, world"), got.Content)

	meta, err := svc.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, meta.Content)

	require.NoError(t, svc.Delete(ctx, f.ID))
	_, err = svc.Download(ctx, f.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Upload_invalid(t *testing.T) {
	ctx := context.Background()
	svc := file.NewService(dummydb.NewFileRepository(dummydb.Open()), &core.Config{MaxUploadSize: 16})

	_, err := svc.Upload(ctx, "u1", "big.bin", bytes.Repeat([]byte("x"), 17))
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, file.TooLargeError{Size: 17, Max: 16}, vErr.Err)

	_, err = svc.Upload(ctx, "u1", "empty.txt", nil)
	assert.IsType(t, &core.ValidationError{}, err)

	_, err = svc.Upload(ctx, "u1", "  ", []byte("x"))
	assert.IsType(t, &core.ValidationError{}, err)
}
