package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"airecruiter/internal/errors"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "cv"))
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "../Anna CV.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	want := filepath.Join(dir, "cv", "Anna CV.pdf")
	assert.Equal(t, "file://"+filepath.ToSlash(want), url)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestLocalStoreOverwritesSameName(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "cv.txt", strings.NewReader("first"), "text/plain")
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), "cv.txt", strings.NewReader("second"), "text/plain")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.dir, "cv.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStoreRejectsBadName(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "..", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestUnavailableStorage(t *testing.T) {
	u := NewUnavailable(fmt.Errorf("bucket missing"), errors.Discard())
	_, err := u.Upload(context.Background(), "cv.pdf", strings.NewReader("x"), "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.NoError(t, u.Close())
}

func TestGCSUploadReadFailureWritesNothing(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"cvs","name":"cv.pdf"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)
	s := &GCSStore{client: client, bucket: "cvs"}
	defer s.Close()

	_, err = s.Upload(context.Background(), "cv.pdf", iotest.ErrReader(stderrors.New("disk gone")), "application/pdf")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
	assert.Zero(t, requests.Load(), "a failed read must not commit a partial object")
}
