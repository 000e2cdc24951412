package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
)

func newUploaderStore(t *testing.T) *core.Store {
	t.Helper()
	cache, err := core.NewCache(t.TempDir())
	require.NoError(t, err)
	s, err := core.NewStore(cache, core.NewBus(), nil)
	require.NoError(t, err)
	return s
}

func TestStore_UploadSuccess(t *testing.T) {
	var gotPath, gotPreset, gotPublicID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPreset = r.FormValue("upload_preset")
		gotPublicID = r.FormValue("public_id")
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/abc.jpg"}`))
	}))
	defer srv.Close()

	store := newUploaderStore(t)
	u := NewUploader(store, "demo", "atr-unsigned", nil)
	u.SetEndpoint(srv.URL)

	url, err := u.Store(context.Background(), "inspection/INSP-1/photo.jpg", "photo.jpg",
		strings.NewReader("fake-jpeg-bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/abc.jpg", url)

	require.Equal(t, "/demo/image/upload", gotPath)
	require.Equal(t, "atr-unsigned", gotPreset)
	require.Equal(t, "inspection-INSP-1-photo-jpg", gotPublicID)

	// The database now carries the URL, never the bytes.
	require.Equal(t, url, store.Images()["inspection/INSP-1/photo.jpg"])
	require.Equal(t, url, u.Resolve("inspection/INSP-1/photo.jpg"))
}

func TestStore_UploadFailureLeavesDatabaseUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	store := newUploaderStore(t)
	stamp := store.LastUpdated()
	u := NewUploader(store, "demo", "bad-preset", nil)
	u.SetEndpoint(srv.URL)

	_, err := u.Store(context.Background(), "inspection/INSP-1/photo.jpg", "photo.jpg",
		strings.NewReader("x"))
	require.ErrorContains(t, err, "Upload preset not found")
	require.Empty(t, store.Images())
	require.Equal(t, stamp, store.LastUpdated())
}

func TestStore_MissingSecureURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := newUploaderStore(t)
	u := NewUploader(store, "demo", "preset", nil)
	u.SetEndpoint(srv.URL)

	_, err := u.Store(context.Background(), "p", "f.jpg", strings.NewReader("x"))
	require.ErrorContains(t, err, "secure_url")
}

func TestStore_NotConfigured(t *testing.T) {
	store := newUploaderStore(t)
	u := NewUploader(store, "", "", nil)

	_, err := u.Store(context.Background(), "p", "f.jpg", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Empty(t, store.Images())
}

func TestResolve(t *testing.T) {
	store := newUploaderStore(t)
	store.SetImage("inspection/INSP-1/a.jpg", "https://res.cloudinary.com/demo/a.jpg")
	u := NewUploader(store, "demo", "preset", nil)

	require.Equal(t, "https://res.cloudinary.com/demo/a.jpg", u.Resolve("inspection/INSP-1/a.jpg"))
	require.Equal(t, "", u.Resolve("inspection/INSP-9/missing.jpg"))

	// Absolute and legacy inline references pass through unchanged.
	require.Equal(t, "https://example.com/x.png", u.Resolve("https://example.com/x.png"))
	require.Equal(t, "data:image/png;base64,AAAA", u.Resolve("data:image/png;base64,AAAA"))
}

func TestSanitizePublicID(t *testing.T) {
	require.Equal(t, "inspection-INSP-1-photo-jpg", SanitizePublicID("inspection/INSP-1/photo.jpg"))
	require.Equal(t, "a_b-c", SanitizePublicID("/a_b-c/"))
	require.Equal(t, "", SanitizePublicID("///"))
}
