// Package images converts locally-selected images into durable remote URLs
// via Cloudinary's unsigned upload endpoint and records the logical
// path → URL mapping in the runtime database. Only URLs are stored, never
// bytes: the replicated document has a hard per-chunk size ceiling.
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
)

// DefaultEndpoint is the Cloudinary unsigned-upload base URL.
const DefaultEndpoint = "https://api.cloudinary.com/v1_1"

// ErrNotConfigured is raised synchronously when upload credentials are
// missing; the runtime database is left unmodified.
var ErrNotConfigured = errors.New("cloudinary is not configured: cloud name and upload preset are required")

// Uploader is the image indirection layer.
type Uploader struct {
	store        *core.Store
	cloudName    string
	uploadPreset string
	endpoint     string
	client       *http.Client
	log          *zap.Logger
}

// NewUploader builds an uploader bound to the runtime database store.
// cloudName and uploadPreset may be empty; uploads then fail with
// ErrNotConfigured while Resolve keeps working.
func NewUploader(store *core.Store, cloudName, uploadPreset string, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{
		store:        store,
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		endpoint:     DefaultEndpoint,
		client:       &http.Client{Timeout: 60 * time.Second},
		log:          log,
	}
}

// SetEndpoint overrides the upload base URL. Used by tests.
func (u *Uploader) SetEndpoint(endpoint string) {
	u.endpoint = strings.TrimRight(endpoint, "/")
}

// uploadResponse is the subset of Cloudinary's response the service uses.
// A response without a secure URL is treated as a failed call.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Store uploads file data and records images[logicalPath] = url through one
// runtime database replace. On failure nothing is recorded.
func (u *Uploader) Store(ctx context.Context, logicalPath, fileName string, data io.Reader) (string, error) {
	if u.cloudName == "" || u.uploadPreset == "" {
		return "", ErrNotConfigured
	}
	if logicalPath == "" {
		return "", errors.New("logical path is required")
	}

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("upload_preset", u.uploadPreset); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.WriteField("public_id", SanitizePublicID(logicalPath)); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("read image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", u.endpoint, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	var parsed uploadResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("cloudinary upload failed: %s", msg)
	}
	if parsed.SecureURL == "" {
		return "", errors.New("cloudinary upload failed: response missing secure_url")
	}

	u.store.SetImage(logicalPath, parsed.SecureURL)
	u.log.Info("image uploaded", zap.String("path", logicalPath))
	return parsed.SecureURL, nil
}

// Resolve returns the remote URL recorded for a logical path. A path that
// already looks like an absolute URL (or a legacy inline data entry) is
// returned unchanged; an unknown path yields "".
func (u *Uploader) Resolve(logicalPath string) string {
	if IsAbsoluteRef(logicalPath) {
		return logicalPath
	}
	if url, ok := u.store.Images()[logicalPath]; ok {
		return url
	}
	return ""
}

// IsAbsoluteRef reports whether value is already a usable image reference:
// an absolute URL or a legacy inline base64 data entry.
func IsAbsoluteRef(value string) bool {
	return strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://") ||
		strings.HasPrefix(value, "data:")
}

// SanitizePublicID derives a stable Cloudinary public id from a logical
// path: anything outside [a-zA-Z0-9_-] collapses to '-'.
func SanitizePublicID(logicalPath string) string {
	var b strings.Builder
	for _, r := range logicalPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
