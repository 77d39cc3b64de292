package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

// DefaultClientTimeout bounds one upload request when Client.HTTPClient is
// not set.
const DefaultClientTimeout = 30 * time.Second

// Client uploads dropped files to a Handler over HTTP.
type Client struct {
	// URL is the upload endpoint, e.g. "http://localhost:8080/upload".
	URL string

	// HTTPClient defaults to a client with DefaultClientTimeout.
	HTTPClient *http.Client

	// Header is added to every request.
	Header http.Header
}

// NewClient creates a client for url.
func NewClient(url string) *Client {
	return &Client{URL: url}
}

// Blocking reports that uploads wait on the network, so FileDrop runs
// them off the event loop.
func (c *Client) Blocking() bool {
	return true
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// fileDisposition matches the quoting of multipart.Writer.CreateFormFile.
func fileDisposition(field, name string) string {
	return fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name))
}

// Upload posts f as the multipart "file" field and returns the ref.
func (c *Client) Upload(ctx context.Context, f dom.File) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fileDisposition("file", f.Name))
	if f.Type != "" {
		h.Set("Content-Type", f.Type)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return "", errors.New(errors.CodeUploadStore).Wrap(err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultClientTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.New(errors.CodeUploadStore).WithDetail(c.URL).Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", errors.New(errors.CodeUploadTooLarge).WithDetail(f.Name)
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return "", errors.New(errors.CodeUploadRejected).WithDetail(f.Name)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.New(errors.CodeUploadStore).WithDetailf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.New(errors.CodeUploadStore).WithDetail("decode response").Wrap(err)
	}
	return out.Ref, nil
}

// StoreUploader saves dropped files straight into a Store.
type StoreUploader struct {
	Store Store
}

// Upload saves f and returns its ref.
func (u StoreUploader) Upload(ctx context.Context, f dom.File) (string, error) {
	size := f.Size
	if size <= 0 {
		size = int64(len(f.Data))
	}
	return u.Store.Save(ctx, f.Name, f.Type, size, bytes.NewReader(f.Data))
}
