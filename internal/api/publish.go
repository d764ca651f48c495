package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
)

// PublishUpdate uploads an update archive for an app. The request is a
// multipart form with the metadata JSON-encoded in a "data" field and the
// archive in a "bundle" file part. The body is streamed, so archive size is
// bounded only by the upload timeout.
func (c *Client) PublishUpdate(ctx context.Context, appID int64, meta UpdateMetadata, archivePath string) (*Update, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, meta, filepath.Base(archivePath), f))
	}()

	path := fmt.Sprintf("/apps/%d/updates", appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload update: %w", err)
	}
	defer resp.Body.Close()

	var u Update
	if err := decodeResponse(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func writeUploadForm(mw *multipart.Writer, meta UpdateMetadata, filename string, archive io.Reader) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("data", string(data)); err != nil {
		return fmt.Errorf("write data field: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="bundle"; filename=%q`, filename))
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create bundle part: %w", err)
	}
	if _, err := io.Copy(part, archive); err != nil {
		return fmt.Errorf("write bundle part: %w", err)
	}
	return mw.Close()
}
