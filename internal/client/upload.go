package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gitpusher/pushkit/internal/models"
)

// UploadFiles sends the staged file set as a multipart form to the
// project's upload endpoint. The backend replaces any previously uploaded
// set for the project.
func (c *Client) UploadFiles(ctx context.Context, projectID string, files []models.StagedFile) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to upload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return fmt.Errorf("create form file %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("write form file %q: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	path := fmt.Sprintf("/workflows/projects/%s/upload", url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(req, nil)
}
