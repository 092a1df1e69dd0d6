package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// StreamEvent is one server-sent event payload. Data holds the raw bytes of
// the event's data field; comment keepalive frames are never delivered.
type StreamEvent struct {
	Data []byte
}

// Stream opens a server-sent event subscription at path and delivers events
// on the returned channel. The channel is closed when the connection ends
// for any reason; cancel ctx to tear the subscription down. The dial error
// is returned synchronously so callers can apply their own retry policy.
func (c *Client) Stream(ctx context.Context, path string) (<-chan StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Streaming requests bypass the client timeout; lifetime is bounded by
	// ctx only.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, APIError{Status: resp.StatusCode, Message: "stream rejected"}
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				// Blank line terminates an event.
				if data.Len() > 0 {
					select {
					case events <- StreamEvent{Data: []byte(data.String())}:
					case <-ctx.Done():
						return
					}
					data.Reset()
				}
			case strings.HasPrefix(line, ":"):
				// Comment keepalive, ignore.
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
	}()
	return events, nil
}
