package crawler

import (
	"context"
	"io"

	"sjsage522/jobfeedworker/helpers"
)

// HTTPRenderer fetches the page without running its scripts. It only suits
// feeds whose job cards are present in the server response.
type HTTPRenderer struct{}

var _ Renderer = HTTPRenderer{}

// Render fetches url and returns the UTF-8 body
func (HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	body, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
