package demostf

import (
	"context"
	"crypto/md5"
	"io"
	"net/http"
	"time"
)

// Download fetches the demo file itself from its storage backend, returning
// the body as a stream of bytes. The caller closes the returned reader.
//
// The request timeout scales with the demo duration, roughly 1mb of file per
// minute of playtime, never below the client's base timeout.
func (c *Client) Download(ctx context.Context, demo *Demo) (io.ReadCloser, error) {
	const op = "download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, demo.URL, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	timeout := c.downloadTimeout(demo.Duration)
	c.logger.Debug().Uint32("demo", demo.ID).Str("url", demo.URL).Dur("timeout", timeout).Msg("downloading demo file")

	// shallow copy shares the transport but lets the timeout stretch for
	// large files without touching the shared client
	httpClient := *c.httpClient
	httpClient.Timeout = timeout

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// Save downloads a demo into the given writer, verifying the md5 hash of the
// received content against the one recorded by the api. Demos with an unset
// hash are saved without verification.
func (c *Client) Save(ctx context.Context, demo *Demo, target io.Writer) error {
	const op = "save"

	body, err := c.Download(ctx, demo)
	if err != nil {
		return err
	}
	defer body.Close()

	digest := md5.New()
	if _, err := io.Copy(io.MultiWriter(digest, target), body); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	var sum Hash
	copy(sum[:], digest.Sum(nil))

	if !demo.Hash.IsZero() && sum != demo.Hash {
		c.logger.Error().
			Str("calculated", sum.String()).
			Str("expected", demo.Hash.String()).
			Msg("hash mismatch")
		return ErrHashMismatch
	}
	return nil
}

func (c *Client) downloadTimeout(duration int) time.Duration {
	scale := float64(duration) / 60
	if scale < 15 {
		scale = 15
	}
	return time.Duration(float64(c.baseTimeout) * scale / 15)
}
