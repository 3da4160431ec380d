package subsonic

import (
	"context"
	"fmt"
	"io"
)

// Stream returns the (possibly transcoded) audio of a track.
func (c *Client) Stream(ctx context.Context, id string, opts StreamOptions) ([]byte, error) {
	return c.getBinary(ctx, "stream", values("id", id, "maxBitRate", itoa(opts.MaxBitRate), "format", opts.Format))
}

// Download returns the original file of a track.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	return c.getBinary(ctx, "download", values("id", id))
}

// DownloadTo copies the original file of a track into w without buffering it in memory.
func (c *Client) DownloadTo(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.openBinary(ctx, "download", values("id", id))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download: failed to copy body: %w", err)
	}
	return n, nil
}

// GetCoverArt returns an image. A size of zero requests the original.
func (c *Client) GetCoverArt(ctx context.Context, id string, size int) ([]byte, error) {
	return c.getBinary(ctx, "getCoverArt", values("id", id, "size", itoa(size)))
}
