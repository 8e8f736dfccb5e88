package maevex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mxtools/maevexctl/internal/logging"
)

// DefaultRateLimit is the download rate cap applied when the caller does
// not choose one: 4 MiB/s keeps a transfer from starving an appliance
// that is still encoding.
const DefaultRateLimit int64 = 4 << 20

// downloadChunkSize is the unit of transfer used for rate pacing
const downloadChunkSize = 64 * 1024

// DownloadSpec describes one local-storage download: which file, where it
// goes, and how fast it may run.
type DownloadSpec struct {
	// File is the local-storage descriptor obtained from ListLocalFiles
	File LocalFile

	// DestDir is the local directory the file is written into
	DestDir string

	// RateLimit caps the transfer in bytes per second (0 = DefaultRateLimit)
	RateLimit int64
}

// ProgressFunc receives transfer progress. total is the expected size
// from the file descriptor and may be zero when the appliance did not
// report one.
type ProgressFunc func(written, total int64)

// DownloadResult summarizes a completed download.
type DownloadResult struct {
	// JobID is the client-generated identifier sent with the request
	JobID string

	// Path is the local path the file was written to
	Path string

	// BytesWritten is the number of bytes received
	BytesWritten int64

	// Duration is the wall-clock transfer time
	Duration time.Duration
}

// DownloadLocalFile downloads one completed recording from the
// appliance's local storage, pacing the transfer to the spec's rate cap
// and reporting progress through onProgress (which may be nil).
func (c *Client) DownloadLocalFile(ctx context.Context, spec DownloadSpec, onProgress ProgressFunc) (*DownloadResult, error) {
	if !spec.File.Completed {
		return nil, NewValidationError(fmt.Sprintf("file %q is still recording and cannot be downloaded", spec.File.Name))
	}
	if spec.File.Name == "" {
		return nil, NewValidationError("file name must not be empty")
	}

	rate := spec.RateLimit
	if rate == 0 {
		rate = DefaultRateLimit
	}
	if err := ValidateRateLimit(rate); err != nil {
		return nil, err
	}

	destDir := spec.DestDir
	if destDir == "" {
		destDir = "."
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, NewValidationError(fmt.Sprintf("cannot create destination directory %q: %v", destDir, err))
	}
	destPath := filepath.Join(destDir, filepath.Base(spec.File.Name))

	jobID := uuid.NewString()
	path := apiPrefix + "/storage/files/" + url.PathEscape(spec.File.Name)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Job-Id", jobID)

	logging.LogDeviceRequest(c.host, http.MethodGet, path)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("download request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogDeviceResponse(c.host, http.MethodGet, path, resp.StatusCode)

	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("cannot create %q: %v", destPath, err))
	}

	written, err := copyRateLimited(ctx, out, resp.Body, rate, spec.File.Size, onProgress)
	closeErr := out.Close()
	if err != nil {
		// Leave no partial file behind on a failed transfer
		_ = os.Remove(destPath)
		return nil, err
	}
	if closeErr != nil {
		_ = os.Remove(destPath)
		return nil, NewNetworkError("failed to flush downloaded file", closeErr)
	}

	return &DownloadResult{
		JobID:        jobID,
		Path:         destPath,
		BytesWritten: written,
		Duration:     time.Since(start),
	}, nil
}

// copyRateLimited copies src to dst in chunks, sleeping between chunks so
// the average rate stays at or below limit bytes per second.
func copyRateLimited(ctx context.Context, dst io.Writer, src io.Reader, limit int64, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, downloadChunkSize)
	var written int64
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return written, classifyNetworkError(ctx.Err(), "")
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, NewNetworkError("failed to write downloaded data", err)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}

			// Pace: if we are ahead of the allowed rate, sleep off the debt
			elapsed := time.Since(start)
			expected := time.Duration(float64(written) / float64(limit) * float64(time.Second))
			if ahead := expected - elapsed; ahead > 0 {
				select {
				case <-time.After(ahead):
				case <-ctx.Done():
					return written, classifyNetworkError(ctx.Err(), "")
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, NewNetworkError("failed to read download stream", readErr)
		}
	}
}
