// Package fetch downloads add-on packages and computes their checksums.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// DefaultBlockSize is the read size used while copying a download to disk.
const DefaultBlockSize = 8 * 1024

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Unable to download from %s, HTTP response status code: %d", e.URL, e.StatusCode)
}

// Download fetches url into dest, replacing any existing file. The body is
// copied in blocks of blockSize bytes until Content-Length bytes have been
// written, or until EOF when the server sends no length.
func Download(ctx context.Context, client *http.Client, url, dest string, blockSize int) error {
	if client == nil {
		client = http.DefaultClient
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	// #nosec G304 -- dest is inside the caller's scratch directory.
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if err := copyBlocks(f, resp.Body, resp.ContentLength, blockSize); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

func copyBlocks(w io.Writer, r io.Reader, size int64, blockSize int) error {
	buf := make([]byte, blockSize)
	if size < 0 {
		_, err := io.CopyBuffer(w, r, buf)
		return err
	}

	remaining := size
	for remaining > 0 {
		n := int64(blockSize)
		if remaining < n {
			n = remaining
		}
		read, err := io.ReadFull(r, buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return werr
			}
			remaining -= int64(read)
		}
		if err != nil {
			// A short body leaves a truncated file; the checksum reports it.
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
	return nil
}

// SHA256File returns the lower-case hex SHA-256 of the file at path, read as
// a stream.
func SHA256File(path string) (string, error) {
	// #nosec G304 -- path is a downloaded package in the scratch directory.
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for checksum: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("computing checksum of %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ScratchDir creates a fresh temporary directory under parent, creating
// parent first when it is set. An empty parent means the system temporary
// directory. The caller removes the returned directory.
func ScratchDir(parent, pattern string) (string, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return "", fmt.Errorf("creating scratch directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return dir, nil
}
