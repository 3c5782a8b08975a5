package thesaurus

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// EnsureThesaurus checks if the synset file exists at path. If not, it
// downloads it from url. Plain JSON, gzip and tar.gz payloads are accepted.
func EnsureThesaurus(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("thesaurus not found at %s and no download url configured", path)
	}

	slog.Info("thesaurus not found, downloading", "path", path, "url", url)
	return downloadAndExtract(ctx, http.DefaultClient, url, path)
}

func downloadAndExtract(ctx context.Context, client *http.Client, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "narrator-cli")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download returned %s", ErrStatus, resp.Status)
	}

	body, err := decompress(resp.Body)
	if err != nil {
		return err
	}
	return writeAtomic(destPath, body)
}

// decompress sniffs the payload: gzip (optionally wrapping a tar archive) or
// plain JSON.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return br, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	inner := bufio.NewReader(gz)
	head, _ := inner.Peek(262)
	if len(head) < 262 || string(head[257:262]) != "ustar" {
		return inner, nil
	}

	tr := tar.NewReader(inner)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no json file found in downloaded archive")
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, ".json") {
			return tr, nil
		}
	}
}

// writeAtomic writes r to a temp file beside path and renames it into place
// so a failed download never leaves a truncated file behind.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".thesaurus-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
