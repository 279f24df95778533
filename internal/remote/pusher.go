// Package remote pushes locally-built artifact outputs to an optional
// remote cache endpoint.
//
// A push failure is logged by the caller and never fails the local build;
// the remote side is purely a sink for already-computed outputs.
package remote

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/anvil-build/anvil/internal/component"
)

// Pusher uploads artifact outputs to a remote cache service.
type Pusher struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a pusher for the given base URL. token may be empty; when
// set it is sent as a bearer token.
func New(baseURL, token string) *Pusher {
	return &Pusher{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Push uploads the artifact output as a zstd-compressed tar stream to
// `<base>/artifacts/<fingerprint>`.
func (p *Pusher) Push(ctx context.Context, fingerprint string, out *component.ArtifactOutput) error {
	payload, err := packOutput(out)
	if err != nil {
		return fmt.Errorf("packing artifact %s: %w", fingerprint, err)
	}

	url := p.baseURL + "/artifacts/" + fingerprint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/zstd")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushing artifact %s: %w", fingerprint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pushing artifact %s: remote returned %s", fingerprint, resp.Status)
	}
	return nil
}

// packOutput tars the output's files relative to its root and compresses
// the stream with zstd.
func packOutput(out *component.ArtifactOutput) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(zw)

	for _, rel := range out.Files {
		full := filepath.Join(out.Root, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil {
			return nil, err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return nil, err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		f, err := os.Open(full)
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
