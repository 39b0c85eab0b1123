package ipfsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/nipfs/nip/nerrors"
)

// HTTPClient talks to a local Kubo/go-ipfs daemon's HTTP RPC API. It is the
// only production implementation of Store.
type HTTPClient struct {
	// BaseURL is e.g. "http://127.0.0.1:5001".
	BaseURL string
	HTTP    *http.Client
	// MaxAttempts bounds the exponential-backoff retry in do(), mirroring
	// the teacher's remote transport retry policy.
	MaxAttempts int
}

// NewHTTPClient builds a client against the daemon at addr (host:port, no
// scheme) with sane defaults.
func NewHTTPClient(addr string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:     "http://" + addr,
		HTTP:        &http.Client{Timeout: timeout},
		MaxAttempts: 3,
	}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

func (c *HTTPClient) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return cid.Undef, nerrors.Wrap(err, "building multipart body")
	}
	if _, err := part.Write(data); err != nil {
		return cid.Undef, nerrors.Wrap(err, "writing multipart body")
	}
	if err := mw.Close(); err != nil {
		return cid.Undef, nerrors.Wrap(err, "closing multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v0/add?pin=false", &body)
	if err != nil {
		return cid.Undef, nerrors.Wrap(err, "building add request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return cid.Undef, err
	}

	var resp addResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return cid.Undef, nerrors.Wrap(err, "parsing add response")
	}
	return cid.Decode(resp.Hash)
}

func (c *HTTPClient) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v0/cat?arg="+id.String(), nil)
	if err != nil {
		return nil, nerrors.Wrap(err, "building cat request")
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type resolveResponse struct {
	Path string `json:"Path"`
}

func (c *HTTPClient) Resolve(ctx context.Context, path string) (cid.Cid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v0/resolve?arg="+path, nil)
	if err != nil {
		return cid.Undef, nerrors.Wrap(err, "building resolve request")
	}
	body, err := c.do(req)
	if err != nil {
		return cid.Undef, err
	}
	var resp resolveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return cid.Undef, nerrors.Wrap(err, "parsing resolve response")
	}
	// resp.Path looks like "/ipfs/<cid>"; strip the namespace prefix.
	for _, prefix := range []string{"/ipfs/", "/ipns/"} {
		if len(resp.Path) > len(prefix) && resp.Path[:len(prefix)] == prefix {
			return cid.Decode(resp.Path[len(prefix):])
		}
	}
	return cid.Decode(resp.Path)
}

type publishResponse struct {
	Name string `json:"Name"`
}

// Publish implements the optional Publisher capability.
func (c *HTTPClient) Publish(ctx context.Context, target cid.Cid) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v0/name/publish?arg=/ipfs/"+target.String(), nil)
	if err != nil {
		return "", nerrors.Wrap(err, "building name/publish request")
	}
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var resp publishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nerrors.Wrap(err, "parsing name/publish response")
	}
	return resp.Name, nil
}

// do executes req with exponential backoff, adapted from the teacher's
// remote transport retry loop (pkg/remote/retry.go): network errors and 5xx
// responses are retried, 4xx responses are not.
func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, nerrors.Wrap(err, "buffering request body for retry")
		}
		req.Body.Close()
		bodyBytes = b
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = nerrors.Unreachable(c.BaseURL, err)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = nerrors.Wrap(readErr, "reading response body")
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, nerrors.NotFound(req.URL.String(), nerrors.Newf("daemon returned 404"))
		case resp.StatusCode >= 500:
			lastErr = nerrors.Newf("daemon returned %d: %s", resp.StatusCode, data)
			continue
		case resp.StatusCode >= 400:
			return nil, nerrors.Newf("daemon rejected request (%d): %s", resp.StatusCode, data)
		default:
			return data, nil
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

// Ping probes the daemon's repo stats endpoint, the same connectivity check
// the original nipctl performs (ipfs.stats_repo()) before running any
// subcommand.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v0/stats/repo", nil)
	if err != nil {
		return nerrors.Wrap(err, "building stats/repo request")
	}
	_, err = c.do(req)
	return err
}
