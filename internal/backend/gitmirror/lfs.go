package gitmirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	cryptossh "golang.org/x/crypto/ssh"

	"github.com/lensview/lensview/internal/checksum"
	"github.com/lensview/lensview/internal/credential"
	"github.com/lensview/lensview/internal/domain"
)

// maxPointerSize is the largest file that can be a pointer. Anything
// bigger is regular content without further inspection.
const maxPointerSize = 1024

const pointerVersionPrefix = "version https://git-lfs.github.com/spec/v1"

// Pointer is a parsed large-file pointer: a small text stand-in committed
// in place of the real content, carrying its digest and size.
type Pointer struct {
	Oid  string // sha256 hex digest of the real content
	Size int64  // declared size of the real content in bytes
}

// ParsePointer parses data as a pointer file. The second return value
// reports whether data is a pointer at all; regular file content returns
// false without error.
func ParsePointer(data []byte) (Pointer, bool) {
	if len(data) == 0 || len(data) > maxPointerSize {
		return Pointer{}, false
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 3 || !strings.HasPrefix(lines[0], pointerVersionPrefix) {
		return Pointer{}, false
	}

	var p Pointer
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "oid sha256:"):
			p.Oid = strings.TrimPrefix(line, "oid sha256:")
		case strings.HasPrefix(line, "size "):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "size "), 10, 64)
			if err != nil {
				return Pointer{}, false
			}
			p.Size = n
		}
	}

	if len(p.Oid) != 64 || p.Size < 0 {
		return Pointer{}, false
	}
	return p, true
}

// lfsClient downloads large-file content through the batch API of the
// server fronting the repository.
type lfsClient struct {
	endpoint   string // ".../info/lfs", without the /objects/batch suffix
	header     map[string]string
	httpClient *http.Client
}

// newLFSClient resolves the batch endpoint for repoURL. SSH remotes get a
// short-lived token from git-lfs-authenticate; HTTP remotes derive the
// endpoint from the clone URL directly.
func newLFSClient(ctx context.Context, repoURL string, cred *credential.Credential, dialTimeout time.Duration) (*lfsClient, error) {
	client := &lfsClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		header:     map[string]string{},
	}

	if strings.HasPrefix(repoURL, "http://") || strings.HasPrefix(repoURL, "https://") {
		client.endpoint = strings.TrimSuffix(repoURL, "/") + "/info/lfs"
		return client, nil
	}

	user, host, port, repoPath, ok := splitSSHURL(repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: no large-file endpoint for %s", domain.ErrMaterializeFailed, repoURL)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: ssh remote requires a credential", domain.ErrMaterializeFailed)
	}

	href, header, err := sshAuthenticate(ctx, user, host, port, repoPath, cred, dialTimeout)
	if err != nil {
		return nil, err
	}
	client.endpoint = href
	client.header = header
	return client, nil
}

// splitSSHURL understands ssh://user@host[:port]/path and the scp-like
// user@host:path form.
func splitSSHURL(repoURL string) (user, host string, port int, repoPath string, ok bool) {
	port = 22

	if strings.HasPrefix(repoURL, "ssh://") {
		rest := strings.TrimPrefix(repoURL, "ssh://")
		at := strings.Index(rest, "@")
		if at < 0 {
			return "", "", 0, "", false
		}
		user = rest[:at]
		rest = rest[at+1:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", "", 0, "", false
		}
		hostPort := rest[:slash]
		repoPath = strings.TrimPrefix(rest[slash:], "/")
		if colon := strings.Index(hostPort, ":"); colon >= 0 {
			p, err := strconv.Atoi(hostPort[colon+1:])
			if err != nil {
				return "", "", 0, "", false
			}
			host, port = hostPort[:colon], p
		} else {
			host = hostPort
		}
		return user, host, port, repoPath, host != "" && user != ""
	}

	// scp-like: git@host:owner/repo.git
	at := strings.Index(repoURL, "@")
	colon := strings.Index(repoURL, ":")
	if at <= 0 || colon <= at || strings.Contains(repoURL, "://") {
		return "", "", 0, "", false
	}
	return repoURL[:at], repoURL[at+1:colon], port, repoURL[colon+1:], true
}

// sshAuthenticate runs git-lfs-authenticate on the remote and returns the
// batch endpoint plus the authorization header it hands out.
func sshAuthenticate(ctx context.Context, user, host string, port int, repoPath string, cred *credential.Credential, dialTimeout time.Duration) (string, map[string]string, error) {
	cfg := &cryptossh.ClientConfig{
		User:            user,
		Auth:            []cryptossh.AuthMethod{cryptossh.PublicKeys(cred.Signer())},
		HostKeyCallback: cryptossh.InsecureIgnoreHostKey(), //nolint:gosec // host trust handled at connect time
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", host, port)

	type dialResult struct {
		client *cryptossh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		c, err := cryptossh.Dial("tcp", addr, cfg)
		ch <- dialResult{c, err}
	}()

	var conn *cryptossh.Client
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", nil, fmt.Errorf("%w: dial %s: %v", domain.ErrMaterializeFailed, addr, res.err)
		}
		conn = res.client
	}
	defer conn.Close()

	sess, err := conn.NewSession()
	if err != nil {
		return "", nil, fmt.Errorf("%w: session on %s: %v", domain.ErrMaterializeFailed, addr, err)
	}
	defer sess.Close()

	out, err := sess.Output(fmt.Sprintf("git-lfs-authenticate %s download", repoPath))
	if err != nil {
		return "", nil, fmt.Errorf("%w: git-lfs-authenticate on %s: %v", domain.ErrMaterializeFailed, addr, err)
	}

	var resp struct {
		Href   string            `json:"href"`
		Header map[string]string `json:"header"`
	}
	if err := json.Unmarshal(out, &resp); err != nil || resp.Href == "" {
		return "", nil, fmt.Errorf("%w: unexpected git-lfs-authenticate output", domain.ErrMaterializeFailed)
	}
	return resp.Href, resp.Header, nil
}

type batchRequest struct {
	Operation string        `json:"operation"`
	Transfers []string      `json:"transfers"`
	Objects   []batchObject `json:"objects"`
}

type batchObject struct {
	Oid  string `json:"oid"`
	Size int64  `json:"size"`
}

type batchResponse struct {
	Objects []struct {
		Oid     string `json:"oid"`
		Size    int64  `json:"size"`
		Actions map[string]struct {
			Href   string            `json:"href"`
			Header map[string]string `json:"header"`
		} `json:"actions"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"objects"`
}

// Fetch downloads the content behind ptr and verifies its digest.
func (c *lfsClient) Fetch(ctx context.Context, ptr Pointer) ([]byte, error) {
	reqBody, err := json.Marshal(batchRequest{
		Operation: "download",
		Transfers: []string{"basic"},
		Objects:   []batchObject{{Oid: ptr.Oid, Size: ptr.Size}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode batch request: %v", domain.ErrMaterializeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/objects/batch", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMaterializeFailed, err)
	}
	req.Header.Set("Accept", "application/vnd.git-lfs+json")
	req.Header.Set("Content-Type", "application/vnd.git-lfs+json")
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: batch request: %v", domain.ErrMaterializeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: batch endpoint returned %s", domain.ErrMaterializeFailed, resp.Status)
	}

	var batch batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("%w: decode batch response: %v", domain.ErrMaterializeFailed, err)
	}
	if len(batch.Objects) == 0 {
		return nil, fmt.Errorf("%w: batch response lists no objects", domain.ErrMaterializeFailed)
	}

	obj := batch.Objects[0]
	if obj.Error != nil {
		return nil, fmt.Errorf("%w: %s (%d)", domain.ErrMaterializeFailed, obj.Error.Message, obj.Error.Code)
	}
	action, ok := obj.Actions["download"]
	if !ok {
		return nil, fmt.Errorf("%w: no download action for %s", domain.ErrMaterializeFailed, ptr.Oid)
	}

	data, err := c.download(ctx, action.Href, action.Header, ptr.Size)
	if err != nil {
		return nil, err
	}

	if !checksum.Verify(data, ptr.Oid) {
		return nil, fmt.Errorf("%w: digest mismatch for %s", domain.ErrMaterializeFailed, ptr.Oid)
	}
	return data, nil
}

func (c *lfsClient) download(ctx context.Context, href string, header map[string]string, size int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMaterializeFailed, err)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", domain.ErrMaterializeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: object store returned %s", domain.ErrMaterializeFailed, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, size+1))
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", domain.ErrMaterializeFailed, err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("%w: got %d bytes, declared %d", domain.ErrMaterializeFailed, len(data), size)
	}
	return data, nil
}
