package gitrepo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// RESTClientOption configures a RESTClient.
type RESTClientOption func(*RESTClient)

// WithBaseURL points the client at a different API host (tests, GHE).
func WithBaseURL(baseURL string) RESTClientOption {
	return func(c *RESTClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithToken sets the bearer token used for authenticated requests.
func WithToken(token string) RESTClientOption {
	return func(c *RESTClient) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) RESTClientOption {
	return func(c *RESTClient) {
		if client != nil {
			c.http = client
		}
	}
}

// RESTClient implements Repository against a GitHub-style contents/refs/pulls
// REST API.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRESTClient constructs a client with sane timeouts.
func NewRESTClient(opts ...RESTClientOption) *RESTClient {
	c := &RESTClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Anonymous returns a copy of the client with no credential attached, used
// as the public fallback path for reads.
func (c *RESTClient) Anonymous() *RESTClient {
	clone := *c
	clone.token = ""
	return &clone
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

func (c *RESTClient) GetFileContent(ctx context.Context, repo, path, branch string) (FileContent, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, repo, escapePath(path))
	if branch != "" {
		endpoint += "?ref=" + url.QueryEscape(branch)
	}
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return FileContent{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return FileContent{}, notFound(repo, path, branch)
	default:
		return FileContent{}, &StatusError{Status: status, Repo: repo, Path: path, Body: string(body)}
	}

	var decoded contentsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return FileContent{}, fmt.Errorf("gitrepo: decode contents for %s/%s: %w", repo, path, err)
	}
	raw := []byte(decoded.Content)
	if decoded.Encoding == "base64" {
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(decoded.Content, "\n", ""))
		if err != nil {
			return FileContent{}, fmt.Errorf("gitrepo: decode base64 for %s/%s: %w", repo, path, err)
		}
	}
	return FileContent{Content: raw, SHA: decoded.SHA}, nil
}

type writeFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

func (c *RESTClient) CreateFile(ctx context.Context, repo, path string, content []byte, branch, message string) error {
	return c.writeFile(ctx, repo, path, content, "", branch, message)
}

func (c *RESTClient) UpdateFile(ctx context.Context, repo, path string, content []byte, sha, branch, message string) error {
	return c.writeFile(ctx, repo, path, content, sha, branch, message)
}

func (c *RESTClient) writeFile(ctx context.Context, repo, path string, content []byte, sha, branch, message string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, repo, escapePath(path))
	payload, err := json.Marshal(writeFileRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  branch,
		SHA:     sha,
	})
	if err != nil {
		return fmt.Errorf("gitrepo: encode write for %s/%s: %w", repo, path, err)
	}
	body, status, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return notFound(repo, path, branch)
	default:
		return &StatusError{Status: status, Repo: repo, Path: path, Body: string(body)}
	}
}

type refResponse struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

func (c *RESTClient) CreateBranch(ctx context.Context, repo, from, name string) error {
	refEndpoint := fmt.Sprintf("%s/repos/%s/git/ref/heads/%s", c.baseURL, repo, url.PathEscape(from))
	body, status, err := c.do(ctx, http.MethodGet, refEndpoint, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return notFound(repo, "refs/heads/"+from, from)
	}
	if status != http.StatusOK {
		return &StatusError{Status: status, Repo: repo, Path: "refs/heads/" + from, Body: string(body)}
	}
	var ref refResponse
	if err := json.Unmarshal(body, &ref); err != nil {
		return fmt.Errorf("gitrepo: decode ref for %s: %w", repo, err)
	}

	createEndpoint := fmt.Sprintf("%s/repos/%s/git/refs", c.baseURL, repo)
	payload, err := json.Marshal(map[string]string{
		"ref": "refs/heads/" + name,
		"sha": ref.Object.SHA,
	})
	if err != nil {
		return fmt.Errorf("gitrepo: encode branch create for %s: %w", repo, err)
	}
	body, status, err = c.do(ctx, http.MethodPost, createEndpoint, payload)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &StatusError{Status: status, Repo: repo, Path: "refs/heads/" + name, Body: string(body)}
	}
	return nil
}

type pullResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

func (c *RESTClient) CreatePullRequest(ctx context.Context, repo, title, body, head, base string) (PullRequest, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/pulls", c.baseURL, repo)
	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	})
	if err != nil {
		return PullRequest{}, fmt.Errorf("gitrepo: encode pull request for %s: %w", repo, err)
	}
	responseBody, status, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return PullRequest{}, err
	}
	if status != http.StatusCreated {
		return PullRequest{}, &StatusError{Status: status, Repo: repo, Path: "pulls", Body: string(responseBody)}
	}
	var pull pullResponse
	if err := json.Unmarshal(responseBody, &pull); err != nil {
		return PullRequest{}, fmt.Errorf("gitrepo: decode pull request for %s: %w", repo, err)
	}
	return PullRequest{Number: pull.Number, URL: pull.HTMLURL}, nil
}

type repoResponse struct {
	Permissions struct {
		Push  bool `json:"push"`
		Admin bool `json:"admin"`
	} `json:"permissions"`
}

func (c *RESTClient) HasWriteAccessToRepository(ctx context.Context, repo string) (bool, error) {
	endpoint := fmt.Sprintf("%s/repos/%s", c.baseURL, repo)
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized:
		return false, nil
	default:
		return false, &StatusError{Status: status, Repo: repo, Body: string(body)}
	}
	var decoded repoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false, fmt.Errorf("gitrepo: decode repository for %s: %w", repo, err)
	}
	return decoded.Permissions.Push || decoded.Permissions.Admin, nil
}

func (c *RESTClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("gitrepo: build request: %w", err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, 0, fmt.Errorf("gitrepo: %s %s: %w", method, endpoint, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, 10<<20))
	if err != nil {
		return nil, response.StatusCode, fmt.Errorf("gitrepo: read response: %w", err)
	}
	return responseBody, response.StatusCode, nil
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
