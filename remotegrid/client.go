// Package remotegrid talks to a hosted automation grid's REST API (Sauce Labs
// compatible) to look up jobs, build shareable links and record outcomes.
package remotegrid

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultAPIURL  = "https://saucelabs.com"
	DefaultLinkURL = "https://saucelabs.com"

	maxResponseSize = 1 << 20
)

// ClientConfig configures a Client
type ClientConfig struct {
	Username string
	Password string
	// APIURL defaults to DefaultAPIURL
	APIURL string
	// LinkURL is the base of public job links, defaults to DefaultLinkURL
	LinkURL    string
	HTTPClient *http.Client
}

// Job is the subset of a grid job the runner uses
type Job struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Passed         *bool  `json:"passed"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
}

// Client is a remote grid REST client
type Client struct {
	cfg ClientConfig
}

// NewClient creates a new Client
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.LinkURL == "" {
		cfg.LinkURL = DefaultLinkURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.LinkURL = strings.TrimRight(cfg.LinkURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{cfg: cfg}
}

// FetchJob looks up the job recorded for a session
func (c *Client) FetchJob(ctx context.Context, sessionID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, c.jobPath(sessionID), nil, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = sessionID
	}
	return &job, nil
}

// UpdateJob sets fields such as name and passed on a job
func (c *Client) UpdateJob(ctx context.Context, sessionID string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, c.jobPath(sessionID), fields, nil)
}

// CreatePublicLink returns a link to the job that can be opened without
// logging in. The token is an HMAC-MD5 of the job ID keyed with
// "username:password".
func (c *Client) CreatePublicLink(ctx context.Context, jobID string) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("remotegrid: empty job id")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mac := hmac.New(md5.New, []byte(c.cfg.Username+":"+c.cfg.Password))
	mac.Write([]byte(jobID))
	token := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s/jobs/%s?auth=%s", c.cfg.LinkURL, url.PathEscape(jobID), token), nil
}

func (c *Client) jobPath(jobID string) string {
	return fmt.Sprintf("/rest/v1/%s/jobs/%s", url.PathEscape(c.cfg.Username), url.PathEscape(jobID))
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remotegrid: encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reader)
	if err != nil {
		return fmt.Errorf("remotegrid: creating request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("remotegrid: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("remotegrid: reading response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("remotegrid: %s %s: response code %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("remotegrid: decoding response: %w", err)
	}
	return nil
}
