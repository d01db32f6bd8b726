// Package api talks to the notes REST server.
package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/tgienger/stn/internal/logging"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:5000/api"

// SessionStore persists the session cookies between runs
type SessionStore interface {
	LoadCookies() ([]*http.Cookie, error)
	SaveCookies(cookies []*http.Cookie) error
}

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	Session SessionStore
	Logger  *zap.Logger
	// Transport replaces the default transport, mostly for tests
	Transport http.RoundTripper
}

// Client is a cookie-session client of the notes API. It is safe for
// concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	jar     *sessionJar
	session SessionStore
	logger  *zap.Logger
}

// New returns a client and restores any persisted session
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		base:    base,
		jar:     jar,
		session: opts.Session,
		logger:  opts.Logger,
		http: &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
	}
	if c.session != nil {
		cookies, err := c.session.LoadCookies()
		if err != nil {
			c.logger.Warn("restore session", zap.Error(err))
		} else if len(cookies) > 0 {
			jar.SetCookies(c.base, cookies)
		}
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Cookies returns the session cookies held for the API
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

// ClearSession forgets every session cookie, locally and in the store
func (c *Client) ClearSession() {
	if err := c.jar.reset(); err != nil {
		c.logger.Warn("reset cookie jar", zap.Error(err))
	}
	c.persist()
}

// sessionJar is a cookie jar that can be emptied on logout
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	j := &sessionJar{}
	if err := j.reset(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return errors.Wrap(err, "cookie jar")
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

func (c *Client) persist() {
	if c.session == nil {
		return
	}
	if err := c.session.SaveCookies(c.jar.Cookies(c.base)); err != nil {
		c.logger.Warn("persist session", zap.Error(err))
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request. A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encode %s %s", method, path)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String(logging.FieldMethod, method),
			zap.String(logging.FieldPath, path),
			zap.Error(err),
		)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String(logging.FieldMethod, method),
		zap.String(logging.FieldPath, path),
		zap.Int(logging.FieldStatus, resp.StatusCode),
		zap.Duration(logging.FieldDuration, time.Since(start)),
	)
	if len(resp.Header.Values("Set-Cookie")) > 0 {
		c.persist()
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Method: method, Path: path}
		if len(data) > 0 {
			// error bodies are {"message": "..."} but may be anything
			_ = sonic.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}
