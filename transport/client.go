// Package transport fetches byte ranges of remote documents over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tsawler/lazypdf/internal/logger"
)

// streamBufferSize is the size of the slices handed to a Stream sink
const streamBufferSize = 64 * 1024

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
	Headers           http.Header
	HTTPClient        *http.Client
	Retrier           RetrierOptions
	Logger            *logger.Logger
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RequestsPerSecond: 20,
		Burst:             10,
	}
}

// Info describes a remote document as reported by the server
type Info struct {
	Length          int64
	AcceptRanges    bool
	ContentEncoding string
	ContentType     string
}

// SupportsRanges reports whether range requests can be used for the
// document. A compressed transfer encoding makes byte offsets meaningless.
func (i Info) SupportsRanges() bool {
	if !i.AcceptRanges || i.Length <= 0 {
		return false
	}
	return i.ContentEncoding == "" || i.ContentEncoding == "identity"
}

// Client fetches one remote document
type Client struct {
	url        string
	httpClient *http.Client
	headers    http.Header
	retrier    *Retrier
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a client for rawURL, which must be an absolute http or
// https URL.
func NewClient(rawURL string, opts ClientOptions) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	defaults := DefaultClientOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.Burst
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	retrierOpts := opts.Retrier
	if retrierOpts == (RetrierOptions{}) {
		retrierOpts = DefaultRetrierOptions()
	}
	retrierOpts.MaxRetries = opts.MaxRetries

	return &Client{
		url:        u.String(),
		httpClient: httpClient,
		headers:    opts.Headers,
		retrier:    NewRetrier(retrierOpts),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		log:        logger.OrNop(opts.Logger).WithComponent("transport"),
	}, nil
}

// URL returns the document URL
func (c *Client) URL() string {
	return c.url
}

func (c *Client) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url, nil)
	if err != nil {
		return nil, NewFetchError(c.url, 0, err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, NewFetchError(c.url, 0, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewFetchError(c.url, 0, err)
	}
	return resp, nil
}

// Probe asks the server for the document length and range support.
func (c *Client) Probe(ctx context.Context) (Info, error) {
	return RetryWithValue(ctx, c.retrier, func() (Info, error) {
		req, err := c.newRequest(ctx, http.MethodHead)
		if err != nil {
			return Info{}, err
		}

		resp, err := c.do(req)
		if err != nil {
			return Info{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Info{}, NewFetchError(c.url, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
		}

		length := resp.ContentLength
		if length < 0 {
			if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
				length = n
			}
		}

		info := Info{
			Length:          length,
			AcceptRanges:    strings.EqualFold(strings.TrimSpace(resp.Header.Get("Accept-Ranges")), "bytes"),
			ContentEncoding: strings.ToLower(resp.Header.Get("Content-Encoding")),
			ContentType:     resp.Header.Get("Content-Type"),
		}

		c.log.Debug().
			Int64("length", info.Length).
			Bool("accept_ranges", info.AcceptRanges).
			Msg("Probed document")

		return info, nil
	})
}

// FetchRange returns the bytes [begin, end) of the document.
func (c *Client) FetchRange(ctx context.Context, begin, end int64) ([]byte, error) {
	if begin < 0 || end <= begin {
		return nil, fmt.Errorf("invalid range [%d, %d)", begin, end)
	}

	return RetryWithValue(ctx, c.retrier, func() ([]byte, error) {
		return c.fetchRange(ctx, begin, end)
	})
}

func (c *Client) fetchRange(ctx context.Context, begin, end int64) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(begin, 10)+"-"+strconv.FormatInt(end-1, 10))

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil, NewFetchError(c.url, resp.StatusCode, ErrRangeNotSupported)
	default:
		return nil, NewFetchError(c.url, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	want := end - begin
	data, err := io.ReadAll(io.LimitReader(resp.Body, want+1))
	if err != nil {
		return nil, NewFetchError(c.url, 0, err)
	}
	if int64(len(data)) != want {
		return nil, NewFetchError(c.url, resp.StatusCode,
			fmt.Errorf("%w: range [%d, %d) returned %d bytes", ErrLengthMismatch, begin, end, len(data)))
	}

	c.log.Trace().
		Int64("begin", begin).
		Int64("end", end).
		Msg("Fetched range")

	return data, nil
}

// Stream downloads the whole document and hands it to sink piece by piece,
// in order. It stops at the first error returned by sink.
func (c *Client) Stream(ctx context.Context, sink func([]byte) error) error {
	req, err := c.newRequest(ctx, http.MethodGet)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return NewFetchError(c.url, 0, err)
	}

	// the body may take far longer than a single request timeout
	streamClient := *c.httpClient
	streamClient.Timeout = 0

	resp, err := streamClient.Do(req)
	if err != nil {
		return NewFetchError(c.url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewFetchError(c.url, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	buf := make([]byte, streamBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if sinkErr := sink(chunk); sinkErr != nil {
				return sinkErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return NewFetchError(c.url, 0, err)
		}
	}
}

// Download returns the whole document.
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	return RetryWithValue(ctx, c.retrier, func() ([]byte, error) {
		req, err := c.newRequest(ctx, http.MethodGet)
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, NewFetchError(c.url, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewFetchError(c.url, 0, err)
		}
		return data, nil
	})
}
