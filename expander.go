package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

var reAnyScheme = regexp.MustCompile(`^(?:http|ftp)s?://`)

// errRedirectLimit is returned from CheckRedirect and mapped to
// ErrTooManyRedirects once the client gives up.
var errRedirectLimit = errors.New("redirect limit reached")

// expandURL follows the redirect chain of short and returns the final URL.
// The final response body is never read.
func expandURL(ctx context.Context, short string, timeout time.Duration, limit int) (string, error) {
	if !reAnyScheme.MatchString(short) {
		short = "http://" + short
	}

	hops := 0
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return errRedirectLimit
			}
			hops = len(via)
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, short, nil)
	if err != nil {
		return "", &UpstreamRequestError{Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	log.Printf("[SafeLink-Expander] Attempting to expand URL: %s", short)
	resp, err := client.Do(req)
	if err != nil {
		return "", classifyExpandError(err)
	}
	resp.Body.Close()

	finalURL := resp.Request.URL.String()
	log.Printf("[SafeLink-Expander] Status: %d, Final URL: %s, Redirects: %d", resp.StatusCode, finalURL, hops)

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &UpstreamStatusError{Code: resp.StatusCode}
	}

	if stripScheme(short) == stripScheme(finalURL) && hops == 0 {
		return "", ErrNotExpanded
	}
	return finalURL, nil
}

func stripScheme(u string) string {
	return strings.Trim(reAnyScheme.ReplaceAllString(u, ""), "/")
}

func classifyExpandError(err error) error {
	if errors.Is(err, errRedirectLimit) {
		return ErrTooManyRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrUpstreamTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ErrUpstreamConnect
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &UpstreamRequestError{Err: urlErr.Err}
	}
	return &UpstreamRequestError{Err: err}
}

func currentExpandSettings() (time.Duration, int) {
	return time.Duration(atomic.LoadInt64(&expandTimeout)), int(atomic.LoadInt64(&maxRedirects))
}
