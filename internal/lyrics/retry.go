package lyrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		// a canceled request is final
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// retryAfter honors the server's Retry-After header. Zero leaves the wait to
// resty's exponential backoff.
func retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp == nil {
		return 0, nil
	}
	return parseRetryAfter(resp.Header().Get("Retry-After")), nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func logRetry(resp *resty.Response, err error) {
	attempt := 0
	if resp != nil && resp.Request != nil {
		attempt = resp.Request.Attempt
	}
	if err != nil {
		log.Printf("WARN lyrics: retry after attempt %d: %v", attempt, err)
		return
	}
	log.Printf("WARN lyrics: retry after attempt %d: status %d", attempt, resp.StatusCode())
}
