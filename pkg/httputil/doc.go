// Package httputil fetches remote resources referenced from mind map nodes.
//
// A [Fetcher] downloads an image by URL, retries transient failures with
// exponential backoff, and keeps the bytes in a [cache.Cache] so repeated
// edits of the same map do not hit the network again:
//
//	f := httputil.NewFetcher(c, httputil.WithTTL(24*time.Hour))
//	img, err := f.FetchImage(ctx, "https://example.com/logo.png")
//
// Status codes are classified the same way for every request:
//
//   - 200 returns the body
//   - 404 and 410 fail with a NOT_FOUND error
//   - 408, 429 and 5xx are retried
//   - anything else fails with INVALID_INPUT
//
// Network errors are retried as well. [Retry] is usable on its own for any
// call that marks transient failures with [RetryableError].
package httputil
