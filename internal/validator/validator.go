// Package validator checks that a URL answers before it is shortened.
package validator

import (
	"context"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// URLValidator probes URLs with a HEAD request.
type URLValidator struct {
	client  *req.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewURLValidator(timeout time.Duration, logger *zap.Logger) *URLValidator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &URLValidator{
		client:  req.C().SetTimeout(timeout).SetUserAgent("kv-url-shortener"),
		timeout: timeout,
		logger:  logger,
	}
}

// Probe reports whether rawURL answered a HEAD request with a 2xx status
// within the timeout. Redirects are followed. Any failure yields false.
func (v *URLValidator) Probe(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.client.R().SetContext(ctx).Head(rawURL)
	if err != nil {
		v.logger.Info("url probe failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	code := resp.GetStatusCode()
	if code < 200 || code > 299 {
		v.logger.Info("url probe rejected", zap.String("url", rawURL), zap.Int("status", code))
		return false
	}
	return true
}
