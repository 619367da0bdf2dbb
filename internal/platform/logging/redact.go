package logging

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/m-mizutani/masq"
)

// Common regex patterns for sensitive data.
var (
	// JWT pattern: three base64 segments separated by dots
	jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

	// Bearer token pattern
	bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)
)

// DefaultRedactOptions returns the default masq options for secret redaction.
//
// To add project-specific redaction, combine with additional options:
//
//	replace := logging.NewReplaceAttr(masq.WithFieldName("MySecretField"))
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("password"),
		masq.WithFieldName("secret"),
		masq.WithFieldName("token"),
		masq.WithFieldName("accessToken"),
		masq.WithFieldName("access_token"),
		masq.WithFieldName("apiKey"),
		masq.WithFieldName("api_key"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("auth"),
		masq.WithFieldName("cookie"),
		masq.WithFieldName("Cookie"),
		masq.WithFieldName("set-cookie"),
		masq.WithFieldName("cookie_secret"),
		masq.WithFieldName("CookieSecret"),

		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),

		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
	}
}

// NewReplaceAttr creates a ReplaceAttr function for slog.HandlerOptions
// that redacts sensitive data on top of DefaultRedactOptions.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	allOpts := append(DefaultRedactOptions(), opts...)
	return masq.New(allOpts...)
}

// redactHandler applies a ReplaceAttr function in front of a handler that
// has no such hook of its own.
type redactHandler struct {
	next    slog.Handler
	replace func([]string, slog.Attr) slog.Attr
	groups  []string
}

func newRedactHandler(next slog.Handler, replace func([]string, slog.Attr) slog.Attr) *redactHandler {
	return &redactHandler{next: next, replace: replace}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.replace(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, redacted)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.replace(h.groups, a)
	}

	return &redactHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{
		next:    h.next.WithGroup(name),
		replace: h.replace,
		groups:  append(slices.Clone(h.groups), name),
	}
}
