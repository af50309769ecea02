package service

import "context"

// Trigger sources, used as the metrics label for created instances.
const (
	SourceCron     = "cron"
	SourceAPI      = "api"
	SourceFallback = "fallback"
	SourceCLI      = "cli"
)

type sourceKey struct{}

// WithSource tags ctx with the trigger that started a materialization.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceAPI
}
