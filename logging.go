package skald

import (
	"context"

	"github.com/skald-logger/skald/core"
)

// Re-export core logging functions so callers holding a run context need
// only this package.
func Infof(ctx context.Context, tpl string, args ...any) {
	core.Infof(ctx, tpl, args...)
}

func Errorf(ctx context.Context, tpl string, args ...any) {
	core.Errorf(ctx, tpl, args...)
}

func Debugf(ctx context.Context, tpl string, args ...any) {
	core.Debugf(ctx, tpl, args...)
}

func Warnf(ctx context.Context, tpl string, args ...any) {
	core.Warnf(ctx, tpl, args...)
}
