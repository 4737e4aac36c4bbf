package lock

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var _ MintLocker = (*FallbackMintLocker)(nil)

// FallbackMintLocker takes locks from primary and, when primary itself is
// unreachable, from an in-process locker instead. Instances that fall back
// only serialise among their own requests until primary recovers.
type FallbackMintLocker struct {
	primary MintLocker
	local   *LocalMintLocker
	logger  *zap.Logger
}

// WithLocalFallback wraps primary.
func WithLocalFallback(primary MintLocker, logger *zap.Logger) *FallbackMintLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackMintLocker{primary: primary, local: NewLocalMintLocker(), logger: logger}
}

// Acquire returns the caller's context error and ErrEmptyKey unchanged; any
// other primary failure is served by the in-process locker.
func (l *FallbackMintLocker) Acquire(ctx context.Context, mint string) (Handle, error) {
	handle, err := l.primary.Acquire(ctx, mint)
	if err == nil {
		return handle, nil
	}
	if ctx.Err() != nil || errors.Is(err, ErrEmptyKey) {
		return nil, err
	}
	l.logger.Warn("mint lock backend unavailable; using in-process lock",
		zap.String("mint", mint), zap.Error(err))
	return l.local.Acquire(ctx, mint)
}
