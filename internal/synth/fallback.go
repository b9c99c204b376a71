package synth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/logging"
)

// stage is one link in an ordered fallback chain. A stage either
// satisfies the request or yields to the next one.
type stage[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

var errAllStagesFailed = errors.New("all fallback stages failed")

// firstSuccess tries stages in order and stops at the first success,
// reporting which stage satisfied the request. The final stage in
// every chain is deterministic and cannot fail, so callers only see an
// error when a chain is misconfigured.
func firstSuccess[T any](ctx context.Context, log *logging.Logger, stages []stage[T]) (T, string, error) {
	var zero T
	var lastErr error

	for _, s := range stages {
		result, err := s.run(ctx)
		if err == nil {
			log.Debug("fallback stage satisfied request", zap.String("stage", s.name))
			return result, s.name, nil
		}
		lastErr = err
		log.Warn("fallback stage failed, trying next",
			zap.String("stage", s.name),
			zap.Error(err))
	}

	if lastErr != nil {
		return zero, "", lastErr
	}
	return zero, "", errAllStagesFailed
}
