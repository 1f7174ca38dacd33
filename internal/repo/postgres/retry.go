package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// withRetry reruns a read with bounded exponential backoff when the
// failure is a transport-level one that carries no meaning about the
// request itself. Validation and not-found errors pass through untouched.
func withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if pgconn.SafeToRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
