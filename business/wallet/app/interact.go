package app

import (
	"context"
	"fmt"

	"github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
)

// normalize is swapped in tests.
var normalize = Normalize

// Updater applies reducers to the connection state.
type Updater interface {
	Update(ctx context.Context, fn domain.Reducer) (domain.State, error)
}

// Interact runs op with the busy flag raised. The flag is set before op
// starts and cleared after it settles on every path, including a panic in
// op or in error normalization.
func Interact[R any](ctx context.Context, u Updater, op func(context.Context) (R, error)) (result R, err error) {
	if _, err = u.Update(ctx, domain.SetInteracting(true)); err != nil {
		return result, err
	}

	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = apperror.New(apperror.CodeInternalError,
				apperror.WithContext(fmt.Sprintf("interaction panicked: %v", r)))
		}
		_, _ = u.Update(context.WithoutCancel(ctx), domain.SetInteracting(false))
	}()

	result, err = op(ctx)
	if err != nil {
		err = normalize(err)
	}
	return result, err
}

// Wrap decorates op so every call goes through Interact.
func Wrap[A, R any](u Updater, op func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		return Interact(ctx, u, func(ctx context.Context) (R, error) {
			return op(ctx, arg)
		})
	}
}
