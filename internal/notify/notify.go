// Package notify delivers session notices to browsers, other consoles and the
// device. Every sink is best-effort.
package notify

import (
	"context"
	"errors"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

type Publisher interface {
	Publish(ctx context.Context, notice model.Notice) error
}

// Func adapts a plain function to Publisher.
type Func func(ctx context.Context, notice model.Notice) error

func (f Func) Publish(ctx context.Context, n model.Notice) error { return f(ctx, n) }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, n model.Notice) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
