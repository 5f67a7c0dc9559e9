package sale

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, s *Sale) (int64, error)
}
