package location

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, p *Point) (int64, error)
}
