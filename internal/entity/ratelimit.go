package entity

import (
	"context"
	"time"
)

type RateLimitHit struct {
	Identifier string
	Action     string
	CreatedAt  time.Time
}

type RateLimitRepositoryInterface interface {
	// CountSince conta os hits em [since, until] e devolve o mais antigo deles.
	CountSince(ctx context.Context, identifier, action string, since, until time.Time) (int, time.Time, error)
	Insert(ctx context.Context, hit RateLimitHit) error
}
