package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	ActionLeadCapture  = "lead.capture"
	ActionChatSend     = "chat.send"
	ActionCampaignSend = "campaign.send"
)

// RateLimitRule é um par (limite, janela) aplicado a uma ação.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

var DefaultRateLimits = map[string]RateLimitRule{
	ActionLeadCapture:  {Limit: 10, Window: time.Minute},
	ActionChatSend:     {Limit: 30, Window: time.Minute},
	ActionCampaignSend: {Limit: 5, Window: time.Hour},
}

type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter é uma janela deslizante apoiada em tabela: conta os hits em [now-window, now]
// e só grava um novo hit quando a chamada é permitida.
type RateLimiter struct {
	Repo  entity.RateLimitRepositoryInterface
	Rules map[string]RateLimitRule
	Now   func() time.Time
}

func NewRateLimiter(repo entity.RateLimitRepositoryInterface) *RateLimiter {
	return &RateLimiter{
		Repo:  repo,
		Rules: DefaultRateLimits,
		Now:   time.Now,
	}
}

func (rl *RateLimiter) Check(ctx context.Context, identifier, action string, limit int, window time.Duration) (RateLimitDecision, error) {
	now := rl.Now()

	count, oldest, err := rl.Repo.CountSince(ctx, identifier, action, now.Add(-window), now)
	if err != nil {
		return RateLimitDecision{}, dbError("failed to read rate limit", err)
	}

	if count >= limit {
		retry := oldest.Add(window).Sub(now)
		// na borda exata da janela o hit mais antigo ainda conta; Retry-After: 0 num 429 não serve
		if retry < time.Second {
			retry = time.Second
		}
		return RateLimitDecision{Allowed: false, RetryAfter: retry}, nil
	}

	if err := rl.Repo.Insert(ctx, entity.RateLimitHit{Identifier: identifier, Action: action, CreatedAt: now}); err != nil {
		return RateLimitDecision{}, dbError("failed to record rate limit hit", err)
	}
	return RateLimitDecision{Allowed: true, Remaining: limit - count - 1}, nil
}

// Enforce aplica a regra configurada para a ação e devolve RATE_LIMITED quando estoura.
func (rl *RateLimiter) Enforce(ctx context.Context, identifier, action string) error {
	rule, ok := rl.Rules[action]
	if !ok {
		return nil
	}
	d, err := rl.Check(ctx, identifier, action, rule.Limit, rule.Window)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &RateLimitError{RetryAfter: d.RetryAfter}
	}
	return nil
}

// RateLimitError leva o RetryAfter para o handler montar o header Retry-After.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("muitas requisições, tente novamente em %ds", int(e.RetryAfter.Seconds()+0.999))
}
