package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalResolver carrega o usuário local a partir do sub do token do Clerk.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, clerkID string) (*usecase.Principal, error)
}

// clerkClaims é o recorte do session token do Clerk que interessa aqui.
type clerkClaims struct {
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

type ClerkAuth struct {
	key      *rsa.PublicKey
	resolver PrincipalResolver
	parser   *jwt.Parser
}

// NewClerkAuth recebe a chave pública PEM do Clerk (CLERK_JWT_KEY).
func NewClerkAuth(pemKey string, resolver PrincipalResolver) (*ClerkAuth, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.ReplaceAll(pemKey, `\n`, "\n")))
	if err != nil {
		return nil, fmt.Errorf("CLERK_JWT_KEY inválida: %w", err)
	}
	return &ClerkAuth{
		key:      key,
		resolver: resolver,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}, nil
}

func (a *ClerkAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "token ausente")
			return
		}

		var claims clerkClaims
		_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return a.key, nil
		})
		if err != nil || claims.Subject == "" {
			unauthorized(w, "token inválido")
			return
		}

		principal, err := a.resolver.ResolvePrincipal(r.Context(), claims.Subject)
		if err != nil {
			if !errors.Is(err, usecase.ErrInactiveUser) {
				log.Printf("⚠️ Auth: usuário %s não resolvido: %v", claims.Subject, err)
			}
			unauthorized(w, "usuário não autorizado")
			return
		}
		principal.ClerkID = claims.Subject

		// token emitido para outra organização não vale aqui
		if claims.OrgID != "" && claims.OrgID != principal.OrganizationID {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": usecase.CodeForbidden, "message": "organização não corresponde ao usuário"})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "UNAUTHORIZED", "message": msg})
}

func WithPrincipal(ctx context.Context, p usecase.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (usecase.Principal, bool) {
	p, ok := ctx.Value(principalKey).(usecase.Principal)
	return p, ok
}
