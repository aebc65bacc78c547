package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	keysDomain "github.com/allisson/identity/internal/keys/domain"
	keysService "github.com/allisson/identity/internal/keys/service"
	"github.com/allisson/identity/internal/verifier"
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*keysDomain.TokenClaims, error)
}

// RunIssueToken signs an access token for subject without touching the user store.
// It is meant for service accounts and local testing of downstream verifiers.
func RunIssueToken(
	issuer keysService.Issuer,
	logger *slog.Logger,
	writer io.Writer,
	subject, email, roles, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	roleList := splitRoles(roles)
	token, err := issuer.Issue(subject, strings.TrimSpace(email), roleList)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("access token issued",
		slog.String("sub", subject),
		slog.Any("roles", roleList),
	)

	if format == formatJSON {
		return writeJSON(writer, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"expires_in":   int64(issuer.TTL() / time.Second),
		})
	}

	_, _ = fmt.Fprintln(writer, token)
	return nil
}

// RunVerifyToken verifies token and prints its claims. An invalid token is returned as an error.
func RunVerifyToken(
	ctx context.Context,
	tokenVerifier TokenVerifier,
	writer io.Writer,
	token, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	claims, err := tokenVerifier.Verify(ctx, strings.TrimSpace(token))
	if err != nil {
		return err
	}

	if format == formatJSON {
		return writeJSON(writer, map[string]any{
			"sub":        claims.Subject,
			"email":      claims.Email,
			"roles":      claims.Roles,
			"issued_at":  claims.IssuedAt,
			"expires_at": claims.ExpiresAt,
		})
	}

	_, _ = fmt.Fprintln(writer, "Token is valid")
	_, _ = fmt.Fprintf(writer, "Subject: %s\n", claims.Subject)
	_, _ = fmt.Fprintf(writer, "Email: %s\n", claims.Email)
	_, _ = fmt.Fprintf(writer, "Roles: %s\n", strings.Join(claims.Roles, ","))
	_, _ = fmt.Fprintf(writer, "Issued at: %s\n", claims.IssuedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(writer, "Expires at: %s\n", claims.ExpiresAt.Format(time.RFC3339))
	return nil
}

// NewTokenVerifier picks the JWKS source for verify-token: a remote URL, a file, or the
// local key directory through localJWKS, in that order.
func NewTokenVerifier(
	ctx context.Context,
	jwksURL, jwksFile string,
	localJWKS func(ctx context.Context) ([]byte, error),
) (*verifier.Verifier, error) {
	switch {
	case jwksURL != "":
		return verifier.NewJWKSVerifier(ctx, verifier.Config{JWKSURL: jwksURL})
	case jwksFile != "":
		data, err := os.ReadFile(jwksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read jwks file: %w", err)
		}
		return verifier.NewStaticVerifier(data)
	default:
		data, err := localJWKS(ctx)
		if err != nil {
			return nil, err
		}
		return verifier.NewStaticVerifier(data)
	}
}
