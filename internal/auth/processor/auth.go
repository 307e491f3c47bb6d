package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"indian-airlines-ivr/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer       = "indian-airlines-ivr"
	RoleOperator = "operator"
)

var (
	ErrAuthNotConfigured = errors.New("operator authentication is not configured")
	ErrInvalidJWTToken   = errors.New("invalid jwt token")
	ErrExpiredToken      = errors.New("jwt token expired")
	ErrParseJWTToken     = errors.New("failed to parse jwt token")
	ErrForbiddenRole     = errors.New("token does not carry the operator role")
	ErrFailedSignToken   = errors.New("failed to sign jwt token")
)

type AuthProcessor struct {
	jwtSecret string
	now       func() time.Time
	logger    *observability.Logger
}

func New(jwtSecret string, logger *observability.Logger) AuthProcessor {
	return AuthProcessor{
		jwtSecret: jwtSecret,
		now:       time.Now,
		logger:    logger,
	}
}

// Enabled reports whether a signing secret is configured.
func (p *AuthProcessor) Enabled() bool {
	return p.jwtSecret != ""
}

// GenerateOperatorToken signs an HS256 token for subject carrying the
// operator role.
func (p *AuthProcessor) GenerateOperatorToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	if !p.Enabled() {
		return "", ErrAuthNotConfigured
	}
	now := p.now()
	claims := BaseClaims{
		ExpirationTime: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:       jwt.NewNumericDate(now),
		Issuer:         issuer,
		Subject:        subject,
		Audience:       jwt.ClaimStrings{issuer},
		Role:           RoleOperator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString([]byte(p.jwtSecret))
	if err != nil {
		p.logger.Error(ctx, "failed to sign token", err)
		return "", fmt.Errorf("%w: %v", ErrFailedSignToken, err)
	}
	return tokenString, nil
}

// ValidateJWTToken parses and verifies token.
func (p *AuthProcessor) ValidateJWTToken(ctx context.Context, token string) (BaseClaims, error) {
	if !p.Enabled() {
		return BaseClaims{}, ErrAuthNotConfigured
	}

	var baseClaims BaseClaims
	t, err := jwt.ParseWithClaims(token, &baseClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.jwtSecret), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger.Warn(ctx, "token expired")
			return BaseClaims{}, ErrExpiredToken
		}
		p.logger.Warn(ctx, "failed to parse token: "+err.Error())
		return BaseClaims{}, ErrParseJWTToken
	}
	if !t.Valid {
		return BaseClaims{}, ErrInvalidJWTToken
	}

	claims, ok := t.Claims.(*BaseClaims)
	if !ok {
		return BaseClaims{}, ErrParseJWTToken
	}
	return *claims, nil
}

// AuthorizeOperator validates token and requires the operator role.
func (p *AuthProcessor) AuthorizeOperator(ctx context.Context, token string) (BaseClaims, error) {
	claims, err := p.ValidateJWTToken(ctx, token)
	if err != nil {
		return BaseClaims{}, err
	}
	if claims.Role != RoleOperator {
		ctx = observability.WithFields(ctx, observability.Field{Key: "subject", Value: claims.Subject})
		p.logger.Warn(ctx, "token without operator role rejected")
		return BaseClaims{}, ErrForbiddenRole
	}
	return claims, nil
}
