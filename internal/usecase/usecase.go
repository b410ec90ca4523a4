package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

// companyPrincipal returns the caller, requiring a company-scoped account.
func companyPrincipal(ctx context.Context) (*domain.Principal, error) {
	p, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	if p.CompanyID == uuid.Nil {
		return nil, apperror.Forbidden("A company account is required")
	}
	return p, nil
}

func mustPrincipal(ctx context.Context) (*domain.Principal, error) {
	p, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	return p, nil
}

// notFound turns domain.ErrNotFound into a 404 with msg.
func notFound(err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound(msg)
	}
	return err
}

// stale turns a lost conditional write into a 409.
func stale(err error, msg string) error {
	if errors.Is(err, domain.ErrStale) {
		return apperror.Conflict(msg)
	}
	return err
}

// warnOnErr logs best-effort failures that must not fail the caller.
func warnOnErr(ctx context.Context, err error, msg string, fields ...zap.Field) {
	if err != nil {
		logger.Warn(ctx, msg, append(fields, zap.Error(err))...)
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		slug = "company"
	}
	return slug
}
