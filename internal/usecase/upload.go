package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
	"github.com/Gradiiai/gradii-sub007/pkg/security"
	"github.com/Gradiiai/gradii-sub007/pkg/security/antivirus"
)

// UploadChecks runs every upload through rate limiting, type checks and a malware scan.
type UploadChecks struct {
	Scanner antivirus.Scanner
	Guard   domain.UploadGuard
	Audit   domain.AuditLogger
	Metrics *metrics.Metrics
}

func (p UploadChecks) check(ctx context.Context, kind string, policy security.FilePolicy, rateKey string, upload domain.FileUpload) (security.FileInfo, error) {
	if p.Guard != nil {
		ok, retry, err := p.Guard.Allow(ctx, rateKey)
		if err != nil {
			warnOnErr(ctx, err, "upload rate limit unavailable", zap.String("key", rateKey))
		} else if !ok {
			p.reject(ctx, kind, upload, "rate_limited")
			return security.FileInfo{}, apperror.TooManyRequests(
				fmt.Sprintf("Too many uploads, retry in %d seconds", int(retry.Seconds())))
		}
	}

	info, err := policy.Validate(upload.Filename, upload.Data)
	if err != nil {
		reason := "invalid_type"
		if errors.Is(err, security.ErrFileTooLarge) {
			reason = "too_large"
		} else if errors.Is(err, security.ErrFileEmpty) {
			reason = "empty"
		}
		p.reject(ctx, kind, upload, reason)
		return security.FileInfo{}, apperror.BadRequest(err.Error())
	}

	scanner := p.Scanner
	if scanner == nil {
		scanner = antivirus.NoOpScanner{}
	}
	result, err := scanner.Scan(ctx, upload.Filename, upload.Data)
	if err != nil {
		return security.FileInfo{}, apperror.Unavailable("File scanning is unavailable, try again later", err)
	}
	if result.Infected {
		logger.Warn(ctx, "upload rejected by malware scan",
			zap.String("kind", kind), zap.String("threat", result.ThreatName), zap.String("scanner", result.Scanner))
		p.reject(ctx, kind, upload, "malware")
		return security.FileInfo{}, apperror.BadRequest("File rejected by malware scan")
	}
	return info, nil
}

func (p UploadChecks) reject(ctx context.Context, kind string, upload domain.FileUpload, reason string) {
	p.Metrics.UploadRejected(ctx, kind, reason)
	if p.Audit != nil {
		p.Audit.Log(ctx, domain.AuditEvent{
			Type: domain.AuditUploadRejected, SubjectType: "ip", SubjectValue: upload.ClientIP, IP: upload.ClientIP,
			Details: map[string]any{"kind": kind, "reason": reason, "filename": upload.Filename, "size": len(upload.Data)},
		})
	}
}
