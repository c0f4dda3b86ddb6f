package storage

import (
	"alcyxob/tt-trainer/internal/domain"
	"context"
	"errors"
	"path"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrArchiveDisabled is returned when no bucket is configured.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// ReportArchive stores finished run reports in object storage.
type ReportArchive interface {
	// PutReport uploads the report as JSON under report.ObjectKey.
	PutReport(ctx context.Context, report *domain.RunReport) error

	// PresignedReportURL creates a temporary GET URL for a stored report.
	PresignedReportURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}

// ReportKey is the object key of one export of a session's report.
func ReportKey(sessionID, exportID string) string {
	return path.Join("reports", sessionID, exportID+".json")
}
