// Package drive implements the document source port against the Google
// Drive v3 API. Each applicant submits into one Drive folder under a
// shared parent; folders map to containers and files to items.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	// MaxDownloadSize caps a single document download (20MB).
	MaxDownloadSize = 20 * 1024 * 1024

	listPageSize = 100
)

type Source struct {
	svc     *gdrive.Service
	limiter *RateLimiter
	logger  *slog.Logger
}

// New builds a read-only Drive source from a service account key file.
func New(ctx context.Context, credentialsFile string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gdrive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Source{svc: svc, limiter: NewRateLimiter(), logger: logger}, nil
}

// ListContainers returns the applicant folders directly under parentID.
func (s *Source) ListContainers(ctx context.Context, parentID string) ([]ports.Container, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", parentID, folderMimeType)

	var containers []ports.Container
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, createdTime, modifiedTime)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			s.recordBackoff(err)
			return nil, s.wrapAPIError("drive.list_folders", err)
		}

		for _, f := range page.Files {
			containers = append(containers, ports.Container{
				ID:         f.Id,
				Name:       f.Name,
				CreatedAt:  parseDriveTime(f.CreatedTime),
				ModifiedAt: parseDriveTime(f.ModifiedTime),
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	s.logger.Debug("listed drive folders", "parent_id", parentID, "count", len(containers))
	return containers, nil
}

// ListItems returns the non-folder files inside containerID.
func (s *Source) ListItems(ctx context.Context, containerID string) ([]ports.Item, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", containerID, folderMimeType)

	var items []ports.Item
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			s.recordBackoff(err)
			return nil, s.wrapAPIError("drive.list_files", err)
		}

		for _, f := range page.Files {
			items = append(items, ports.Item{
				ID:       f.Id,
				Name:     f.Name,
				MimeType: f.MimeType,
				Size:     f.Size,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return items, nil
}

// GetContent downloads the file bytes, capped at MaxDownloadSize.
func (s *Source) GetContent(ctx context.Context, itemID string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.svc.Files.Get(itemID).Context(ctx).Download()
	if err != nil {
		s.recordBackoff(err)
		return nil, s.wrapAPIError("drive.download", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("read drive file %s: %w", itemID, err)
	}
	return data, nil
}

func (s *Source) recordBackoff(err error) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		s.limiter.RecordRateLimitError(0)
		s.logger.Warn("drive rate limit hit, backing off")
	}
}

func (s *Source) wrapAPIError(operation string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && isRetryableDriveStatus(apiErr.Code) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func isRetryableDriveStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func parseDriveTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
