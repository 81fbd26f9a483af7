package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

const (
	mimeTypeGoogleDoc = "application/vnd.google-apps.document"
	mimeTypeFolder    = "application/vnd.google-apps.folder"

	exportMimeText = "text/plain"

	// maxFileSize bounds reads of both exports and downloads.
	maxFileSize = 5 * 1024 * 1024
)

// Loader pulls documents from one Google Drive folder using a service
// account. Google Docs are exported to plain text, text files are
// downloaded, everything else is skipped per file.
type Loader struct {
	credentialsPath string
	folderID        string
	log             *slog.Logger

	// set by tests to avoid the real API
	newService func(ctx context.Context) (*drive.Service, error)
}

func New(credentialsPath, folderID string, log *slog.Logger) *Loader {
	l := &Loader{
		credentialsPath: credentialsPath,
		folderID:        folderID,
		log:             log,
	}
	l.newService = l.serviceFromCredentials
	return l
}

func (l *Loader) Name() string {
	return "gdrive:" + l.folderID
}

func (l *Loader) serviceFromCredentials(ctx context.Context) (*drive.Service, error) {
	if _, err := os.Stat(l.credentialsPath); err != nil {
		return nil, fmt.Errorf("drive credentials unavailable: %w", err)
	}
	return drive.NewService(ctx,
		option.WithCredentialsFile(l.credentialsPath),
		option.WithScopes(drive.DriveReadonlyScope),
	)
}

func (l *Loader) Load(ctx context.Context) (domain.LoadResult, error) {
	svc, err := l.newService(ctx)
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("create drive service: %w", err)
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", l.folderID)
	var result domain.LoadResult
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return result, fmt.Errorf("list drive folder: %w", err)
		}

		for _, file := range page.Files {
			if file.MimeType == mimeTypeFolder {
				continue
			}
			content, err := l.fetchContent(ctx, svc, file)
			if err != nil {
				l.log.Warn("file_skipped", "file_id", file.Id, "name", file.Name, "error", err)
				result.SkippedFiles++
				continue
			}
			if strings.TrimSpace(content) == "" {
				continue
			}
			result.Documents = append(result.Documents, domain.RawDocument{
				Content:      content,
				RemoteFileID: file.Id,
				Title:        file.Name,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return result, nil
}

func (l *Loader) fetchContent(ctx context.Context, svc *drive.Service, file *drive.File) (string, error) {
	if file.MimeType == mimeTypeGoogleDoc {
		resp, err := svc.Files.Export(file.Id, exportMimeText).Context(ctx).Download()
		if err != nil {
			return "", fmt.Errorf("export google doc: %w", err)
		}
		return readBody(resp.Body)
	}

	if !strings.HasPrefix(file.MimeType, "text/") {
		return "", fmt.Errorf("unsupported mime type %q", file.MimeType)
	}
	if file.Size > maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes", file.Size)
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	return readBody(resp.Body)
}

func readBody(body io.ReadCloser) (string, error) {
	defer body.Close()
	raw, err := io.ReadAll(io.LimitReader(body, maxFileSize))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not valid utf-8 text")
	}
	return string(raw), nil
}
