package localdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// Loader reads every supported file under one directory. A file that cannot
// be read or parsed is counted and skipped; only a missing directory fails
// the whole source.
type Loader struct {
	path string
	log  *slog.Logger
}

func New(path string, log *slog.Logger) *Loader {
	return &Loader{path: path, log: log}
}

func (l *Loader) Name() string {
	return "local:" + l.path
}

func (l *Loader) Load(ctx context.Context) (domain.LoadResult, error) {
	entries, err := os.ReadDir(l.path)
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("read corpus directory: %w", err)
	}

	var result domain.LoadResult
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(l.path, entry.Name())
		docs, err := l.loadFile(path)
		if err != nil {
			l.log.Warn("file_skipped", "path", path, "error", err)
			result.SkippedFiles++
			continue
		}
		result.Documents = append(result.Documents, docs...)
	}
	return result, nil
}

func (l *Loader) loadFile(path string) ([]domain.RawDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return loadPlainText(path)
	case ".pdf":
		return loadPDF(path)
	case ".xlsx":
		return loadSpreadsheet(path)
	default:
		return nil, fmt.Errorf("unsupported file type")
	}
}

func loadPlainText(path string) ([]domain.RawDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("not valid utf-8 text")
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []domain.RawDocument{{Content: text, SourcePath: path}}, nil
}

// loadPDF emits one document per page so page numbers survive into the
// chunk metadata.
func loadPDF(path string) ([]domain.RawDocument, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	docs := make([]domain.RawDocument, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.RawDocument{
			Content:    text,
			SourcePath: path,
			Page:       i,
		})
	}
	return docs, nil
}

func loadSpreadsheet(path string) ([]domain.RawDocument, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer workbook.Close()

	var text strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			text.WriteString(line)
			text.WriteString("\n")
		}
	}
	if text.Len() == 0 {
		return nil, nil
	}
	return []domain.RawDocument{{Content: text.String(), SourcePath: path}}, nil
}
