package reporting

import (
	"fmt"

	"github.com/backlot-app/backlot/internal/database"
)

// FileTypeTally is a per-type count and size rollup.
type FileTypeTally struct {
	Count     int    `json:"count"`
	TotalSize int64  `json:"total_size"`
	Formatted string `json:"total_size_formatted"`
}

// FileSummary rolls up a project's stored files.
type FileSummary struct {
	TotalCount     int                      `json:"total_count"`
	TotalSize      int64                    `json:"total_size"`
	TotalFormatted string                   `json:"total_size_formatted"`
	ByType         map[string]FileTypeTally `json:"by_type"`
}

// SummarizeFiles tallies count and size per file type. Every known type
// appears in the result, possibly zero.
func SummarizeFiles(files []database.ProjectFile) FileSummary {
	byType := make(map[string]FileTypeTally, len(database.FileTypes))
	for _, t := range database.FileTypes {
		byType[t] = FileTypeTally{Formatted: FormatFileSize(0)}
	}

	summary := FileSummary{ByType: byType}
	for _, f := range files {
		summary.TotalCount++
		summary.TotalSize += f.FileSize

		t := f.FileType
		if _, ok := byType[t]; !ok {
			t = database.FileTypeOther
		}
		tally := byType[t]
		tally.Count++
		tally.TotalSize += f.FileSize
		tally.Formatted = FormatFileSize(tally.TotalSize)
		byType[t] = tally
	}
	summary.TotalFormatted = FormatFileSize(summary.TotalSize)
	return summary
}

// FormatFileSize renders a byte count with fixed 1024-based units.
func FormatFileSize(size int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
