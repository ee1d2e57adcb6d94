package metadata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	wikilinkPattern  = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	hyperlinkPattern = regexp.MustCompile(`https?://[^\s)\]]+`)
)

// ScanDirectory reads every markdown file directly under dir and produces
// the record set the graph builder consumes. Wikilink references become
// topic co-occurrence counts keyed by the target name; empty files are
// skipped like the original corpus loader did.
func ScanDirectory(dir string) (map[string]Record, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob markdown files: %w", err)
	}

	records := make(map[string]Record, len(matches))
	for _, path := range matches {
		rec, ok, err := scanFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable markdown file", "path", path, "error", err)
			continue
		}
		if !ok {
			continue
		}
		records[rec.FileName] = rec
	}

	slog.Info("Markdown scan complete", "dir", dir, "files", len(matches), "records", len(records))
	return records, nil
}

func scanFile(path string) (Record, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, false, err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Record{}, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Record{}, false, err
	}

	topicCounts := make(map[string]int)
	for _, match := range wikilinkPattern.FindAllStringSubmatch(string(content), -1) {
		target := strings.TrimSpace(match[1])
		// Aliased links take the form [[Target|shown text]]
		if idx := strings.Index(target, "|"); idx >= 0 {
			target = strings.TrimSpace(target[:idx])
		}
		if target == "" {
			continue
		}
		topicCounts[target]++
	}

	sum := sha1.Sum(content)

	rec := Record{
		FileName:       filepath.Base(path),
		FileSize:       info.Size(),
		NodeSize:       nodeSizeMetric(info.Size()),
		HyperlinkCount: len(hyperlinkPattern.FindAllString(string(content), -1)),
		SHA1:           hex.EncodeToString(sum[:]),
		LastModified:   info.ModTime().UTC(),
		TopicCounts:    topicCounts,
	}
	return rec, true, nil
}

// nodeSizeMetric maps a byte size to a render-size hint on a log scale.
func nodeSizeMetric(size int64) float64 {
	if size <= 0 {
		return 1
	}
	return 1 + math.Log10(float64(size)+1)
}
