/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// loadWordList reads one word per line. Blank lines and lines starting with
// '#' are skipped. An empty path yields the built-in list.
func loadWordList(cfg *Config, path string) ([]string, error) {
	if path == "" {
		return dedupeWords(defaultWords), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	var size int64

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		size += int64(len(line)) + 1
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	words := dedupeWords(lines)
	if len(words) == 0 {
		return nil, errors.New("word list contains no words: " + path)
	}

	logf(cfg, "START: Loaded %d words (%s) from %s", len(words), humanReadableSize(size), path)

	return words, nil
}
