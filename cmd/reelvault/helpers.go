package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiBlue  = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderHealthLine(label string, ready bool, detail string, colorize bool) string {
	marker := "ok"
	if !ready {
		marker = "down"
	}
	if colorize {
		if ready {
			marker = ansiGreen + marker + ansiReset
		} else {
			marker = ansiRed + marker + ansiReset
		}
	}
	line := fmt.Sprintf("  %-15s %s", label, marker)
	if strings.TrimSpace(detail) != "" {
		line += "  " + detail
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := title
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// formatExtent renders the item size column: a duration for videos, an
// image count for slideshows.
func formatExtent(contentType string, durationSeconds float64, imageCount int) string {
	switch contentType {
	case "video":
		d := time.Duration(durationSeconds * float64(time.Second)).Round(time.Second)
		return d.String()
	case "images":
		return strconv.Itoa(imageCount) + " imgs"
	default:
		return ""
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
