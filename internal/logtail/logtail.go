// Package logtail reads the end of the log file for the chat "log" command.
package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLen is Discord's per-message character limit.
	MaxMessageLen = 2000
	// DefaultLines is how many lines "log" returns without an argument.
	DefaultLines = 10

	maxLineBytes = 1 << 20
)

var (
	// ErrTooLong is returned when the rendered block would not fit a message.
	ErrTooLong = errors.New("log output too long, request fewer lines")
	// ErrInvalidLineCount is returned for a line count below one.
	ErrInvalidLineCount = errors.New("line count must be a positive integer")
)

// Tail returns the last n lines of the file at path, oldest first.
func Tail(path string, n int) ([]string, error) {
	if n < 1 {
		return nil, ErrInvalidLineCount
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	// The ring grows with the file so n never drives the allocation.
	var ring []string
	next := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[next] = scanner.Text()
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return append(ring[next:], ring[:next]...), nil
}

// Render wraps lines in a code block and checks it fits within limit
// characters.
func Render(lines []string, limit int) (string, error) {
	var b strings.Builder
	b.WriteString("```\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("```")
	out := b.String()
	if limit > 0 && utf8.RuneCountInString(out) > limit {
		return "", ErrTooLong
	}
	return out, nil
}

// Block tails path and renders the result for a single chat message. Every
// line costs at least its newline, so more than MaxMessageLen lines can
// never fit and is rejected without reading the file.
func Block(path string, n int) (string, error) {
	if n > MaxMessageLen {
		return "", ErrTooLong
	}
	lines, err := Tail(path, n)
	if err != nil {
		return "", err
	}
	return Render(lines, MaxMessageLen)
}
