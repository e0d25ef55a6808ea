package batch

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stitcher/internal/services"
)

// Entry is one parsed batch list line: a title locator, optionally paired
// with a scene number.
type Entry struct {
	Locator string
	Scene   int
}

// ParseList reads a batch list. One entry per line, either "locator" or
// "locator|scene". Blank lines and lines starting with # are skipped.
func ParseList(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := Entry{Locator: line}
		if locator, sceneText, found := strings.Cut(line, "|"); found {
			scene, err := strconv.Atoi(strings.TrimSpace(sceneText))
			if err != nil || scene < 1 {
				return nil, services.Wrap(services.ErrConfiguration, "batch", "parse",
					fmt.Sprintf("line %d: bad scene number %q", lineNo, strings.TrimSpace(sceneText)), nil)
			}
			entry.Locator = strings.TrimSpace(locator)
			entry.Scene = scene
		}
		if entry.Locator == "" {
			return nil, services.Wrap(services.ErrConfiguration, "batch", "parse",
				fmt.Sprintf("line %d: missing locator", lineNo), nil)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "parse", "reading batch list", err)
	}
	return entries, nil
}
