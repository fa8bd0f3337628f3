package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StoriesDir is where stories are looked up when no path is given
var StoriesDir = filepath.Join("input", "stories")

// GenerateStoryPath creates a timestamped story filename in dir
func GenerateStoryPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("story_%s.yaml", timestamp))
}

// FindLatestStory finds the most recently modified story file in dir
func FindLatestStory(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read stories directory")
	}

	var stories []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !entry.IsDir() && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			stories = append(stories, filepath.Join(dir, entry.Name()))
		}
	}

	if len(stories) == 0 {
		return "", errors.Errorf("no story files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(stories, func(i, j int) bool {
		infoI, _ := os.Stat(stories[i])
		infoJ, _ := os.Stat(stories[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return stories[0], nil
}
