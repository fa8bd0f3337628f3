package director

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WriteStory writes a story to a YAML file
func WriteStory(story *Story, path string) error {
	data, err := yaml.Marshal(story)
	if err != nil {
		return errors.Wrap(err, "failed to encode story")
	}

	return errors.Wrapf(os.WriteFile(path, data, 0644), "failed to write story %s", path)
}

// ReadStory reads a story from a YAML file
func ReadStory(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read story %s", path)
	}

	var story Story
	if err := yaml.Unmarshal(data, &story); err != nil {
		return nil, errors.Wrapf(err, "failed to parse story %s", path)
	}

	return &story, nil
}
