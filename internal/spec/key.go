package spec

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AnswerKey is the instructor's per-question metadata, matched positionally
// against the statements in the solution script.
type AnswerKey struct {
	Questions []Item `yaml:"questions"`
}

// LoadAnswerKey reads the YAML answer key at path. A missing file is not an
// error; every question then grades with defaults.
func LoadAnswerKey(path string) (AnswerKey, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return AnswerKey{}, nil
	}
	if err != nil {
		return AnswerKey{}, errors.Wrapf(err, "read answer key %s", path)
	}
	var key AnswerKey
	if err := yaml.Unmarshal(data, &key); err != nil {
		return AnswerKey{}, errors.Wrapf(err, "parse answer key %s", path)
	}
	return key, nil
}
