// Package spec defines the persisted grading contract: the per-question
// TestSpec oracle produced at generation time and consumed read-only at
// grading time, bundled into a Suite keyed q1..qN plus one reserved key
// carrying database credentials.
package spec

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sqlgrade/internal/config"
	"sqlgrade/internal/constraint"
	"sqlgrade/internal/crypt"
)

// DBConfigKey is the reserved non-question key inside a serialized suite.
const DBConfigKey = "_db_config"

// FunctionTest is one input vector's oracle for a CREATE FUNCTION answer.
// TestQuery is the human-readable literal rendering shown to students; the
// expected output was captured through bound-parameter execution.
type FunctionTest struct {
	TestQuery      string     `json:"test_query"`
	ExpectedOutput [][]string `json:"expected_output"`
	Error          string     `json:"error,omitempty"`
}

// TestSpec is the persisted oracle for one question. Row data is always
// pre-stringified: the comparator receives string cells on both sides.
type TestSpec struct {
	Query            string  `json:"query,omitempty"`
	QueryType        string  `json:"query_type"`
	Score            float64 `json:"score"`
	constraint.Flags `yaml:",inline"`

	TestQuery        string         `json:"test_query,omitempty"`
	ExpectedOutput   [][]string     `json:"expected_output,omitempty"`
	ValidationQuery  string         `json:"validation_query,omitempty"`
	ValidationOutput [][]string     `json:"validation_output,omitempty"`
	FunctionTests    []FunctionTest `json:"function_tests,omitempty"`

	// AllowedAfter is an optional "HH:MM[:SS]" clock-time gate stamped at
	// generation time; evaluation runs refuse to grade before it.
	AllowedAfter string `json:"allowed_after,omitempty"`

	// ConstraintViolations is set at generation time when the instructor's
	// own query breaks its declared constraints; no oracle exists then.
	ConstraintViolations []string `json:"constraint_violations,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// UnmarshalJSON applies the default score of 1 only when the field is
// absent; an explicit zero weight survives.
func (ts *TestSpec) UnmarshalJSON(data []byte) error {
	type plain TestSpec
	aux := struct {
		Score *float64 `json:"score"`
		*plain
	}{plain: (*plain)(ts)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts.Score = 1
	if aux.Score != nil {
		ts.Score = *aux.Score
	}
	return nil
}

// Item is one instructor answer-key entry, read from YAML.
type Item struct {
	Query            string `yaml:"query"`
	Type             string `yaml:"type"`
	Score            float64
	constraint.Flags `yaml:",inline"`

	// TestInputs entries may be a bare scalar, a list of positional args,
	// or a mapping with an "args" list.
	TestInputs    []any  `yaml:"test_inputs"`
	ValidationSQL string `yaml:"validation_sql"`
	TestQuery     string `yaml:"test_query"`
}

// UnmarshalYAML applies the default score of 1 when the key omits it.
func (it *Item) UnmarshalYAML(value *yaml.Node) error {
	type plain struct {
		Query            string `yaml:"query"`
		Type             string `yaml:"type"`
		Score            *float64
		constraint.Flags `yaml:",inline"`
		TestInputs       []any  `yaml:"test_inputs"`
		ValidationSQL    string `yaml:"validation_sql"`
		TestQuery        string `yaml:"test_query"`
	}
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	it.Query = p.Query
	it.Type = p.Type
	it.Flags = p.Flags
	it.TestInputs = p.TestInputs
	it.ValidationSQL = p.ValidationSQL
	it.TestQuery = p.TestQuery
	it.Score = 1
	if p.Score != nil {
		it.Score = *p.Score
	}
	return nil
}

// Suite is a full generated test set: one TestSpec per question key plus
// the credentials of the database the oracles were captured against.
type Suite struct {
	DBConfig config.DBConfig
	Tests    map[string]*TestSpec
}

var reFirstInt = regexp.MustCompile(`\d+`)

// SortKeyNumeric extracts the first integer run from a key for numeric
// ordering; keys without digits sort first as 0.
func SortKeyNumeric(key string) int {
	m := reFirstInt.FindString(key)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// QuestionKeys returns the question keys in numeric order, skipping
// anything that does not look like a question.
func (s *Suite) QuestionKeys() []string {
	keys := make([]string, 0, len(s.Tests))
	for k := range s.Tests {
		if strings.HasPrefix(k, "q") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return SortKeyNumeric(keys[i]) < SortKeyNumeric(keys[j])
	})
	return keys
}

// AllowedAfter returns the suite's clock-time gate: the first question's
// allowed_after value, or "" when the suite carries none.
func (s *Suite) AllowedAfter() string {
	for _, key := range s.QuestionKeys() {
		if v := s.Tests[key].AllowedAfter; v != "" {
			return v
		}
	}
	return ""
}

// MarshalJSON flattens the suite into a single object with the reserved
// credentials key alongside the question keys.
func (s *Suite) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Tests)+1)
	flat[DBConfigKey] = s.DBConfig
	for k, v := range s.Tests {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the reserved credentials key back out.
func (s *Suite) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	s.Tests = make(map[string]*TestSpec, len(flat))
	for k, raw := range flat {
		if k == DBConfigKey {
			if err := json.Unmarshal(raw, &s.DBConfig); err != nil {
				return errors.Wrap(err, "decode "+DBConfigKey)
			}
			continue
		}
		ts := &TestSpec{}
		if err := json.Unmarshal(raw, ts); err != nil {
			return errors.Wrapf(err, "decode test %s", k)
		}
		s.Tests[k] = ts
	}
	return nil
}

// Encode serializes the suite as indented JSON.
func (s *Suite) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// WriteFile writes the suite as plaintext JSON (practice suites).
func (s *Suite) WriteFile(path string) error {
	data, err := s.Encode()
	if err != nil {
		return errors.Wrap(err, "encode suite")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// WriteEncryptedFile writes the suite encrypted (evaluation suites).
func (s *Suite) WriteEncryptedFile(path string, key []byte) error {
	data, err := s.Encode()
	if err != nil {
		return errors.Wrap(err, "encode suite")
	}
	sealed, err := crypt.Encrypt(data, key)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, sealed, 0o644), "write %s", path)
}

// LoadFile reads a plaintext suite.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read tests %s", path)
	}
	return Parse(data)
}

// LoadEncryptedFile reads and decrypts an evaluation suite. The plaintext
// exists only in memory.
func LoadEncryptedFile(path string, key []byte) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read tests %s", path)
	}
	plain, err := crypt.Decrypt(data, key)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt tests")
	}
	return Parse(plain)
}

// Parse decodes a serialized suite.
func Parse(data []byte) (*Suite, error) {
	s := &Suite{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "parse tests")
	}
	return s, nil
}
