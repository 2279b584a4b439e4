package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"

	"sqlgrade/internal/spec"
	"sqlgrade/internal/util"
)

// Summary aggregates a batch of decrypted reports for the instructor.
type Summary struct {
	Collected int       `json:"collected"`
	Failed    int       `json:"failed"`
	Reports   []Payload `json:"reports"`
}

// WriteScoresCSV writes one row per report with total scores and a column
// per question, questions ordered numerically.
func WriteScoresCSV(path string, reports []Payload) error {
	keys := questionColumns(reports)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer util.CloseWithErr(f, path)

	w := csv.NewWriter(f)
	header := append([]string{"student_id", "submission_id", "timestamp", "total_score", "max_score", "percentage"}, keys...)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, p := range reports {
		row := []string{
			p.StudentID,
			p.SubmissionID,
			p.Timestamp,
			formatScore(p.TotalScore),
			formatScore(p.MaxScore),
			fmt.Sprintf("%.1f", p.Percentage),
		}
		for _, k := range keys {
			if q, ok := p.Questions[k]; ok {
				row = append(row, formatScore(q.Score))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// WriteSummaryJSON writes the full decrypted batch alongside the CSV.
func WriteSummaryJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func questionColumns(reports []Payload) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, p := range reports {
		for k := range p.Questions {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return spec.SortKeyNumeric(keys[i]) < spec.SortKeyNumeric(keys[j])
	})
	return keys
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
