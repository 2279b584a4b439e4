package runner

import "sqlgrade/internal/util"

const queryDisplayLimit = 150

// PrintResults logs a per-question breakdown and the final score banner.
func PrintResults(res RunResult) {
	util.Infof("======================================================================")
	util.Infof("TEST RESULTS")
	util.Infof("======================================================================")

	if res.Error != "" {
		util.Errorf("ERROR: %s", res.Error)
		return
	}

	for _, r := range res.TestResults {
		var indicator, status string
		switch r.Status {
		case StatusPass:
			indicator, status = util.Green("✓"), util.Green(string(r.Status))
		case StatusFail:
			indicator, status = util.Red("✗"), util.Red(string(r.Status))
		case StatusError, StatusWarning:
			indicator, status = util.Yellow("⚠"), util.Yellow(string(r.Status))
		default:
			indicator, status = "?", string(r.Status)
		}

		util.Infof("%s %s: %s (%g/%g points)", indicator, r.Test, status, r.Score, r.MaxScore)
		if r.StudentQuery != "" {
			util.Infof("   Query: %s", truncate(r.StudentQuery, queryDisplayLimit))
		}
		util.Infof("   %s", r.Message)
		for _, failure := range r.Failures {
			util.Infof("     - %s", failure)
		}
	}

	util.Infof("======================================================================")
	util.Infof("FINAL SCORE: %g/%g (%.2f%%)", res.TotalScore, res.MaxScore, res.Percentage)
	util.Infof("======================================================================")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
