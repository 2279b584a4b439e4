// Command sqlgrade-collect decrypts the reports inside collected
// submission archives and aggregates them into a score sheet.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sqlgrade/internal/config"
	"sqlgrade/internal/crypt"
	"sqlgrade/internal/report"
	"sqlgrade/internal/util"
)

func main() {
	dir := flag.String("dir", ".", "directory holding submission zips")
	keyPath := flag.String("key", config.DefaultKeyFile, "path to grading key")
	csvPath := flag.String("out", "scores.csv", "path for the score sheet")
	summaryPath := flag.String("summary", "summary.json", "path for the full decrypted batch")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	key, err := crypt.LoadKey(*keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read grading key: %v\n", err)
		os.Exit(1)
	}

	zips, err := filepath.Glob(filepath.Join(*dir, "*"+config.SubmissionSuffix))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to scan %s: %v\n", *dir, err)
		os.Exit(1)
	}
	if len(zips) == 0 {
		fmt.Fprintf(os.Stderr, "no submissions found in %s\n", *dir)
		os.Exit(1)
	}
	sort.Strings(zips)

	summary := report.Summary{}
	for _, zipPath := range zips {
		payload, err := report.ReadSubmissionReport(zipPath, key)
		if err != nil {
			util.Errorf("skipping %s: %v", zipPath, err)
			summary.Failed++
			continue
		}
		if want := strings.TrimSuffix(filepath.Base(zipPath), config.SubmissionSuffix); payload.StudentID != want {
			util.Warnf("%s: report claims student %s", zipPath, payload.StudentID)
		}
		summary.Reports = append(summary.Reports, payload)
		summary.Collected++
		util.Infof("collected %s: %.1f/%.1f (%.1f%%)", payload.StudentID, payload.TotalScore, payload.MaxScore, payload.Percentage)
	}

	if err := report.WriteScoresCSV(*csvPath, summary.Reports); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write score sheet: %v\n", err)
		os.Exit(1)
	}
	if err := report.WriteSummaryJSON(*summaryPath, summary); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
		os.Exit(1)
	}
	util.Highlightf("collected %d submission(s), %d failed; scores in %s", summary.Collected, summary.Failed, *csvPath)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
