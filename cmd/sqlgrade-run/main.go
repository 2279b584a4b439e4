// Command sqlgrade-run grades a student solution script. Without flags it
// runs the plaintext practice suite and prints feedback. With -zip it runs
// the encrypted evaluation suite and packs the solution plus an encrypted
// report into a submission archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sqlgrade/internal/config"
	"sqlgrade/internal/crypt"
	"sqlgrade/internal/report"
	"sqlgrade/internal/runinfo"
	"sqlgrade/internal/runner"
	"sqlgrade/internal/spec"
	"sqlgrade/internal/uploader"
	"sqlgrade/internal/util"
)

func main() {
	solutionPath := flag.String("solution", config.SolutionFile, "path to student solution script")
	testsPath := flag.String("tests", "", "path to test suite (defaults by mode)")
	keyPath := flag.String("key", config.DefaultKeyFile, "path to grading key")
	configPath := flag.String("config", "config.yaml", "path to config file (used for uploads)")
	studentID := flag.String("zip", "", "student ID; runs the evaluation suite and builds a submission zip")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *studentID == "" {
		runPractice(*solutionPath, *testsPath)
		return
	}
	runEvaluation(*solutionPath, *testsPath, *keyPath, *configPath, *studentID)
}

func runPractice(solutionPath, testsPath string) {
	if testsPath == "" {
		testsPath = config.SampleTestsFile
	}
	suite, err := spec.LoadFile(testsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load tests: %v\n", err)
		os.Exit(1)
	}
	res := runner.Grade(context.Background(), suite, solutionPath)
	runner.PrintResults(res)
	os.Exit(exitCode(res))
}

func runEvaluation(solutionPath, testsPath, keyPath, configPath, studentID string) {
	studentID = strings.ToLower(strings.TrimSpace(studentID))
	if !report.ValidStudentID(studentID) {
		fmt.Fprintf(os.Stderr, "invalid student ID %q\n", studentID)
		os.Exit(1)
	}
	if testsPath == "" {
		testsPath = config.EvalTestsFile
	}
	key, err := crypt.LoadKey(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read grading key: %v\n", err)
		os.Exit(1)
	}
	suite, err := spec.LoadEncryptedFile(testsPath, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load tests: %v\n", err)
		os.Exit(1)
	}

	// The exam's time gate applies only to evaluation runs.
	if open, msg := runner.GateOpenAt(suite.AllowedAfter(), time.Now()); !open {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}

	res := runner.Grade(context.Background(), suite, solutionPath)
	runner.PrintResults(res)

	// The submission archive is written even for a failed run so the
	// instructor still collects a report.
	payload := report.NewPayload(studentID, res, runinfo.FromEnv())
	reportPath := studentID + config.ResultsSuffix
	if err := report.WriteEncrypted(reportPath, payload, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
		os.Exit(1)
	}
	zipPath := studentID + config.SubmissionSuffix
	if err := report.WriteSubmissionZip(zipPath, solutionPath, reportPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build submission: %v\n", err)
		os.Exit(1)
	}
	util.Highlightf("submission ready: %s", zipPath)

	upload(configPath, zipPath)
	os.Exit(exitCode(res))
}

// exitCode mirrors the grading contract: nonzero on a fatal run error or
// any lost points, zero only on a perfect score.
func exitCode(res runner.RunResult) int {
	if res.Error != "" || res.TotalScore < res.MaxScore {
		return 1
	}
	return 0
}

// upload ships the archive when the config file exists and enables a
// storage backend. Upload failures do not invalidate the local archive.
func upload(configPath, zipPath string) {
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		util.Warnf("skipping upload, config unreadable: %v", err)
		return
	}
	for _, up := range newUploaders(cfg.Storage) {
		if !up.Enabled() {
			continue
		}
		url, err := up.UploadFile(context.Background(), zipPath)
		if err != nil {
			util.Errorf("upload failed: %v", err)
			continue
		}
		util.Infof("uploaded submission to %s", url)
	}
}

func newUploaders(storage config.StorageConfig) []uploader.Uploader {
	ups := []uploader.Uploader{}
	if s3up, err := uploader.NewS3(storage.S3); err != nil {
		util.Errorf("s3 uploader init failed: %v", err)
	} else if s3up.Enabled() {
		ups = append(ups, s3up)
	}
	if gcsup, err := uploader.NewGCS(storage.GCS); err != nil {
		util.Errorf("gcs uploader init failed: %v", err)
	} else if gcsup.Enabled() {
		ups = append(ups, gcsup)
	}
	if len(ups) == 0 {
		return []uploader.Uploader{uploader.NoopUploader{}}
	}
	return ups
}
