// Command sqlgrade generates grading test suites from an instructor
// solution script: a plaintext practice suite captured against the sample
// database and an encrypted evaluation suite captured against the
// evaluation database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sqlgrade/internal/config"
	"sqlgrade/internal/crypt"
	"sqlgrade/internal/db"
	"sqlgrade/internal/oracle"
	"sqlgrade/internal/spec"
	"sqlgrade/internal/sqlparse"
	"sqlgrade/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	solutionPath := flag.String("solution", config.SolutionFile, "path to instructor solution script")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Logging.Verbose {
		if data, err := yaml.Marshal(&cfg); err == nil {
			util.Highlightf("config:\n%s", string(data))
		}
	}

	script, err := os.ReadFile(*solutionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read solution: %v\n", err)
		os.Exit(1)
	}
	stmts := sqlparse.Split(string(script))
	if len(stmts) == 0 {
		fmt.Fprintln(os.Stderr, "solution script contains no statements")
		os.Exit(1)
	}
	util.Infof("parsed %d statement(s) from %s", len(stmts), *solutionPath)

	key, err := spec.LoadAnswerKey(cfg.AnswerKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load answer key: %v\n", err)
		os.Exit(1)
	}
	if len(key.Questions) > 0 && len(key.Questions) != len(stmts) {
		util.Warnf("answer key has %d question(s) but solution has %d statement(s)", len(key.Questions), len(stmts))
	}
	items := oracle.ItemsFromStatements(stmts, key.Questions)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	samplePath := filepath.Join(cfg.OutputDir, config.SampleTestsFile)
	if err := generate(ctx, cfg.SampleDB, items, samplePath, nil, ""); err != nil {
		fmt.Fprintf(os.Stderr, "sample suite generation failed: %v\n", err)
		os.Exit(1)
	}
	util.Infof("wrote practice suite %s", samplePath)

	gradingKey, err := crypt.LoadOrCreateKey(cfg.KeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load grading key: %v\n", err)
		os.Exit(1)
	}
	evalPath := filepath.Join(cfg.OutputDir, config.EvalTestsFile)
	if err := generate(ctx, cfg.EvalDB, items, evalPath, gradingKey, cfg.AllowedAfter); err != nil {
		fmt.Fprintf(os.Stderr, "evaluation suite generation failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.AllowedAfter != "" {
		util.Infof("evaluation suite gated until %s IST", cfg.AllowedAfter)
	}
	util.Highlightf("wrote evaluation suite %s (key: %s)", evalPath, cfg.KeyPath)
}

// generate captures a suite against one database and writes it, encrypted
// when a key is given.
func generate(ctx context.Context, dbcfg config.DBConfig, items map[string]spec.Item, path string, key []byte, allowedAfter string) error {
	if err := dbcfg.Validate(); err != nil {
		return err
	}
	exec, err := db.Open(ctx, dbcfg)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(exec, "generation db")

	suite := oracle.BuildSuite(ctx, exec, items, dbcfg, allowedAfter)
	if key != nil {
		return suite.WriteEncryptedFile(path, key)
	}
	return suite.WriteFile(path)
}
