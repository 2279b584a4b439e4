package main

import (
	"context"
	"testing"

	"sqlgrade/internal/config"
	"sqlgrade/internal/runner"
	"sqlgrade/internal/uploader"
)

func TestNewUploadersDefaultsToNoop(t *testing.T) {
	ups := newUploaders(config.StorageConfig{})
	if len(ups) != 1 {
		t.Fatalf("expected one uploader for disabled storage, got %d", len(ups))
	}
	noop, ok := ups[0].(uploader.NoopUploader)
	if !ok {
		t.Fatalf("expected NoopUploader, got %T", ups[0])
	}
	if noop.Enabled() {
		t.Fatalf("noop uploader must report disabled")
	}
	url, err := noop.UploadFile(context.Background(), "submission.zip")
	if err != nil {
		t.Fatalf("noop upload: %v", err)
	}
	if url != "" {
		t.Fatalf("noop upload returned url %q", url)
	}
}

func TestNewUploadersSkipsDisabledBackends(t *testing.T) {
	storage := config.StorageConfig{
		S3:  config.S3Config{Bucket: "reports"},
		GCS: config.GCSConfig{Bucket: "reports"},
	}
	ups := newUploaders(storage)
	if len(ups) != 1 {
		t.Fatalf("expected only the noop fallback, got %d uploaders", len(ups))
	}
	if _, ok := ups[0].(uploader.NoopUploader); !ok {
		t.Fatalf("expected NoopUploader fallback, got %T", ups[0])
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  string
		got  float64
		max  float64
		want int
	}{
		{"perfect", "", 2, 2, 0},
		{"lost points", "", 1, 2, 1},
		{"fatal error", "connect failed", 0, 0, 1},
		{"empty suite", "", 0, 0, 0},
	}
	for _, tc := range cases {
		res := runner.RunResult{Error: tc.err, TotalScore: tc.got, MaxScore: tc.max}
		if code := exitCode(res); code != tc.want {
			t.Fatalf("%s: exit code %d, want %d", tc.name, code, tc.want)
		}
	}
}
