package report

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"sqlgrade/internal/config"
	"sqlgrade/internal/util"
)

func newDeflateWriter(out io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(out, flate.BestCompression)
}

// WriteSubmissionZip packs the student solution and the encrypted report
// into a single zip archive at zipPath.
func WriteSubmissionZip(zipPath, solutionPath, reportPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", zipPath)
	}
	defer util.CloseWithErr(f, zipPath)

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, newDeflateWriter)
	for _, src := range []string{solutionPath, reportPath} {
		if err := addFile(zw, src); err != nil {
			return err
		}
	}
	return errors.Wrapf(zw.Close(), "finalize %s", zipPath)
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer util.CloseWithErr(src, path)

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return errors.Wrapf(err, "add %s to archive", path)
	}
	_, err = io.Copy(w, src)
	return errors.Wrapf(err, "write %s to archive", path)
}

// ReadSubmissionReport extracts and decrypts the report from a submission
// zip produced by WriteSubmissionZip.
func ReadSubmissionReport(zipPath string, key []byte) (Payload, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "open %s", zipPath)
	}
	defer util.CloseWithErr(zr, zipPath)

	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, config.ResultsSuffix) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return Payload{}, errors.Wrapf(err, "open %s in %s", entry.Name, zipPath)
		}
		data, err := io.ReadAll(rc)
		util.CloseWithErr(rc, entry.Name)
		if err != nil {
			return Payload{}, errors.Wrapf(err, "read %s in %s", entry.Name, zipPath)
		}
		return DecodeEncrypted(data, key)
	}
	return Payload{}, errors.Errorf("no report found in %s", zipPath)
}
