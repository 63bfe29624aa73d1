// Package untar extracts the tar archives that ship a root filesystem,
// reading the stream incrementally with progress reporting and cooperative
// cancellation. It parses headers itself rather than trusting the archive:
// real-world rootfs tarballs carry malformed numeric fields and truncated
// tails that must degrade gracefully instead of aborting a long download.
package untar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Package-level logger
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "untar",
	})
}

// SetLogLevel sets the logging level for the untar package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// ErrCanceled is returned when the progress callback stops an extraction.
// It is a distinct outcome from both success and stream failure; callers
// match it with errors.Is.
var ErrCanceled = errors.New("extraction canceled")

// ProgressFunc receives cumulative bytes processed after each entry. Total
// is -1 while the stream length is unknown; the final call reports
// (total, total). Returning false cancels the extraction.
type ProgressFunc func(current, total int64) bool

// Extractor writes the entries of a tar stream under a destination
// directory. The zero value is not usable; construct with New.
type Extractor struct {
	dest string
}

// New returns an extractor targeting dest. The directory itself is created
// on demand during extraction.
func New(dest string) *Extractor {
	return &Extractor{dest: dest}
}

// Extract consumes the stream until the end-of-archive marker, writing
// files and directories under the destination. It returns the cumulative
// byte count (header blocks plus payload sizes).
//
// Malformed numeric fields, failed permission or timestamp application,
// and short payload reads are tolerated with a warning. A read error on
// the stream itself aborts with that error; a false return from progress
// aborts with ErrCanceled.
func (x *Extractor) Extract(r io.Reader, progress ProgressFunc) (int64, error) {
	br := bufio.NewReader(r)
	block := make([]byte, BlockSize)
	var total int64

	for {
		if _, err := io.ReadFull(br, block); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				// Short header read: treat as end of archive.
				break
			}
			return total, fmt.Errorf("read header: %w", err)
		}

		if isZeroBlock(block) {
			break
		}
		hdr := parseHeader(block)
		if hdr.name == "" {
			break
		}

		if err := x.writeEntry(br, hdr); err != nil {
			return total, err
		}

		total += BlockSize
		if !hdr.isDir() {
			total += hdr.size
		}

		if progress != nil && !progress(total, -1) {
			return total, ErrCanceled
		}

		if pad := padding(hdr.size); pad > 0 && !hdr.isDir() {
			if _, err := io.CopyN(io.Discard, br, pad); err != nil && err != io.EOF {
				return total, fmt.Errorf("skip padding: %w", err)
			}
		}
	}

	if progress != nil {
		progress(total, total)
	}
	return total, nil
}

// writeEntry materializes one entry on disk, consuming its payload from
// the stream.
func (x *Extractor) writeEntry(br *bufio.Reader, hdr header) error {
	name := strings.TrimPrefix(hdr.name, "./")

	if !filepath.IsLocal(strings.TrimSuffix(name, "/")) {
		// Entry tries to escape the destination. Skip it but keep the
		// stream aligned by discarding its payload.
		logger.Warn("skipping entry outside destination", "name", hdr.name)
		if !hdr.isDir() {
			if _, err := io.CopyN(io.Discard, br, hdr.size); err != nil && err != io.EOF && !errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("skip payload: %w", err)
			}
		}
		return nil
	}

	target := filepath.Join(x.dest, name)

	if hdr.isDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", name, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", name, err)
		}
		if err := x.writeFile(br, target, hdr.size); err != nil {
			return err
		}
	}

	x.applyMetadata(target, hdr)
	return nil
}

// writeFile copies exactly size payload bytes into target. A stream that
// ends early truncates the file with a warning; corrupt tails must not
// fail the whole extraction.
func (x *Extractor) writeFile(br *bufio.Reader, target string, size int64) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	written, err := io.CopyN(f, br, size)
	if err != nil && err != io.EOF {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if written < size {
		logger.Warn("short payload read", "file", target, "want", size, "got", written)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}

// applyMetadata sets permission bits and the modification time from the
// header. Both are best effort; Android's filesystems reject some of
// these and extraction carries on regardless.
func (x *Extractor) applyMetadata(target string, hdr header) {
	if hdr.mode > 0 {
		if err := os.Chmod(target, os.FileMode(hdr.mode)&os.ModePerm); err != nil {
			logger.Warn("chmod failed", "target", target, "err", err)
		}
	}
	if hdr.modTime > 0 {
		mt := time.Unix(hdr.modTime, 0)
		if err := os.Chtimes(target, mt, mt); err != nil {
			logger.Warn("chtimes failed", "target", target, "err", err)
		}
	}
}

// padding returns the bytes between the end of a payload and the next
// block boundary.
func padding(size int64) int64 {
	if rem := size % BlockSize; rem != 0 {
		return BlockSize - rem
	}
	return 0
}
