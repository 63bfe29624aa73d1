package bootstrap

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/archdroid/archbox/internal/untar"
)

// archiveName is the on-disk name of the downloaded artifact.
const archiveName = "archlinuxarm.tar.gz"

// progressStep spaces out progress events so a hundred-thousand-entry
// rootfs does not flood the listener.
const progressStep = 1 << 20

// run executes the installation and translates its outcome into listener
// events: success emits complete, cancellation emits nothing and cleans
// up, anything else emits a single failure with the cause.
func (m *Manager) run(ctx context.Context, n notifier) {
	err := m.install(ctx, n)
	switch {
	case err == nil:
		logger.Info("bootstrap complete", "rootfs", m.RootfsDir())
		n.complete()
	case errors.Is(err, context.Canceled) || errors.Is(err, untar.ErrCanceled):
		logger.Info("bootstrap canceled")
	default:
		logger.Error("bootstrap failed", "err", err)
		n.failed(err.Error())
	}
}

func (m *Manager) install(ctx context.Context, n notifier) error {
	n.started("Checking storage space...")
	if err := m.checkFreeSpace(); err != nil {
		return err
	}

	if err := os.MkdirAll(m.cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	archive := filepath.Join(m.cfg.CacheDir, archiveName)

	// A new run starts from a clean tree; stale partial installs are
	// worse than no install.
	rootfs := m.RootfsDir()
	if err := os.RemoveAll(rootfs); err != nil {
		return fmt.Errorf("clean rootfs dir: %w", err)
	}
	if err := os.MkdirAll(rootfs, 0o755); err != nil {
		return fmt.Errorf("create rootfs dir: %w", err)
	}

	n.started("Downloading Arch Linux ARM64 root filesystem...")
	if err := m.download(ctx, archive, n); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Remove(archive)
		}
		return err
	}

	n.started("Extracting filesystem (this may take a while)...")
	if err := m.extract(ctx, archive, rootfs, n); err != nil {
		if errors.Is(err, untar.ErrCanceled) || errors.Is(err, context.Canceled) {
			os.RemoveAll(rootfs)
			os.Remove(archive)
		}
		return err
	}
	os.Remove(archive)

	n.started("Configuring system...")
	if err := m.configure(); err != nil {
		return err
	}
	return nil
}

func (m *Manager) checkFreeSpace() error {
	if err := os.MkdirAll(m.cfg.BaseDir, 0o755); err != nil {
		return fmt.Errorf("create base dir: %w", err)
	}
	usage, err := disk.Usage(m.cfg.BaseDir)
	if err != nil {
		return fmt.Errorf("check free space: %w", err)
	}
	if usage.Free < m.cfg.MinFreeBytes {
		return fmt.Errorf("insufficient storage: %d MiB free, %d MiB required",
			usage.Free>>20, m.cfg.MinFreeBytes>>20)
	}
	return nil
}

// download fetches the rootfs artifact to target, reporting byte progress
// against the Content-Length when the server provides one.
func (m *Manager) download(ctx context.Context, target string, n notifier) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download rootfs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download rootfs: unexpected status %s", resp.Status)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	total := resp.ContentLength
	var written, lastReport int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return err
		}
		nr, readErr := resp.Body.Read(buf)
		if nr > 0 {
			if _, writeErr := out.Write(buf[:nr]); writeErr != nil {
				out.Close()
				return fmt.Errorf("write archive: %w", writeErr)
			}
			written += int64(nr)
			if written-lastReport >= progressStep {
				lastReport = written
				if total > 0 {
					n.progress(written, total)
				} else {
					// No Content-Length; report the byte count with the
					// total marked unknown.
					n.progress(written, -1)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return fmt.Errorf("read download stream: %w", readErr)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}
	logger.Info("download finished", "bytes", written)
	return nil
}

// extract unpacks the archive into rootfs. The artifact is gzip-compressed
// as published; a raw tar (local mirrors, tests) is detected by magic and
// passed through untouched.
func (m *Manager) extract(ctx context.Context, archive, rootfs string, n notifier) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	stream, err := maybeGzip(f)
	if err != nil {
		return fmt.Errorf("open compressed stream: %w", err)
	}

	var lastReport int64
	_, err = untar.New(rootfs).Extract(stream, func(current, total int64) bool {
		if ctx.Err() != nil {
			return false
		}
		if total >= 0 || current-lastReport >= progressStep {
			lastReport = current
			n.progress(current, total)
		}
		return true
	})
	if err != nil {
		if errors.Is(err, untar.ErrCanceled) {
			return err
		}
		return fmt.Errorf("extract rootfs: %w", err)
	}
	return nil
}

// maybeGzip wraps r in a gzip reader when the stream starts with the gzip
// magic bytes, and returns it unchanged otherwise.
func maybeGzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || len(magic) < 2 || magic[0] != 0x1F || magic[1] != 0x8B {
		return br, nil
	}
	return gzip.NewReader(br)
}
