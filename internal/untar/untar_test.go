package untar_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/archdroid/archbox/internal/untar"
)

// writeArchive builds a tar stream with the standard library writer so the
// extractor is exercised against independently produced archives.
func writeArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: time.Unix(1700000000, 0),
			Format:  tar.FormatUSTAR,
		}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%q): %v", name, err)
		}
		if hdr.Typeflag != tar.TypeDir {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("Write(%q): %v", name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

// rawHeader builds one header block by hand, for malformed inputs the
// standard writer refuses to produce.
func rawHeader(name string, mode int64, sizeField string, mtime int64) []byte {
	block := make([]byte, untar.BlockSize)
	copy(block[0:100], name)
	copy(block[100:108], fmt.Sprintf("%07o", mode))
	copy(block[124:136], sizeField)
	copy(block[136:148], fmt.Sprintf("%011o", mtime))
	return block
}

func endOfArchive() []byte {
	return make([]byte, 2*untar.BlockSize)
}

func TestExtractRoundTrip(t *testing.T) {
	entries := map[string]string{
		"etc/":             "",
		"etc/hostname":     "archbox\n",
		"usr/bin/":         "",
		"usr/bin/greet":    "#!/bin/sh\necho hi\n",
		"var/log/boot.log": strings.Repeat("x", 1000), // spans multiple blocks
	}
	dest := t.TempDir()

	x := untar.New(dest)
	total, err := x.Extract(bytes.NewReader(writeArchive(t, entries)), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if total == 0 {
		t.Error("total = 0, want > 0")
	}

	for name, content := range entries {
		target := filepath.Join(dest, name)
		if strings.HasSuffix(name, "/") {
			info, err := os.Stat(target)
			if err != nil || !info.IsDir() {
				t.Errorf("%s: want directory, got %v (%v)", name, info, err)
			}
			continue
		}
		got, err := os.ReadFile(target)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(got) != content {
			t.Errorf("%s: content mismatch (%d bytes vs %d)", name, len(got), len(content))
		}
	}
}

func TestExtractEmptyArchive(t *testing.T) {
	x := untar.New(t.TempDir())

	var finalCurrent, finalTotal int64 = -1, -1
	total, err := x.Extract(bytes.NewReader(endOfArchive()), func(current, total int64) bool {
		finalCurrent, finalTotal = current, total
		return true
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if finalCurrent != 0 || finalTotal != 0 {
		t.Errorf("final progress = (%d,%d), want (0,0)", finalCurrent, finalTotal)
	}
}

func TestExtractTruncatedStreamIsNotAnError(t *testing.T) {
	data := writeArchive(t, map[string]string{"a.txt": "hello"})
	x := untar.New(t.TempDir())
	if _, err := x.Extract(bytes.NewReader(data[:untar.BlockSize+100]), nil); err != nil {
		t.Fatalf("Extract of truncated stream: %v", err)
	}
}

func TestExtractStripsLeadingDotSlash(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawHeader("./etc/issue", 0o644, fmt.Sprintf("%011o", 2), 0))
	buf.WriteString("ok")
	buf.Write(make([]byte, untar.BlockSize-2))
	buf.Write(endOfArchive())

	dest := t.TempDir()
	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "etc", "issue"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "ok" {
		t.Errorf("content = %q, want \"ok\"", got)
	}
}

func TestExtractGarbageSizeFieldContinues(t *testing.T) {
	var buf bytes.Buffer
	// Size field is non-octal garbage: parsed as 0, so no payload follows
	// and the next header is read in sequence.
	buf.Write(rawHeader("broken.bin", 0o644, "garbage!", 0))
	buf.Write(rawHeader("fine.txt", 0o644, fmt.Sprintf("%011o", 4), 0))
	buf.WriteString("good")
	buf.Write(make([]byte, untar.BlockSize-4))
	buf.Write(endOfArchive())

	dest := t.TempDir()
	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got, err := os.ReadFile(filepath.Join(dest, "fine.txt")); err != nil || string(got) != "good" {
		t.Errorf("fine.txt = %q (%v), want \"good\"", got, err)
	}
	if info, err := os.Stat(filepath.Join(dest, "broken.bin")); err != nil || info.Size() != 0 {
		t.Errorf("broken.bin = %v (%v), want empty file", info, err)
	}
}

func TestExtractDirectoryWithDotSuffix(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawHeader("opt/pkg/.", 0o755, "00000000000", 0))
	buf.Write(endOfArchive())

	dest := t.TempDir()
	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	info, err := os.Stat(filepath.Join(dest, "opt", "pkg"))
	if err != nil || !info.IsDir() {
		t.Errorf("opt/pkg = %v (%v), want directory", info, err)
	}
}

func TestExtractCancellation(t *testing.T) {
	data := writeArchive(t, map[string]string{
		"first.txt":  "one",
		"second.txt": "two",
		"third.txt":  "three",
	})
	dest := t.TempDir()

	calls := 0
	_, err := untar.New(dest).Extract(bytes.NewReader(data), func(current, total int64) bool {
		calls++
		return calls < 2
	})
	if !errors.Is(err, untar.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if calls != 2 {
		t.Errorf("progress calls = %d, want 2", calls)
	}

	// At most two entries can exist; the third was never reached.
	written := 0
	for _, name := range []string{"first.txt", "second.txt", "third.txt"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err == nil {
			written++
		}
	}
	if written > 2 {
		t.Errorf("entries on disk = %d, want at most 2", written)
	}
}

func TestExtractProgressCountsHeaderAndPayload(t *testing.T) {
	data := writeArchive(t, map[string]string{"ten.txt": "0123456789"})

	var first int64 = -1
	_, err := untar.New(t.TempDir()).Extract(bytes.NewReader(data), func(current, total int64) bool {
		if first == -1 {
			first = current
			if total != -1 {
				t.Errorf("in-flight total = %d, want -1", total)
			}
		}
		return true
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := int64(untar.BlockSize + 10); first != want {
		t.Errorf("first progress = %d, want %d", first, want)
	}
}

func TestExtractShortPayloadTruncatesFile(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawHeader("cut.txt", 0o644, fmt.Sprintf("%011o", 100), 0))
	buf.WriteString("only this")

	dest := t.TempDir()
	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "cut.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "only this" {
		t.Errorf("content = %q, want the bytes that arrived", got)
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawHeader("../escape.txt", 0o644, fmt.Sprintf("%011o", 3), 0))
	buf.WriteString("bad")
	buf.Write(make([]byte, untar.BlockSize-3))
	buf.Write(rawHeader("safe.txt", 0o644, fmt.Sprintf("%011o", 2), 0))
	buf.WriteString("ok")
	buf.Write(make([]byte, untar.BlockSize-2))
	buf.Write(endOfArchive())

	parent := t.TempDir()
	dest := filepath.Join(parent, "rootfs")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("escaping entry was written outside the destination")
	}
	if got, err := os.ReadFile(filepath.Join(dest, "safe.txt")); err != nil || string(got) != "ok" {
		t.Errorf("safe.txt = %q (%v), want \"ok\"", got, err)
	}
}

func TestExtractAppliesMode(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawHeader("run.sh", 0o755, fmt.Sprintf("%011o", 5), 1700000000))
	buf.WriteString("#!ok\n")
	buf.Write(make([]byte, untar.BlockSize-5))
	buf.Write(endOfArchive())

	dest := t.TempDir()
	if _, err := untar.New(dest).Extract(&buf, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o755 {
		t.Errorf("mode = %o, want 755", got)
	}
	if got := info.ModTime().Unix(); got != 1700000000 {
		t.Errorf("mtime = %d, want 1700000000", got)
	}
}

func TestExtractStreamErrorSurfaces(t *testing.T) {
	data := writeArchive(t, map[string]string{"a.txt": "hello"})
	r := io.MultiReader(bytes.NewReader(data[:300]), failingReader{})

	_, err := untar.New(t.TempDir()).Extract(r, nil)
	if err == nil {
		t.Fatal("Extract should surface a stream read error")
	}
	if errors.Is(err, untar.ErrCanceled) {
		t.Error("stream error must not be reported as cancellation")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
