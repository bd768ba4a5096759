// ABOUTME: Tests for the resonate-decode CLI
// ABOUTME: Executes commands against generated fixtures and an in-process server
package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-decode/internal/server"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

func writeWAV(t *testing.T, dir string, frames int) string {
	t.Helper()

	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	data := make([]int, frames*2)
	for i := range data {
		data[i] = (i % 64) * 256
	}

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize fixture: %v", err)
	}
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "config.toml")
	content := "[server]\nname = \"cli-test\"\nmdns = false\ntui = false\n\n[logging]\nfile = \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestDecodeCommand(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, 441)

	out, err := execute(t, "--config", writeConfig(t, dir), "decode", wavPath)
	if err != nil {
		t.Fatalf("decode failed: %v\n%s", err, out)
	}

	for _, want := range []string{"tone.wav", "441", "44100 Hz", "10ms", "pcm_s16le", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDecodeCommandResample(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, 441)

	out, err := execute(t, "--config", writeConfig(t, dir), "decode", "--rate", "48000", wavPath)
	if err != nil {
		t.Fatalf("decode failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "48000 Hz") || !strings.Contains(out, "480") {
		t.Errorf("expected resampled output:\n%s", out)
	}
}

func TestDecodeCommandStagingDir(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, 100)
	staging := filepath.Join(dir, "staging")

	out, err := execute(t, "--config", writeConfig(t, dir), "decode", "--staging-dir", staging, wavPath)
	if err != nil {
		t.Fatalf("decode failed: %v\n%s", err, out)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			t.Errorf("staging dir not cleaned: %s", e.Name())
		}
	}
}

func TestDecodeCommandReservedFileName(t *testing.T) {
	dir := t.TempDir()
	reserved := filepath.Join(dir, "channel_0.wav")
	if err := os.Rename(writeWAV(t, dir, 50), reserved); err != nil {
		t.Fatalf("rename fixture: %v", err)
	}

	out, err := execute(t, "--config", writeConfig(t, dir), "decode", reserved)
	if err != nil {
		t.Fatalf("decode of reserved file name failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "channel_0.wav") || !strings.Contains(out, "ok") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDecodePlaybackFlags(t *testing.T) {
	cmd := newDecodeCommand(&commandContext{})

	volume := cmd.Flags().Lookup("volume")
	if volume == nil || volume.DefValue != "100" {
		t.Fatalf("expected --volume defaulting to 100, got %+v", volume)
	}
	if mute := cmd.Flags().Lookup("mute"); mute == nil || mute.DefValue != "false" {
		t.Errorf("expected --mute defaulting to false, got %+v", mute)
	}
}

func TestDecodeCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, 10)
	junk := filepath.Join(dir, "junk.bin")
	if err := os.WriteFile(junk, []byte("not audio at all"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	out, err := execute(t, "--config", writeConfig(t, dir), "decode", wavPath, junk, filepath.Join(dir, "missing.wav"))
	if err == nil {
		t.Fatal("expected error when decodes fail")
	}
	if !strings.Contains(err.Error(), "2 of 3 decodes failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "cannot open input file") {
		t.Errorf("expected decoder exit message in output:\n%s", out)
	}
}

func TestSubmitCommand(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, 200)

	st := store.NewMemory()
	sched := decodequeue.New(st, nil)
	defer sched.Close()
	sched.Attach(decode.NewNative(st))

	srv := server.New(server.Config{Name: "test"}, sched, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + server.DecodePath
	out, err := execute(t, "--config", writeConfig(t, dir), "submit", "--server", url, "--timeout", (10 * time.Second).String(), wavPath)
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "200") || !strings.Contains(out, "ok") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestClearCacheCommand(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatalf("create cache dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "abc.mp3"), []byte("cached"), 0o644); err != nil {
		t.Fatalf("write cache entry: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.toml")
	content := "[fetch]\ncache_dir = \"" + filepath.ToSlash(cacheDir) + "\"\n\n[logging]\nfile = \"\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "--config", cfgPath, "clear-cache")
	if err != nil {
		t.Fatalf("clear-cache failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "abc.mp3")); !os.IsNotExist(err) {
		t.Errorf("cache entry still present: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "0.1.1") {
		t.Errorf("expected version in output, got %q", out)
	}
}

func TestInputName(t *testing.T) {
	cases := map[string]string{
		"/music/song.mp3":                  "song.mp3",
		"https://example.com/a/b.flac?x=1": "b.flac",
		"https://example.com/":             "input",
		"file:///tmp/clip.wav":             "clip.wav",
		"relative/dir/voice.opus":          "voice.opus",
		"/tmp/channel_0.wav":               "input_channel_0.wav",
		"https://example.com/channel_1":    "input_channel_1",
	}
	for arg, want := range cases {
		if got := inputName(arg); got != want {
			t.Errorf("inputName(%q) = %q, want %q", arg, got, want)
		}
	}

	if isURL("/tmp/x.wav") {
		t.Error("plain path treated as URL")
	}
	if !isURL("http://host/x.wav") {
		t.Error("http URL not recognized")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output for no headers")
	}
}
