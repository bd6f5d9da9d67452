// Package media wraps the local ffmpeg binary.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/pkg/config"
)

const defaultTimeout = 5 * time.Minute

// AudioExtractor pulls a mono WAV track out of an uploaded video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video io.Reader, filename string) ([]byte, error)
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg implements AudioExtractor with an ffmpeg subprocess.
type FFmpeg struct {
	binary     string
	sampleRate int
	timeout    time.Duration
	run        runFunc
}

func NewFFmpeg(cfg config.MediaConfig) *FFmpeg {
	binary := strings.TrimSpace(cfg.FFmpegPath)
	if binary == "" {
		binary = "ffmpeg"
	}
	rate := cfg.AudioSampleRate
	if rate <= 0 {
		rate = 44100
	}
	return &FFmpeg{
		binary:     binary,
		sampleRate: rate,
		timeout:    defaultTimeout,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// AssertReady checks the ffmpeg binary is resolvable.
func (f *FFmpeg) AssertReady() error {
	if _, err := exec.LookPath(f.binary); err != nil {
		return fmt.Errorf("missing required binary %q: %w", f.binary, err)
	}
	return nil
}

func (f *FFmpeg) ExtractAudio(ctx context.Context, video io.Reader, filename string) ([]byte, error) {
	if video == nil {
		return nil, errors.New("video is required")
	}
	dir, err := os.MkdirTemp("", "personacast-media-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input"+safeExt(filename))
	out := filepath.Join(dir, "audio.wav")

	if err := writeFile(in, video); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{"-y", "-i", in, "-vn", "-ac", "1", "-ar", strconv.Itoa(f.sampleRate), "-f", "wav", out}
	if output, err := f.run(ctx, f.binary, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg extract audio: %w: %s", err, tail(string(output), 512))
	}

	audio, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read extracted audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}
	return audio, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create input: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write input: %w", err)
	}
	return f.Close()
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
