package media

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/angelmondragon/personacast-backend/pkg/config"
)

func TestExtractAudioInvokesFFmpegForMonoWav(t *testing.T) {
	f := NewFFmpeg(config.MediaConfig{FFmpegPath: "ffmpeg-test", AudioSampleRate: 22050})
	var gotName string
	var gotArgs []string
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		in, err := os.ReadFile(args[2])
		if err != nil {
			t.Fatalf("input not written: %v", err)
		}
		if string(in) != "MOVDATA" {
			t.Fatalf("unexpected input %q", in)
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o600)
	}

	audio, err := f.ExtractAudio(context.Background(), strings.NewReader("MOVDATA"), "clip.MOV")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(audio) != "RIFF" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotName != "ffmpeg-test" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-vn", "-ac 1", "-ar 22050", "-f wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
	if !strings.HasSuffix(gotArgs[2], ".mov") {
		t.Fatalf("expected input extension kept, got %q", gotArgs[2])
	}
	if _, err := os.Stat(gotArgs[2]); !os.IsNotExist(err) {
		t.Fatal("work dir should be removed after extraction")
	}
}

func TestExtractAudioSurfacesFFmpegOutput(t *testing.T) {
	f := NewFFmpeg(config.MediaConfig{})
	f.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}
	_, err := f.ExtractAudio(context.Background(), strings.NewReader("x"), "a.mp4")
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected ffmpeg output in error, got %v", err)
	}
}

func TestExtractAudioEmptyOutput(t *testing.T) {
	f := NewFFmpeg(config.MediaConfig{})
	f.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(args[len(args)-1], nil, 0o600)
	}
	if _, err := f.ExtractAudio(context.Background(), strings.NewReader("x"), "a.mp4"); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestSafeExt(t *testing.T) {
	cases := map[string]string{
		"video.mp4":      ".mp4",
		"VIDEO.WEBM":     ".webm",
		"noext":          ".bin",
		"weird.m p4":     ".bin",
		"../../etc/x.sh": ".sh",
		"long.extension": ".bin",
	}
	for in, want := range cases {
		if got := safeExt(in); got != want {
			t.Fatalf("safeExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssertReadyMissingBinary(t *testing.T) {
	f := NewFFmpeg(config.MediaConfig{FFmpegPath: "definitely-not-ffmpeg-binary"})
	if err := f.AssertReady(); err == nil {
		t.Fatal("expected missing binary error")
	}
}
