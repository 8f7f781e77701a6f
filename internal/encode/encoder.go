// Package encode wraps the external video encoder the storyboard stage uses
// to assemble scene stills into a clip. The encoder is a collaborator, not a
// requirement: when the binary is missing the stage completes without a video
// artifact.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// SlideshowEncoder renders a sequence of PNG stills into an MP4 using an
// ffmpeg-compatible command.
type SlideshowEncoder struct {
	Command string
}

// NewSlideshowEncoder wraps the given encoder command (normally "ffmpeg").
func NewSlideshowEncoder(command string) *SlideshowEncoder {
	return &SlideshowEncoder{Command: command}
}

// Available reports whether the encoder binary can be found.
func (e *SlideshowEncoder) Available() bool {
	if e.Command == "" {
		return false
	}
	_, err := exec.LookPath(e.Command)
	return err == nil
}

// Encode writes the scenes to a scratch directory and assembles them into one
// clip spanning durationSec. Returns the encoded MP4 bytes.
func (e *SlideshowEncoder) Encode(ctx context.Context, scenes [][]byte, durationSec int) ([]byte, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to encode")
	}
	if durationSec < 1 {
		durationSec = 1
	}

	workDir, err := os.MkdirTemp("", "clipper-encode-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	for i, scene := range scenes {
		path := filepath.Join(workDir, fmt.Sprintf("scene_%03d.png", i))
		if err := os.WriteFile(path, scene, 0o644); err != nil {
			return nil, fmt.Errorf("write scene %d: %w", i, err)
		}
	}

	outPath := filepath.Join(workDir, "storyboard.mp4")
	perScene := float64(durationSec) / float64(len(scenes))
	framerate := strconv.FormatFloat(1.0/perScene, 'f', 6, 64)

	args := []string{
		"-y",
		"-framerate", framerate,
		"-i", filepath.Join(workDir, "scene_%03d.png"),
		"-c:v", "libx264",
		"-r", "24",
		"-pix_fmt", "yuv420p",
		"-t", strconv.Itoa(durationSec),
		outPath,
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := bytes.TrimSpace(stderr.Bytes())
		if len(detail) > 0 {
			return nil, fmt.Errorf("encoder failed: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("encoder failed: %w", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read encoded clip: %w", err)
	}
	return data, nil
}
