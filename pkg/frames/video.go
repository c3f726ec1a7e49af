package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// VideoSource seeks into a video file with ffmpeg and decodes a single frame
type VideoSource struct {
	Path   string
	FFmpeg string
}

// NewVideoSource returns a source reading path with the ffmpeg found on PATH
func NewVideoSource(path string) *VideoSource {
	return &VideoSource{Path: path, FFmpeg: "ffmpeg"}
}

// Args returns the ffmpeg arguments extracting the frame at timestamp as PNG on stdout
func (v *VideoSource) Args(timestamp float64) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", v.Path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png",
		"-",
	}
}

// Frame runs ffmpeg and decodes its output. An empty output, as produced when seeking
// past the end of the video, is ErrNoFrame.
func (v *VideoSource) Frame(ctx context.Context, timestamp float64) (image.Image, error) {
	bin := v.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, v.Args(timestamp)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed on %s at %.3fs: %w: %s", v.Path, timestamp, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s at %.3fs", ErrNoFrame, v.Path, timestamp)
	}
	return decodeBytes(stdout.Bytes(), "frame.png")
}
