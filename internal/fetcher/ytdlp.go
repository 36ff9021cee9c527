package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// audioBasename is the fixed output name inside the per-job dest dir.
// The dir is private to one job, so a fixed name cannot collide.
const audioBasename = "audio"

// commandResult captures one external command invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// YTDLP fetches audio by shelling out to yt-dlp with ffmpeg extraction
// to mp3. Metadata (title, duration) is parsed from --print-json.
type YTDLP struct {
	binPath string
	runner  commandRunner
	stat    func(name string) (os.FileInfo, error)
}

func NewYTDLP(binPath string) *YTDLP {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YTDLP{
		binPath: binPath,
		runner:  &execRunner{},
		stat:    os.Stat,
	}
}

// ytdlpInfo is the subset of yt-dlp's info dict we keep.
type ytdlpInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Fetch downloads the best audio for url into destDir and returns the
// extracted mp3. Failures carry yt-dlp's stderr so the job record ends
// up with an actionable message.
func (f *YTDLP) Fetch(ctx context.Context, url, destDir string) (*Media, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is required")
	}

	outTemplate := filepath.Join(destDir, audioBasename+".%(ext)s")
	args := []string{
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3",
		"-o", outTemplate,
		"--no-playlist",
		"--no-progress",
		"--print-json",
		url,
	}

	result, err := f.runner.Run(ctx, f.binPath, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed (exit %d): %s", result.ExitCode, firstLine(result.Stderr))
	}

	var info ytdlpInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		// Metadata is best-effort; the download itself succeeded.
		info = ytdlpInfo{}
	}

	audioPath := filepath.Join(destDir, audioBasename+".mp3")
	if _, err := f.stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found after download: %w", err)
	}

	return &Media{
		Path:     audioPath,
		Title:    info.Title,
		Duration: info.Duration,
	}, nil
}

// firstLine trims command output down to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "no output"
}
