package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Probe describes the properties extracted from a media file.
type Probe struct {
	Duration float64
	Format   string
	Size     int64
}

// Prober inspects media files.
type Prober interface {
	Probe(ctx context.Context, path string) (Probe, error)
}

// FFProbeProber shells out to ffprobe to read container metadata.
type FFProbeProber struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

// NewFFProbeProber constructs a Prober that shells out to ffprobe.
func NewFFProbeProber(binary string, timeout time.Duration) *FFProbeProber {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbeProber{
		Binary:  binary,
		Args:    []string{"-v", "error", "-print_format", "json", "-show_format"},
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

// Probe executes ffprobe for the provided file and parses the JSON response.
func (p *FFProbeProber) Probe(ctx context.Context, path string) (Probe, error) {
	if p == nil {
		return Probe{}, ErrProberUnavailable
	}
	if p.Run == nil {
		p.Run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append([]string{}, p.Args...)
	args = append(args, path)

	out, err := p.Run(execCtx, p.Binary, args...)
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe: %w", err)
	}

	var payload struct {
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
			Size       string `json:"size"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return Probe{}, fmt.Errorf("parse ffprobe response: %w", err)
	}

	duration, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe reported no duration for %s", path)
	}

	size, _ := strconv.ParseInt(payload.Format.Size, 10, 64)

	return Probe{
		Duration: duration,
		Format:   payload.Format.FormatName,
		Size:     size,
	}, nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
