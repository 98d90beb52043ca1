package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// FFProbe reads media metadata via the ffprobe command line tool.
type FFProbe struct {
	Bin    string
	runner commandRunner
}

func NewFFProbe(bin string) *FFProbe {
	return &FFProbe{Bin: bin, runner: execRunner{}}
}

// Duration returns the media duration in seconds.
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.runner.Run(ctx, p.Bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %s: %w", lastLine(result.Stderr), err)
	}

	var out struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return 0, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
	}
	return duration, nil
}
