package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoVideoStream is returned when ffprobe finds no video stream.
var ErrNoVideoStream = errors.New("no video stream")

// ProbeInfo is what ffprobe reports about the first video stream.
type ProbeInfo struct {
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Codec    string        `json:"codec"`
	Duration time.Duration `json:"duration"`
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe against path and returns the first video stream's size,
// codec and the container duration.
func Probe(ctx context.Context, runner Runner, ffprobe, path string) (*ProbeInfo, error) {
	out, err := runner.Output(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,codec_name:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return parseProbe(out)
}

func parseProbe(out []byte) (*ProbeInfo, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(parsed.Streams) == 0 {
		return nil, ErrNoVideoStream
	}

	s := parsed.Streams[0]
	info := &ProbeInfo{
		Width:  s.Width,
		Height: s.Height,
		Codec:  s.CodecName,
	}

	// Still images and some live containers report no duration.
	if parsed.Format.Duration != "" && parsed.Format.Duration != "N/A" {
		secs, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration %q: %w", parsed.Format.Duration, err)
		}
		if secs > 0 {
			info.Duration = time.Duration(secs * float64(time.Second))
		}
	}

	return info, nil
}
