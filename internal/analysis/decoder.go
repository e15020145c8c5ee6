package analysis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DecodeSampleRate is the sample rate every decoder implementation must
// deliver samples at.
const DecodeSampleRate = 22050

// Decoder turns an audio file into mono PCM samples in [-1, 1], decoding no
// more than the given window from the start of the track.
type Decoder interface {
	Decode(ctx context.Context, path string, window time.Duration) ([]float64, int, error)
}

// FFmpegDecoder decodes through an ffmpeg subprocess.
type FFmpegDecoder struct {
	Bin string
}

func NewFFmpegDecoder() *FFmpegDecoder {
	bin := strings.TrimSpace(os.Getenv("MOOD_FFMPEG_BIN"))
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegDecoder{Bin: bin}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string, window time.Duration) ([]float64, int, error) {
	if _, err := exec.LookPath(d.Bin); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := []string{
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(DecodeSampleRate),
		"-ac", "1",
		"-loglevel", "error",
	}
	if window > 0 {
		args = append(args, "-t", strconv.FormatFloat(window.Seconds(), 'f', -1, 64))
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, d.Bin, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, 0, fmt.Errorf("ffmpeg decode: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, 0, fmt.Errorf("ffmpeg decode: %w", err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, 0, errors.New("decoded audio stream is empty")
	}

	samples := make([]float64, len(out)/2)
	for i := range samples {
		raw := int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
		samples[i] = float64(raw) / 32768.0
	}

	return samples, DecodeSampleRate, nil
}
