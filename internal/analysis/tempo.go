package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// TempoWindow is how much of a track is decoded for estimation,
	// regardless of track length.
	TempoWindow = 60 * time.Second

	frameSize = 1024
	hopSize   = 256

	minTempoBPM = 60.0
	maxTempoBPM = 200.0

	// centerTempoBPM anchors the prior that disambiguates octave-related
	// autocorrelation peaks (60 vs 120 vs 240 BPM).
	centerTempoBPM = 120.0
)

// TempoEstimator estimates the tempo of an audio file from a bounded
// decoded window.
type TempoEstimator struct {
	dec    Decoder
	window time.Duration
}

func NewTempoEstimator(dec Decoder) *TempoEstimator {
	return &TempoEstimator{dec: dec, window: TempoWindow}
}

// EstimateFile decodes at most the window duration of the file and returns
// its estimated tempo in BPM, rounded to one decimal place.
func (e *TempoEstimator) EstimateFile(ctx context.Context, path string) (float64, error) {
	samples, sampleRate, err := e.dec.Decode(ctx, path, e.window)
	if err != nil {
		return 0, fmt.Errorf("decode for tempo estimation: %w", err)
	}
	return TrackTempo(samples, sampleRate)
}

// TrackTempo runs beat tracking over mono PCM samples and returns a single
// tempo estimate rounded to one decimal place. The computation is pure float
// arithmetic: identical samples always yield an identical estimate.
func TrackTempo(samples []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, errors.New("invalid sample rate")
	}
	if len(samples) == 0 {
		return 0, errors.New("empty audio signal")
	}

	envelope := onsetEnvelope(samples)
	framesPerSecond := float64(sampleRate) / float64(hopSize)

	minLag := int(math.Floor(60.0 * framesPerSecond / maxTempoBPM))
	maxLag := int(math.Ceil(60.0 * framesPerSecond / minTempoBPM))
	if minLag < 1 {
		minLag = 1
	}
	if len(envelope) < 2*maxLag {
		return 0, errors.New("audio signal too short for tempo estimation")
	}

	bestLag, bestScore := bestAutocorrLag(envelope, framesPerSecond, minLag, maxLag)
	if bestScore <= 0 {
		return 0, errors.New("no periodic onsets detected")
	}

	lag := refineLag(envelope, bestLag, minLag, maxLag)
	bpm := 60.0 * framesPerSecond / lag
	for bpm > maxTempoBPM {
		bpm /= 2
	}
	for bpm < minTempoBPM {
		bpm *= 2
	}

	return math.Round(bpm*10) / 10, nil
}

// onsetEnvelope is the half-wave-rectified frame-energy flux, zero-mean.
func onsetEnvelope(samples []float64) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	frames := 1 + (len(samples)-frameSize)/hopSize

	energy := make([]float64, frames)
	for i := 0; i < frames; i++ {
		start := i * hopSize
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		energy[i] = sum
	}

	flux := make([]float64, frames-1)
	mean := 0.0
	for i := 1; i < frames; i++ {
		diff := energy[i] - energy[i-1]
		if diff < 0 {
			diff = 0
		}
		flux[i-1] = diff
		mean += diff
	}
	mean /= float64(len(flux))
	for i := range flux {
		flux[i] -= mean
	}

	return flux
}

func bestAutocorrLag(envelope []float64, framesPerSecond float64, minLag, maxLag int) (int, float64) {
	bestLag := 0
	bestScore := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		score := 0.0
		for i := 0; i+lag < len(envelope); i++ {
			score += envelope[i] * envelope[i+lag]
		}
		// Normalize so long lags are not penalized by fewer terms.
		score /= float64(len(envelope) - lag)
		score *= tempoPrior(60.0 * framesPerSecond / float64(lag))
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	return bestLag, bestScore
}

// tempoPrior is a log-normal weight over candidate tempi, centered at
// centerTempoBPM with one octave of standard deviation. Without it the
// autocorrelation is ambiguous between a tempo and its half/double.
func tempoPrior(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	octaves := math.Log2(bpm / centerTempoBPM)
	return math.Exp(-0.5 * octaves * octaves)
}

// refineLag sharpens the integer lag with parabolic interpolation over the
// autocorrelation values of the neighbouring lags.
func refineLag(envelope []float64, lag, minLag, maxLag int) float64 {
	if lag <= minLag || lag >= maxLag {
		return float64(lag)
	}

	corrAt := func(l int) float64 {
		score := 0.0
		for i := 0; i+l < len(envelope); i++ {
			score += envelope[i] * envelope[i+l]
		}
		return score / float64(len(envelope)-l)
	}

	left := corrAt(lag - 1)
	center := corrAt(lag)
	right := corrAt(lag + 1)

	denom := left - 2*center + right
	if denom == 0 {
		return float64(lag)
	}
	shift := 0.5 * (left - right) / denom
	if shift < -0.5 || shift > 0.5 {
		return float64(lag)
	}
	return float64(lag) + shift
}
