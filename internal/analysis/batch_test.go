package analysis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

type stubDecoder struct {
	bpm float64
	err error
}

func (d *stubDecoder) Decode(_ context.Context, _ string, _ time.Duration) ([]float64, int, error) {
	if d.err != nil {
		return nil, 0, d.err
	}
	return clickTrack(d.bpm, DecodeSampleRate, 12.0), DecodeSampleRate, nil
}

func uploadFromBytes(name string, data []byte) Upload {
	return Upload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func taggedMP3(title, artist, genre string) []byte {
	return id3v23(map[string]string{
		"TIT2": title,
		"TPE1": artist,
		"TCON": genre,
	})
}

func TestAnalyzerIsolatesPerFileFailures(t *testing.T) {
	scratch := t.TempDir()
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, scratch, 2)

	uploads := []Upload{
		uploadFromBytes("one.mp3", taggedMP3("One", "Artist A", "House")),
		uploadFromBytes("two.mp3", []byte("this is not an audio stream at all")),
		uploadFromBytes("three.mp3", taggedMP3("Three", "Artist B", "Techno")),
	}

	outcomes, err := analyzer.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != len(uploads) {
		t.Fatalf("expected %d outcomes, got %d", len(uploads), len(outcomes))
	}

	if outcomes[0].Filename != "one.mp3" || outcomes[1].Filename != "two.mp3" || outcomes[2].Filename != "three.mp3" {
		t.Fatalf("outcome order does not match submission order: %+v", outcomes)
	}

	for _, i := range []int{0, 2} {
		if outcomes[i].Error != "" {
			t.Fatalf("outcome %d unexpectedly failed: %s", i, outcomes[i].Error)
		}
		if outcomes[i].BPM == nil {
			t.Fatalf("outcome %d missing bpm", i)
		}
		if outcomes[i].Title == "" || outcomes[i].Artist == "" || outcomes[i].Genre == "" {
			t.Fatalf("outcome %d missing metadata: %+v", i, outcomes[i])
		}
	}

	if outcomes[1].Error == "" {
		t.Fatal("expected an error outcome for the corrupt file")
	}
	if outcomes[1].BPM != nil || outcomes[1].Title != "" {
		t.Fatalf("error outcome must not carry analysis fields: %+v", outcomes[1])
	}
}

func TestAnalyzerTagFailureSkipsTempoEstimation(t *testing.T) {
	// A truncated tag container passes the audio sniff (ID3 magic) but
	// fails metadata extraction.
	corrupt := []byte{'I', 'D', '3', 3, 0, 0, 0x00, 0x00, 0x07, 0x68, 'T', 'I'}

	decoder := &stubDecoder{err: errors.New("decoder must not run after a tag failure")}
	analyzer := NewAnalyzer(decoder, t.TempDir(), 1)

	outcomes, err := analyzer.Run(context.Background(), []Upload{uploadFromBytes("broken.mp3", corrupt)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Error == "" {
		t.Fatal("expected a tag read failure")
	}
}

func TestAnalyzerEmptyFile(t *testing.T) {
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, t.TempDir(), 1)

	outcomes, err := analyzer.Run(context.Background(), []Upload{uploadFromBytes("empty.mp3", nil)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Error == "" {
		t.Fatal("expected an error outcome for an empty file")
	}
}

func TestAnalyzerOpenFailure(t *testing.T) {
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, t.TempDir(), 1)

	uploads := []Upload{{
		Filename: "gone.mp3",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("upload vanished")
		},
	}}

	outcomes, err := analyzer.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Error == "" {
		t.Fatal("expected an error outcome when the upload cannot be opened")
	}
}

func TestAnalyzerReleasesScratchStorage(t *testing.T) {
	scratch := t.TempDir()
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, scratch, 3)

	uploads := []Upload{
		uploadFromBytes("a.mp3", taggedMP3("A", "X", "Pop")),
		uploadFromBytes("b.mp3", []byte("garbage")),
		uploadFromBytes("c.mp3", taggedMP3("C", "Y", "Jazz")),
	}
	if _, err := analyzer.Run(context.Background(), uploads); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch files survived the batch: %d left", len(entries))
	}
}

func TestAnalyzerPreservesOrderUnderParallelism(t *testing.T) {
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, t.TempDir(), 8)

	names := []string{"t0.mp3", "t1.mp3", "t2.mp3", "t3.mp3", "t4.mp3", "t5.mp3"}
	uploads := make([]Upload, 0, len(names))
	for _, name := range names {
		uploads = append(uploads, uploadFromBytes(name, taggedMP3(name, "Artist", "Genre")))
	}

	outcomes, err := analyzer.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, outcome := range outcomes {
		if outcome.Filename != names[i] {
			t.Fatalf("position %d: got %q, want %q", i, outcome.Filename, names[i])
		}
	}
}

func TestAnalyzerHonorsContextCancellation(t *testing.T) {
	analyzer := NewAnalyzer(&stubDecoder{bpm: 120.0}, t.TempDir(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := analyzer.Run(ctx, []Upload{uploadFromBytes("a.mp3", taggedMP3("A", "B", "C"))}); err == nil {
		t.Fatal("expected error for a cancelled context")
	}
}

func TestIsAudioFilename(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"song.mp3", true},
		{"SONG.MP3", true},
		{"take.flac", true},
		{"take.wav", true},
		{"clip.m4a", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
	}
	for _, tc := range cases {
		if got := IsAudioFilename(tc.name); got != tc.want {
			t.Fatalf("IsAudioFilename(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
