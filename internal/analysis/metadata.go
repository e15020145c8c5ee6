package analysis

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// UnknownField is the sentinel stored for tag fields the file does not carry.
const UnknownField = "Unknown"

// Metadata holds the descriptive tags of one audio file. Fields are never
// empty; absent tags are reported as UnknownField.
type Metadata struct {
	Title  string
	Artist string
	Genre  string
}

// ExtractMetadata reads the embedded tag container of the audio file at path.
// A file without any tag container yields all-Unknown metadata and no error;
// only a structurally unreadable container is an error.
func ExtractMetadata(path string) (Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	meta := Metadata{
		Title:  UnknownField,
		Artist: UnknownField,
		Genre:  UnknownField,
	}

	parsed, err := tag.ReadFrom(file)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return meta, nil
		}
		return Metadata{}, fmt.Errorf("read tags: %w", err)
	}

	if title := strings.TrimSpace(parsed.Title()); title != "" {
		meta.Title = title
	}
	if artist := strings.TrimSpace(parsed.Artist()); artist != "" {
		meta.Artist = artist
	}
	if genre := strings.TrimSpace(parsed.Genre()); genre != "" {
		meta.Genre = genre
	}

	return meta, nil
}
