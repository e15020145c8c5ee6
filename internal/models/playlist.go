package models

import (
	"time"
)

// Playlist is a named, ordered snapshot of analyzed tracks owned by one user.
type Playlist struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Tracks    []Track   `json:"tracks" db:"-"`
}

// Track is one entry of a playlist. The metadata fields are optional;
// order_index is the zero-based playback position within the playlist.
type Track struct {
	ID         int      `json:"id" db:"id"`
	PlaylistID int      `json:"-" db:"playlist_id"`
	Filename   string   `json:"filename" db:"filename"`
	Title      *string  `json:"title,omitempty" db:"title"`
	Artist     *string  `json:"artist,omitempty" db:"artist"`
	Genre      *string  `json:"genre,omitempty" db:"genre"`
	BPM        *float64 `json:"bpm,omitempty" db:"bpm"`
	OrderIndex int      `json:"order_index" db:"order_index"`
}
