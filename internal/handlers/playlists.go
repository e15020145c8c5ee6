package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/database"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// trackDescriptor is one entry of a save request. Any order_index supplied
// by the client is ignored; the store assigns positions from the slice
// order.
type trackDescriptor struct {
	Filename string   `json:"filename"`
	Title    *string  `json:"title"`
	Artist   *string  `json:"artist"`
	Genre    *string  `json:"genre"`
	BPM      *float64 `json:"bpm"`
}

type savePlaylistRequest struct {
	Name   string            `json:"name"`
	Tracks []trackDescriptor `json:"tracks"`
}

func contextUserID(c *gin.Context) (int, bool) {
	userIDValue, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	userID, ok := userIDValue.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return userID, true
}

// savePlaylist writes the playlist row plus one track row per descriptor in
// a single transaction. Either everything becomes visible or nothing does.
func savePlaylist(db *sql.DB, userID int, name string, tracks []trackDescriptor) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var playlistID int
	err = tx.QueryRow(
		`INSERT INTO playlists (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID,
		name,
	).Scan(&playlistID)
	if err != nil {
		return 0, err
	}

	for position, track := range tracks {
		_, err = tx.Exec(
			`INSERT INTO tracks (playlist_id, filename, title, artist, genre, bpm, order_index)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			playlistID,
			track.Filename,
			track.Title,
			track.Artist,
			track.Genre,
			track.BPM,
			position,
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return playlistID, nil
}

// SavePlaylist persists a named, ordered snapshot of analyzed tracks for
// the authenticated user.
func SavePlaylist(c *gin.Context) {
	userID, ok := contextUserID(c)
	if !ok {
		return
	}

	var req savePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Playlist name is required"})
		return
	}
	if len(req.Tracks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one track is required"})
		return
	}
	for _, track := range req.Tracks {
		if strings.TrimSpace(track.Filename) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Every track needs a filename"})
			return
		}
	}

	playlistID, err := savePlaylist(database.DB, userID, name, req.Tracks)
	if err != nil {
		log.Printf("Error saving playlist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving playlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Playlist saved successfully",
		"playlist_id": playlistID,
	})
}

// loadPlaylists returns the user's playlists newest first, each with its
// tracks ascending by order_index.
func loadPlaylists(db *sql.DB, userID int) ([]models.Playlist, error) {
	rows, err := db.Query(
		`SELECT id, user_id, name, created_at
		 FROM playlists
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	playlistIDs := make([]int, 0)
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.UserID, &playlist.Name, &playlist.CreatedAt); err != nil {
			return nil, err
		}
		playlist.Tracks = make([]models.Track, 0)
		playlists = append(playlists, playlist)
		playlistIDs = append(playlistIDs, playlist.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return playlists, nil
	}

	trackRows, err := db.Query(
		`SELECT id, playlist_id, filename, title, artist, genre, bpm, order_index
		 FROM tracks
		 WHERE playlist_id = ANY($1)
		 ORDER BY playlist_id, order_index ASC`,
		pq.Array(playlistIDs),
	)
	if err != nil {
		return nil, err
	}
	defer trackRows.Close()

	byPlaylist := make(map[int]int, len(playlists))
	for i, playlist := range playlists {
		byPlaylist[playlist.ID] = i
	}

	for trackRows.Next() {
		var track models.Track
		var title, artist, genre sql.NullString
		var bpm sql.NullFloat64

		err := trackRows.Scan(
			&track.ID,
			&track.PlaylistID,
			&track.Filename,
			&title,
			&artist,
			&genre,
			&bpm,
			&track.OrderIndex,
		)
		if err != nil {
			return nil, err
		}

		if title.Valid {
			track.Title = &title.String
		}
		if artist.Valid {
			track.Artist = &artist.String
		}
		if genre.Valid {
			track.Genre = &genre.String
		}
		if bpm.Valid {
			track.BPM = &bpm.Float64
		}

		if i, ok := byPlaylist[track.PlaylistID]; ok {
			playlists[i].Tracks = append(playlists[i].Tracks, track)
		}
	}
	if err := trackRows.Err(); err != nil {
		return nil, err
	}

	return playlists, nil
}

// ListPlaylists returns every playlist of the authenticated user with
// tracks in their original save order.
func ListPlaylists(c *gin.Context) {
	userID, ok := contextUserID(c)
	if !ok {
		return
	}

	playlists, err := loadPlaylists(database.DB, userID)
	if err != nil {
		log.Printf("Error retrieving playlists: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving playlists"})
		return
	}

	c.JSON(http.StatusOK, playlists)
}
