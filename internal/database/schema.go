package database

import (
	"fmt"
	"log"
)

// CreateTables creates all required tables in the database. Safe to run on
// every process start.
func CreateTables() {
	createUsersTable()
	createPlaylistsTable()
	createTracksTable()
}

// createUsersTable creates the users table
func createUsersTable() {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create users table:", err)
	}

	fmt.Println("Users table created successfully")
}

func createPlaylistsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS playlists (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create playlists table:", err)
	}

	ensurePlaylistsSchema()
	fmt.Println("Playlists table created successfully")
}

func createTracksTable() {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id SERIAL PRIMARY KEY,
		playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		filename VARCHAR(500) NOT NULL,
		title VARCHAR(255),
		artist VARCHAR(255),
		genre VARCHAR(100),
		bpm DOUBLE PRECISION,
		order_index INTEGER NOT NULL,
		UNIQUE(playlist_id, order_index)
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create tracks table:", err)
	}

	ensureTracksSchema()
	fmt.Println("Tracks table created successfully")
}

func ensurePlaylistsSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS playlists_user_created_idx ON playlists(user_id, created_at DESC, id DESC)`); err != nil {
		log.Fatal("Failed to ensure playlists user/created index:", err)
	}
}

func ensureTracksSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS tracks_playlist_order_idx ON tracks(playlist_id, order_index)`); err != nil {
		log.Fatal("Failed to ensure tracks playlist/order index:", err)
	}
}
