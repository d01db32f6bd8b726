package db

import (
	"time"

	"github.com/tgienger/stn/internal/models"
)

// RecordVisit marks a note as opened now
func (db *DB) RecordVisit(noteID, title string) error {
	_, err := db.Exec(`
		INSERT INTO recent_notes (note_id, title, visited_at) VALUES (?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET title = excluded.title, visited_at = excluded.visited_at
	`, noteID, title, time.Now().UTC())
	return err
}

// RecentNotes returns the most recently opened notes, newest first
func (db *DB) RecentNotes(limit int) ([]models.RecentNote, error) {
	rows, err := db.Query(`
		SELECT note_id, title, visited_at
		FROM recent_notes ORDER BY visited_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []models.RecentNote
	for rows.Next() {
		var r models.RecentNote
		if err := rows.Scan(&r.NoteID, &r.Title, &r.VisitedAt); err != nil {
			return nil, err
		}
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// ForgetNote removes a note from the history, e.g. after permanent deletion
func (db *DB) ForgetNote(noteID string) error {
	_, err := db.Exec("DELETE FROM recent_notes WHERE note_id = ?", noteID)
	return err
}

// ClearRecent empties the history, used on logout
func (db *DB) ClearRecent() error {
	_, err := db.Exec("DELETE FROM recent_notes")
	return err
}
