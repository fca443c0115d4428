package store

import (
	"database/sql"
	"fmt"

	"github.com/oakhollow/hearth/internal/model"
)

type StoryStore struct {
	db *sql.DB
}

func NewStoryStore(db *sql.DB) *StoryStore {
	return &StoryStore{db: db}
}

const storyCols = `id, family_id, kind, source_id, title, body, photo_urls, created_at`

func scanStory(scanner interface{ Scan(...any) error }) (*model.StoryEntry, error) {
	var e model.StoryEntry
	var photos string

	err := scanner.Scan(&e.ID, &e.FamilyID, &e.Kind, &e.SourceID, &e.Title,
		&e.Body, &photos, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	unmarshalJSON(photos, &e.PhotoURLs)
	return &e, nil
}

func (s *StoryStore) Append(familyID int64, kind string, sourceID int64, title, body string, photoURLs []string) (*model.StoryEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO story_entries (family_id, kind, source_id, title, body, photo_urls)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, kind, sourceID, title, body, marshalJSON(photoURLs),
	)
	if err != nil {
		return nil, fmt.Errorf("insert story entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+storyCols+` FROM story_entries WHERE id = ?`, id)
	e, err := scanStory(row)
	if err != nil {
		return nil, fmt.Errorf("get story entry: %w", err)
	}
	return e, nil
}

func (s *StoryStore) List(familyID int64, limit int) ([]model.StoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT `+storyCols+` FROM story_entries WHERE family_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list story entries: %w", err)
	}
	defer rows.Close()

	var entries []model.StoryEntry
	for rows.Next() {
		e, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
