package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, family_id, title, description, location, event_type,
	start_time, end_time, timezone, status, child_id, child_name,
	attending_parent_id, attendees, documents, created_by, last_modified_by,
	created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var childID, parentID sql.NullInt64
	var attendees, documents string

	err := scanner.Scan(
		&e.ID, &e.FamilyID, &e.Title, &e.Description, &e.Location, &e.EventType,
		&e.StartTime, &e.EndTime, &e.Timezone, &e.Status, &childID, &e.ChildName,
		&parentID, &attendees, &documents, &e.CreatedBy, &e.LastModifiedBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		e.ChildID = &childID.Int64
	}
	if parentID.Valid {
		e.AttendingParentID = &parentID.Int64
	}
	unmarshalJSON(attendees, &e.Attendees)
	unmarshalJSON(documents, &e.Documents)
	return &e, nil
}

func (s *EventStore) Create(e *model.Event) (*model.Event, error) {
	var childID, parentID sql.NullInt64
	if e.ChildID != nil {
		childID = sql.NullInt64{Int64: *e.ChildID, Valid: true}
	}
	if e.AttendingParentID != nil {
		parentID = sql.NullInt64{Int64: *e.AttendingParentID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO events (family_id, title, description, location, event_type,
		 start_time, end_time, timezone, status, child_id, child_name,
		 attending_parent_id, attendees, documents, created_by, last_modified_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FamilyID, e.Title, e.Description, e.Location, e.EventType,
		e.StartTime.UTC(), e.EndTime.UTC(), e.Timezone, e.Status, childID,
		e.ChildName, parentID, marshalJSON(e.Attendees), marshalJSON(e.Documents),
		e.CreatedBy, e.LastModifiedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) Update(e *model.Event) (*model.Event, error) {
	var childID, parentID sql.NullInt64
	if e.ChildID != nil {
		childID = sql.NullInt64{Int64: *e.ChildID, Valid: true}
	}
	if e.AttendingParentID != nil {
		parentID = sql.NullInt64{Int64: *e.AttendingParentID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, location = ?,
		 event_type = ?, start_time = ?, end_time = ?, timezone = ?, status = ?,
		 child_id = ?, child_name = ?, attending_parent_id = ?, attendees = ?,
		 documents = ?, last_modified_by = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Title, e.Description, e.Location, e.EventType, e.StartTime.UTC(),
		e.EndTime.UTC(), e.Timezone, e.Status, childID, e.ChildName, parentID,
		marshalJSON(e.Attendees), marshalJSON(e.Documents), e.LastModifiedBy,
		e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(e.ID)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListByDateRange returns the family's events with a start time inside
// [start, end], ascending. It falls back to an unordered family fetch with an
// in-memory filter and sort when the range query cannot use its index.
func (s *EventStore) ListByDateRange(familyID int64, start, end time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE family_id = ? AND start_time >= ? AND start_time <= ?
		 ORDER BY start_time ASC`,
		familyID, start.UTC(), end.UTC(),
	)
	if err != nil {
		if isIndexError(err) {
			return s.listByDateRangeFallback(familyID, start, end)
		}
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// listByDateRangeFallback fetches everything for the family and filters and
// sorts in memory.
func (s *EventStore) listByDateRangeFallback(familyID int64, start, end time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT `+eventCols+` FROM events WHERE family_id = ?`, familyID)
	if err != nil {
		return nil, fmt.Errorf("query events fallback: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.StartTime.Before(start) || e.StartTime.After(end) {
			continue
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Insertion sort: fallback result sets are small.
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].StartTime.Before(events[j-1].StartTime); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	return events, nil
}

func isIndexError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such index")
}
