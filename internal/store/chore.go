package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// --- Template methods ---

const choreTemplateCols = `id, family_id, title, description, time_of_day,
	bucks_reward, required, frequency, days_of_week, active, archived,
	icon_url, created_at, updated_at`

func scanChoreTemplate(scanner interface{ Scan(...any) error }) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	var required, active, archived int
	var days string

	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.TimeOfDay,
		&t.BucksReward, &required, &t.Frequency, &days, &active, &archived,
		&t.IconURL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Required = required != 0
	t.Active = active != 0
	t.Archived = archived != 0
	unmarshalJSON(days, &t.DaysOfWeek)
	return &t, nil
}

func (s *ChoreStore) CreateTemplate(t *model.ChoreTemplate) (*model.ChoreTemplate, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_templates (family_id, title, description, time_of_day,
		 bucks_reward, required, frequency, days_of_week, active, icon_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FamilyID, t.Title, t.Description, t.TimeOfDay, t.BucksReward,
		boolInt(t.Required), t.Frequency, marshalJSON(t.DaysOfWeek),
		boolInt(t.Active), t.IconURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTemplate(id)
}

func (s *ChoreStore) GetTemplate(id int64) (*model.ChoreTemplate, error) {
	row := s.db.QueryRow(`SELECT `+choreTemplateCols+` FROM chore_templates WHERE id = ?`, id)
	t, err := scanChoreTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore template: %w", err)
	}
	return t, nil
}

// ListTemplates returns the family's templates; archived ones only when asked.
func (s *ChoreStore) ListTemplates(familyID int64, includeArchived bool) ([]model.ChoreTemplate, error) {
	q := `SELECT ` + choreTemplateCols + ` FROM chore_templates WHERE family_id = ?`
	if !includeArchived {
		q += ` AND archived = 0`
	}
	q += ` ORDER BY time_of_day ASC, title ASC`

	rows, err := s.db.Query(q, familyID)
	if err != nil {
		return nil, fmt.Errorf("list chore templates: %w", err)
	}
	defer rows.Close()

	var templates []model.ChoreTemplate
	for rows.Next() {
		t, err := scanChoreTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *ChoreStore) UpdateTemplate(t *model.ChoreTemplate) (*model.ChoreTemplate, error) {
	_, err := s.db.Exec(
		`UPDATE chore_templates SET title = ?, description = ?, time_of_day = ?,
		 bucks_reward = ?, required = ?, frequency = ?, days_of_week = ?,
		 active = ?, icon_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Title, t.Description, t.TimeOfDay, t.BucksReward, boolInt(t.Required),
		t.Frequency, marshalJSON(t.DaysOfWeek), boolInt(t.Active), t.IconURL, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore template: %w", err)
	}
	return s.GetTemplate(t.ID)
}

// ArchiveTemplate soft-deletes: history keeps referencing the row.
func (s *ChoreStore) ArchiveTemplate(id int64) error {
	_, err := s.db.Exec(
		`UPDATE chore_templates SET archived = 1, active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("archive chore template: %w", err)
	}
	return nil
}

// --- Schedule methods ---

const scheduleCols = `id, family_id, template_id, child_id, days_of_week, active, created_at, updated_at`

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.ChoreSchedule, error) {
	var c model.ChoreSchedule
	var active int
	var days string

	err := scanner.Scan(&c.ID, &c.FamilyID, &c.TemplateID, &c.ChildID, &days,
		&active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Active = active != 0
	unmarshalJSON(days, &c.DaysOfWeek)
	return &c, nil
}

// UpsertSchedule creates or replaces the schedule for (template, child).
func (s *ChoreStore) UpsertSchedule(familyID, templateID, childID int64, days []time.Weekday) (*model.ChoreSchedule, error) {
	_, err := s.db.Exec(
		`INSERT INTO chore_schedules (family_id, template_id, child_id, days_of_week, active)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT (template_id, child_id) DO UPDATE SET
		 days_of_week = excluded.days_of_week, active = 1, updated_at = CURRENT_TIMESTAMP`,
		familyID, templateID, childID, marshalJSON(days),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+scheduleCols+` FROM chore_schedules WHERE template_id = ? AND child_id = ?`,
		templateID, childID,
	)
	return scanSchedule(row)
}

func (s *ChoreStore) ListSchedules(familyID int64, activeOnly bool) ([]model.ChoreSchedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM chore_schedules WHERE family_id = ?`
	if activeOnly {
		q += ` AND active = 1`
	}

	rows, err := s.db.Query(q, familyID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.ChoreSchedule
	for rows.Next() {
		c, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *c)
	}
	return schedules, rows.Err()
}

func (s *ChoreStore) DeactivateSchedulesForTemplate(templateID int64) error {
	_, err := s.db.Exec(
		`UPDATE chore_schedules SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE template_id = ?`,
		templateID,
	)
	if err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}
	return nil
}

// --- Instance methods ---

const instanceCols = `id, family_id, template_id, child_id, date, status,
	bucks_awarded, mood, effort, photo_url, note, completed_at, resolved_by,
	resolved_at, created_at, updated_at`

func scanInstance(scanner interface{ Scan(...any) error }) (*model.ChoreInstance, error) {
	var c model.ChoreInstance
	var completedAt, resolvedAt sql.NullTime
	var resolvedBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.TemplateID, &c.ChildID, &c.Date, &c.Status,
		&c.BucksAwarded, &c.Mood, &c.Effort, &c.PhotoURL, &c.Note,
		&completedAt, &resolvedBy, &resolvedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	if resolvedBy.Valid {
		c.ResolvedBy = &resolvedBy.Int64
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	return &c, nil
}

// CreateInstance inserts one dated occurrence. The (template, child, date)
// unique index makes generation idempotent; callers treat a conflict as
// already-generated, not an error.
func (s *ChoreStore) CreateInstance(familyID, templateID, childID int64, date string) (*model.ChoreInstance, bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_instances (family_id, template_id, child_id, date)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (template_id, child_id, date) DO NOTHING`,
		familyID, templateID, childID, date,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert chore instance: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		row := s.db.QueryRow(
			`SELECT `+instanceCols+` FROM chore_instances
			 WHERE template_id = ? AND child_id = ? AND date = ?`,
			templateID, childID, date,
		)
		existing, err := scanInstance(row)
		if err != nil {
			return nil, false, fmt.Errorf("get existing instance: %w", err)
		}
		return existing, false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	inst, err := s.GetInstance(id)
	return inst, true, err
}

func (s *ChoreStore) GetInstance(id int64) (*model.ChoreInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM chore_instances WHERE id = ?`, id)
	c, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore instance: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListInstancesForDate(familyID int64, date string) ([]model.ChoreInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM chore_instances WHERE family_id = ? AND date = ? ORDER BY child_id ASC, id ASC`,
		familyID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances for date: %w", err)
	}
	defer rows.Close()

	var instances []model.ChoreInstance
	for rows.Next() {
		c, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore instance: %w", err)
		}
		instances = append(instances, *c)
	}
	return instances, rows.Err()
}

func (s *ChoreStore) ListInstancesForChild(familyID, childID int64, date string) ([]model.ChoreInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM chore_instances
		 WHERE family_id = ? AND child_id = ? AND date = ? ORDER BY id ASC`,
		familyID, childID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances for child: %w", err)
	}
	defer rows.Close()

	var instances []model.ChoreInstance
	for rows.Next() {
		c, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore instance: %w", err)
		}
		instances = append(instances, *c)
	}
	return instances, rows.Err()
}

// MarkCompleted records completion details and the award in one statement.
func (s *ChoreStore) MarkCompleted(id int64, status model.ChoreStatus, bucksAwarded int, mood string, effort int, photoURL, note string) (*model.ChoreInstance, error) {
	_, err := s.db.Exec(
		`UPDATE chore_instances SET status = ?, bucks_awarded = ?, mood = ?,
		 effort = ?, photo_url = ?, note = ?, completed_at = CURRENT_TIMESTAMP,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, bucksAwarded, mood, effort, photoURL, note, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	return s.GetInstance(id)
}

// SetAward updates the awarded amount on an already-resolved instance.
func (s *ChoreStore) SetAward(id int64, bucksAwarded int) (*model.ChoreInstance, error) {
	_, err := s.db.Exec(
		`UPDATE chore_instances SET bucks_awarded = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		bucksAwarded, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set award: %w", err)
	}
	return s.GetInstance(id)
}

// MarkRejected stamps the rejecting parent and zeroes nothing: the ledger
// reversal happens in the service, not here.
func (s *ChoreStore) MarkRejected(id, parentID int64) (*model.ChoreInstance, error) {
	_, err := s.db.Exec(
		`UPDATE chore_instances SET status = ?, resolved_by = ?,
		 resolved_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.ChoreRejected, parentID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark rejected: %w", err)
	}
	return s.GetInstance(id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
