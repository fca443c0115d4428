package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Template methods ---

const rewardTemplateCols = `id, family_id, title, description, bucks_price,
	category, quantity, expires_at, active, image_url, child_ids,
	created_at, updated_at`

func scanRewardTemplate(scanner interface{ Scan(...any) error }) (*model.RewardTemplate, error) {
	var t model.RewardTemplate
	var active int
	var expiresAt sql.NullTime
	var childIDs string

	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.BucksPrice,
		&t.Category, &t.Quantity, &expiresAt, &active, &t.ImageURL, &childIDs,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Active = active != 0
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	unmarshalJSON(childIDs, &t.ChildIDs)
	return &t, nil
}

func (s *RewardStore) CreateTemplate(t *model.RewardTemplate) (*model.RewardTemplate, error) {
	var expiresAt sql.NullTime
	if t.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: t.ExpiresAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO reward_templates (family_id, title, description, bucks_price,
		 category, quantity, expires_at, active, image_url, child_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FamilyID, t.Title, t.Description, t.BucksPrice, t.Category,
		t.Quantity, expiresAt, boolInt(t.Active), t.ImageURL, marshalJSON(t.ChildIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTemplate(id)
}

func (s *RewardStore) GetTemplate(id int64) (*model.RewardTemplate, error) {
	row := s.db.QueryRow(`SELECT `+rewardTemplateCols+` FROM reward_templates WHERE id = ?`, id)
	t, err := scanRewardTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward template: %w", err)
	}
	return t, nil
}

// FindTemplateByTitle resolves the bulk-import idempotency key.
func (s *RewardStore) FindTemplateByTitle(familyID int64, title string) (*model.RewardTemplate, error) {
	row := s.db.QueryRow(
		`SELECT `+rewardTemplateCols+` FROM reward_templates WHERE family_id = ? AND title = ? LIMIT 1`,
		familyID, title,
	)
	t, err := scanRewardTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reward template: %w", err)
	}
	return t, nil
}

func (s *RewardStore) ListTemplates(familyID int64, activeOnly bool) ([]model.RewardTemplate, error) {
	q := `SELECT ` + rewardTemplateCols + ` FROM reward_templates WHERE family_id = ?`
	if activeOnly {
		q += ` AND active = 1`
	}
	q += ` ORDER BY category ASC, bucks_price ASC, title ASC`

	rows, err := s.db.Query(q, familyID)
	if err != nil {
		return nil, fmt.Errorf("list reward templates: %w", err)
	}
	defer rows.Close()

	var templates []model.RewardTemplate
	for rows.Next() {
		t, err := scanRewardTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *RewardStore) UpdateTemplate(t *model.RewardTemplate) (*model.RewardTemplate, error) {
	var expiresAt sql.NullTime
	if t.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: t.ExpiresAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE reward_templates SET title = ?, description = ?, bucks_price = ?,
		 category = ?, quantity = ?, expires_at = ?, active = ?, image_url = ?,
		 child_ids = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Title, t.Description, t.BucksPrice, t.Category, t.Quantity, expiresAt,
		boolInt(t.Active), t.ImageURL, marshalJSON(t.ChildIDs), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward template: %w", err)
	}
	return s.GetTemplate(t.ID)
}

func (s *RewardStore) DeactivateTemplate(id int64) error {
	_, err := s.db.Exec(
		`UPDATE reward_templates SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate reward template: %w", err)
	}
	return nil
}

// DecrementQuantity takes one unit of limited stock. It returns false when
// the template is unlimited or already empty; only a positive quantity row
// is decremented, so concurrent requests cannot drive it negative.
func (s *RewardStore) DecrementQuantity(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reward_templates SET quantity = quantity - 1,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ? AND quantity > 0`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("decrement quantity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// --- Instance methods ---

const rewardInstanceCols = `id, family_id, template_id, child_id, status,
	bucks_price, request_note, scheduled_date, approved_by, approved_at,
	approval_note, rejected_by, rejected_at, rejection_reason, fulfilled_by,
	fulfilled_at, calendar_event_id, memory_photos, memory_note, memory_rating,
	requested_at, updated_at`

func scanRewardInstance(scanner interface{ Scan(...any) error }) (*model.RewardInstance, error) {
	var r model.RewardInstance
	var scheduledDate, approvedAt, rejectedAt, fulfilledAt sql.NullTime
	var approvedBy, rejectedBy, fulfilledBy, calendarEventID sql.NullInt64
	var photos string

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.TemplateID, &r.ChildID, &r.Status, &r.BucksPrice,
		&r.RequestNote, &scheduledDate, &approvedBy, &approvedAt, &r.ApprovalNote,
		&rejectedBy, &rejectedAt, &r.RejectionReason, &fulfilledBy, &fulfilledAt,
		&calendarEventID, &photos, &r.MemoryNote, &r.MemoryRating,
		&r.RequestedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduledDate.Valid {
		r.ScheduledDate = &scheduledDate.Time
	}
	if approvedBy.Valid {
		r.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		r.ApprovedAt = &approvedAt.Time
	}
	if rejectedBy.Valid {
		r.RejectedBy = &rejectedBy.Int64
	}
	if rejectedAt.Valid {
		r.RejectedAt = &rejectedAt.Time
	}
	if fulfilledBy.Valid {
		r.FulfilledBy = &fulfilledBy.Int64
	}
	if fulfilledAt.Valid {
		r.FulfilledAt = &fulfilledAt.Time
	}
	if calendarEventID.Valid {
		r.CalendarEventID = &calendarEventID.Int64
	}
	unmarshalJSON(photos, &r.MemoryPhotos)
	if r.MemoryPhotos == nil {
		r.MemoryPhotos = []string{}
	}
	return &r, nil
}

func (s *RewardStore) CreateInstance(familyID, templateID, childID int64, bucksPrice int, requestNote string, scheduledDate *time.Time) (*model.RewardInstance, error) {
	var sched sql.NullTime
	if scheduledDate != nil {
		sched = sql.NullTime{Time: scheduledDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO reward_instances (family_id, template_id, child_id, status,
		 bucks_price, request_note, scheduled_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, templateID, childID, model.RewardRequested, bucksPrice,
		requestNote, sched,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetInstance(id)
}

func (s *RewardStore) GetInstance(id int64) (*model.RewardInstance, error) {
	row := s.db.QueryRow(`SELECT `+rewardInstanceCols+` FROM reward_instances WHERE id = ?`, id)
	r, err := scanRewardInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward instance: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListInstances(familyID int64, status model.RewardStatus) ([]model.RewardInstance, error) {
	q := `SELECT ` + rewardInstanceCols + ` FROM reward_instances WHERE family_id = ?`
	args := []any{familyID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY requested_at DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reward instances: %w", err)
	}
	defer rows.Close()

	var instances []model.RewardInstance
	for rows.Next() {
		r, err := scanRewardInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward instance: %w", err)
		}
		instances = append(instances, *r)
	}
	return instances, rows.Err()
}

func (s *RewardStore) ListInstancesForChild(familyID, childID int64, status model.RewardStatus) ([]model.RewardInstance, error) {
	q := `SELECT ` + rewardInstanceCols + ` FROM reward_instances WHERE family_id = ? AND child_id = ?`
	args := []any{familyID, childID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY requested_at DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list child reward instances: %w", err)
	}
	defer rows.Close()

	var instances []model.RewardInstance
	for rows.Next() {
		r, err := scanRewardInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward instance: %w", err)
		}
		instances = append(instances, *r)
	}
	return instances, rows.Err()
}

func (s *RewardStore) MarkApproved(id, parentID int64, note string, scheduledDate *time.Time) (*model.RewardInstance, error) {
	if scheduledDate != nil {
		_, err := s.db.Exec(
			`UPDATE reward_instances SET status = ?, approved_by = ?,
			 approved_at = CURRENT_TIMESTAMP, approval_note = ?, scheduled_date = ?,
			 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.RewardApproved, parentID, note, scheduledDate.UTC(), id,
		)
		if err != nil {
			return nil, fmt.Errorf("mark approved: %w", err)
		}
	} else {
		_, err := s.db.Exec(
			`UPDATE reward_instances SET status = ?, approved_by = ?,
			 approved_at = CURRENT_TIMESTAMP, approval_note = ?,
			 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.RewardApproved, parentID, note, id,
		)
		if err != nil {
			return nil, fmt.Errorf("mark approved: %w", err)
		}
	}
	return s.GetInstance(id)
}

func (s *RewardStore) MarkRejected(id, parentID int64, reason string) (*model.RewardInstance, error) {
	_, err := s.db.Exec(
		`UPDATE reward_instances SET status = ?, rejected_by = ?,
		 rejected_at = CURRENT_TIMESTAMP, rejection_reason = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.RewardRejected, parentID, reason, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark rejected: %w", err)
	}
	return s.GetInstance(id)
}

func (s *RewardStore) MarkFulfilled(id, parentID int64) (*model.RewardInstance, error) {
	_, err := s.db.Exec(
		`UPDATE reward_instances SET status = ?, fulfilled_by = ?,
		 fulfilled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.RewardFulfilled, parentID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark fulfilled: %w", err)
	}
	return s.GetInstance(id)
}

func (s *RewardStore) SetCalendarEventID(id, eventID int64) error {
	_, err := s.db.Exec(
		`UPDATE reward_instances SET calendar_event_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		eventID, id,
	)
	if err != nil {
		return fmt.Errorf("set calendar event id: %w", err)
	}
	return nil
}

// SetMemories replaces note and rating but the photo list the caller passes
// must already include prior photos: append semantics live in the service.
func (s *RewardStore) SetMemories(id int64, photos []string, note string, rating int) (*model.RewardInstance, error) {
	_, err := s.db.Exec(
		`UPDATE reward_instances SET memory_photos = ?, memory_note = ?,
		 memory_rating = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		marshalJSON(photos), note, rating, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set memories: %w", err)
	}
	return s.GetInstance(id)
}
