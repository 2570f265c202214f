package dossier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const dossierColumns = `id, patient_id, blood_type, allergies, chronic_conditions, current_treatments,
	emergency_contact_name, emergency_contact_phone, notes, created_at, updated_at, updated_by`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanDossier(row *sql.Row) (*Dossier, error) {
	var d Dossier
	var (
		bloodType, contactName, contactPhone, notes, updatedBy sql.NullString
		updatedAt                                              sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&bloodType,
		pq.Array(&d.Allergies),
		pq.Array(&d.ChronicConditions),
		pq.Array(&d.CurrentTreatments),
		&contactName,
		&contactPhone,
		&notes,
		&d.CreatedAt,
		&updatedAt,
		&updatedBy,
	)
	if err != nil {
		return nil, err
	}
	d.BloodType = nullString(bloodType)
	d.EmergencyContactName = nullString(contactName)
	d.EmergencyContactPhone = nullString(contactPhone)
	d.Notes = nullString(notes)
	d.UpdatedBy = nullString(updatedBy)
	if updatedAt.Valid {
		d.UpdatedAt = &updatedAt.Time
	}
	if d.Allergies == nil {
		d.Allergies = []string{}
	}
	if d.ChronicConditions == nil {
		d.ChronicConditions = []string{}
	}
	if d.CurrentTreatments == nil {
		d.CurrentTreatments = []string{}
	}
	return &d, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// emptyToNull stores blank optional text as NULL.
func emptyToNull(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func (r *Repository) GetByPatient(ctx context.Context, patientID string) (*Dossier, error) {
	d, err := scanDossier(r.db.QueryRowContext(ctx,
		`SELECT `+dossierColumns+` FROM dossiers WHERE patient_id = $1`, patientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDossierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dossier: %w", err)
	}
	return d, nil
}

func (r *Repository) Update(ctx context.Context, patientID, actorID string, req UpdateRequest) (*Dossier, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	set := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if req.BloodType != nil {
		set("blood_type", emptyToNull(*req.BloodType))
	}
	if req.Allergies != nil {
		set("allergies", pq.Array(*req.Allergies))
	}
	if req.ChronicConditions != nil {
		set("chronic_conditions", pq.Array(*req.ChronicConditions))
	}
	if req.CurrentTreatments != nil {
		set("current_treatments", pq.Array(*req.CurrentTreatments))
	}
	if req.EmergencyContactName != nil {
		set("emergency_contact_name", emptyToNull(*req.EmergencyContactName))
	}
	if req.EmergencyContactPhone != nil {
		set("emergency_contact_phone", emptyToNull(*req.EmergencyContactPhone))
	}
	if req.Notes != nil {
		set("notes", emptyToNull(*req.Notes))
	}
	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	set("updated_by", actorID)
	updates = append(updates, "updated_at = NOW()")
	args = append(args, patientID)

	query := fmt.Sprintf(`
		UPDATE dossiers
		SET %s
		WHERE patient_id = $%d
		RETURNING %s`, strings.Join(updates, ", "), argIndex, dossierColumns)

	d, err := scanDossier(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDossierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update dossier: %w", err)
	}
	return d, nil
}

func (r *Repository) CreateEntry(ctx context.Context, dossierID, authorID string, req CreateEntryRequest) (*Entry, error) {
	e := Entry{DossierID: dossierID, AuthorID: authorID, Type: req.Type, Title: req.Title, Content: req.Content}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dossier_entries (dossier_id, author_id, entry_type, title, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		dossierID, authorID, req.Type, req.Title, req.Content,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create dossier entry: %w", err)
	}
	return &e, nil
}

const entrySelect = `
	SELECT e.id, e.dossier_id, e.author_id, u.first_name || ' ' || u.last_name,
	       e.entry_type, e.title, e.content, e.created_at
	FROM dossier_entries e
	JOIN users u ON u.id = e.author_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.DossierID, &e.AuthorID, &e.AuthorName, &e.Type, &e.Title, &e.Content, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns entries newest first.
func (r *Repository) ListEntries(ctx context.Context, dossierID string, f EntryFilter, limit, offset int) ([]Entry, int, error) {
	where := `e.dossier_id = $1`
	args := []interface{}{dossierID}
	if f.Type != "" {
		args = append(args, f.Type)
		where += ` AND e.entry_type = $2`
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dossier_entries e WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dossier entries: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY e.created_at DESC
		LIMIT $%d OFFSET $%d`, entrySelect, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dossier entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan dossier entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating dossier entries: %w", err)
	}
	return entries, total, nil
}

func (r *Repository) GetEntry(ctx context.Context, dossierID, entryID string) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx,
		entrySelect+` WHERE e.dossier_id = $1 AND e.id = $2`, dossierID, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dossier entry: %w", err)
	}
	return e, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, dossierID, entryID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM dossier_entries WHERE dossier_id = $1 AND id = $2`, dossierID, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete dossier entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dossier entry: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
