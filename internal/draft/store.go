package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"worldip/internal/config"
	"worldip/internal/ownership"
)

// Store manages draft persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open connects to the draft database in the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DraftDBPath())
}

// OpenPath initializes or connects to the database at dbPath and applies
// migrations.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: func() time.Time { return time.Now().UTC() }}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new open draft. The id and timestamps are assigned here;
// a draft without shares is solely owned by its owner.
func (s *Store) Create(ctx context.Context, d *Draft) (*Draft, error) {
	if d == nil {
		return nil, errors.New("draft is nil")
	}
	if d.Owner == "" {
		return nil, errors.New("draft owner is required")
	}
	if strings.TrimSpace(d.Fingerprint) == "" {
		return nil, errors.New("draft fingerprint is required")
	}
	created := *d
	created.ID = uuid.NewString()
	created.Fingerprint = strings.ToLower(strings.TrimSpace(created.Fingerprint))
	created.Status = StatusOpen
	created.CertificateID = ""
	created.TransactionHash = ""
	if len(created.Shares) == 0 {
		created.Shares = ownership.Sole(created.Owner)
	}
	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	sharesJSON, err := json.Marshal(created.Shares)
	if err != nil {
		return nil, fmt.Errorf("marshal shares: %w", err)
	}
	timestamp := now.Format(timeLayout)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO drafts (
            id, owner, fingerprint, input_kind, file_name, file_format, size_bytes,
            description, metadata_uri, shares_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID,
		created.Owner.String(),
		created.Fingerprint,
		created.InputKind,
		nullableString(created.FileName),
		nullableString(created.FileFormat),
		created.SizeBytes,
		nullableString(created.Description),
		nullableString(created.MetadataURI),
		string(sharesJSON),
		string(created.Status),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	return &created, nil
}

// Get fetches a draft by id. A missing draft yields nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Draft, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

// Resolve fetches a draft by full id or unique id prefix. A prefix matching
// nothing yields nil, nil.
func (s *Store) Resolve(ctx context.Context, idOrPrefix string) (*Draft, error) {
	idOrPrefix = strings.ToLower(strings.TrimSpace(idOrPrefix))
	if idOrPrefix == "" {
		return nil, nil
	}
	if d, err := s.Get(ctx, idOrPrefix); err != nil || d != nil {
		return d, err
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	rows, err := s.db.QueryContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve draft: %w", err)
	}
	defer rows.Close()
	drafts, err := scanDrafts(rows)
	if err != nil {
		return nil, fmt.Errorf("resolve draft: %w", err)
	}
	switch len(drafts) {
	case 0:
		return nil, nil
	case 1:
		return drafts[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}

// List returns drafts ordered by creation time. An empty owner lists every
// draft.
func (s *Store) List(ctx context.Context, owner ownership.Address) ([]*Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts`
	var args []any
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner.String())
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	drafts, err := scanDrafts(rows)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// FindByFingerprint returns the drafts carrying the given fingerprint.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]*Draft, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE fingerprint = ? ORDER BY rowid`,
		strings.ToLower(strings.TrimSpace(fingerprint)),
	)
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	defer rows.Close()
	drafts, err := scanDrafts(rows)
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return drafts, nil
}

// Save persists the editable fields of an open draft.
func (s *Store) Save(ctx context.Context, d *Draft) error {
	if d == nil {
		return errors.New("draft is nil")
	}
	fingerprint := strings.ToLower(strings.TrimSpace(d.Fingerprint))
	if fingerprint == "" {
		return errors.New("draft fingerprint is required")
	}
	sharesJSON, err := json.Marshal(d.Shares)
	if err != nil {
		return fmt.Errorf("marshal shares: %w", err)
	}
	updated := s.now()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE drafts
         SET fingerprint = ?, input_kind = ?, file_name = ?, file_format = ?, size_bytes = ?,
             description = ?, metadata_uri = ?, shares_json = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		fingerprint,
		d.InputKind,
		nullableString(d.FileName),
		nullableString(d.FileFormat),
		d.SizeBytes,
		nullableString(d.Description),
		nullableString(d.MetadataURI),
		string(sharesJSON),
		updated.Format(timeLayout),
		d.ID,
		string(StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if err := s.checkAffected(ctx, res, d.ID); err != nil {
		return err
	}
	d.Fingerprint = fingerprint
	d.UpdatedAt = updated
	return nil
}

// MarkSubmitted records the certificate the registry issued for the draft.
// Submitted drafts can no longer be edited.
func (s *Store) MarkSubmitted(ctx context.Context, id, certificateID, transactionHash string) error {
	if strings.TrimSpace(certificateID) == "" {
		return errors.New("certificate id is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE drafts SET status = ?, certificate_id = ?, transaction_hash = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusSubmitted),
		certificateID,
		nullableString(transactionHash),
		s.now().Format(timeLayout),
		id,
		string(StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return s.checkAffected(ctx, res, id)
}

// Delete removes a draft regardless of status.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// checkAffected distinguishes a missing draft from a submitted one after a
// status-guarded update touched no rows.
func (s *Store) checkAffected(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s (certificate %s)", ErrSubmitted, id, existing.CertificateID)
}
