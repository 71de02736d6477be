package link

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Repository defines the interface for link persistence.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Link, error)
	List(ctx context.Context) ([]Link, error)
	ListByChannel(ctx context.Context, channelUID string) ([]Link, error)
	ListByItem(ctx context.Context, itemName string) ([]Link, error)
	Create(ctx context.Context, l *Link) error
	Update(ctx context.Context, l *Link) error
	Delete(ctx context.Context, id string) error
}

const linkColumns = `id, channel_uid, channel_kind, channel_type_uid, item_name, item_type,
			profile_type_uid, configuration, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a link by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`

	l, err := scanLinkRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("querying link by id: %w", err)
	}
	return l, nil
}

// List retrieves all links ordered by channel then item.
func (r *SQLiteRepository) List(ctx context.Context) ([]Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY channel_uid, item_name`
	return r.queryLinks(ctx, query)
}

// ListByChannel retrieves all links of one channel.
func (r *SQLiteRepository) ListByChannel(ctx context.Context, channelUID string) ([]Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE channel_uid = ? ORDER BY item_name`
	return r.queryLinks(ctx, query, channelUID)
}

// ListByItem retrieves all links of one item.
func (r *SQLiteRepository) ListByItem(ctx context.Context, itemName string) ([]Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE item_name = ? ORDER BY channel_uid`
	return r.queryLinks(ctx, query, itemName)
}

// Create inserts a new link.
func (r *SQLiteRepository) Create(ctx context.Context, l *Link) error {
	configJSON, err := marshalConfiguration(l.Configuration)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	query := `
		INSERT INTO links (
			id, channel_uid, channel_kind, channel_type_uid, item_name, item_type,
			profile_type_uid, configuration, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		l.ID,
		l.ChannelUID,
		string(l.ChannelKind),
		nullableString(string(l.ChannelTypeUID)),
		l.ItemName,
		nullableString(l.ItemType),
		nullableString(string(l.ProfileTypeUID)),
		configJSON,
		l.CreatedAt.Format(time.RFC3339),
		l.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrLinkExists
		}
		return fmt.Errorf("inserting link: %w", err)
	}
	return nil
}

// Update modifies an existing link.
func (r *SQLiteRepository) Update(ctx context.Context, l *Link) error {
	configJSON, err := marshalConfiguration(l.Configuration)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	l.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE links SET
			channel_uid = ?, channel_kind = ?, channel_type_uid = ?, item_name = ?,
			item_type = ?, profile_type_uid = ?, configuration = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		l.ChannelUID,
		string(l.ChannelKind),
		nullableString(string(l.ChannelTypeUID)),
		l.ItemName,
		nullableString(l.ItemType),
		nullableString(string(l.ProfileTypeUID)),
		configJSON,
		l.UpdatedAt.Format(time.RFC3339),
		l.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrLinkExists
		}
		return fmt.Errorf("updating link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// Delete removes a link by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM links WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...any) ([]Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		l, scanErr := scanLinkRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning link: %w", scanErr)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLinkRow(scanner rowScanner) (*Link, error) {
	var l Link
	var kind string
	var channelType, itemType, profileType, configJSON sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&l.ID,
		&l.ChannelUID,
		&kind,
		&channelType,
		&l.ItemName,
		&itemType,
		&profileType,
		&configJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.ChannelKind = profile.ChannelKind(kind)
	l.ChannelTypeUID = profile.ChannelTypeUID(channelType.String)
	l.ItemType = itemType.String
	l.ProfileTypeUID = profile.TypeUID(profileType.String)

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		l.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		l.UpdatedAt = t
	}

	if configJSON.Valid && configJSON.String != "" && configJSON.String != "{}" {
		if jsonErr := json.Unmarshal([]byte(configJSON.String), &l.Configuration); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling configuration: %w", jsonErr)
		}
	}

	return &l, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func marshalConfiguration(cfg map[string]any) (sql.NullString, error) {
	if len(cfg) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
