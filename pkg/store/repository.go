package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/upsert"
)

// keyedID is a row returned by an insert or a lookup.
type keyedID struct {
	ID          uuid.UUID
	Type        string
	ReferenceID string
}

// insertReturning inserts values into table, ignoring rows that conflict on
// (type, reference_id), and returns the ids of the rows it inserted. The
// natural key is returned with each id: gorm's Returning clause assigns
// returned rows to the inserted slice by position, which goes wrong as soon
// as a conflicting row is skipped.
func insertReturning(ctx context.Context, db *gorm.DB, table string, columns []string, values [][]any) (map[upsert.Key]uuid.UUID, error) {
	if len(values) == 0 {
		return map[upsert.Key]uuid.UUID{}, nil
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	tuples := make([]string, len(values))
	args := make([]any, 0, len(values)*len(columns))
	for i, v := range values {
		tuples[i] = placeholder
		args = append(args, v...)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (type, reference_id) DO NOTHING RETURNING id, type, reference_id",
		table, strings.Join(columns, ", "), strings.Join(tuples, ", "))

	var rows []keyedID
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error inserting into %s: %w", table, err)
	}
	return byKey(rows), nil
}

// findIDs looks up ids in table by natural key.
func findIDs(ctx context.Context, db *gorm.DB, table string, keys []upsert.Key) (map[upsert.Key]uuid.UUID, error) {
	if len(keys) == 0 {
		return map[upsert.Key]uuid.UUID{}, nil
	}
	// Row-value IN lists are not portable to sqlite; spell out the pairs.
	conds := make([]string, len(keys))
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		conds[i] = "(type = ? AND reference_id = ?)"
		args = append(args, k.Type, k.ReferenceID)
	}

	var rows []keyedID
	err := db.WithContext(ctx).
		Table(table).
		Select("id, type, reference_id").
		Where(strings.Join(conds, " OR "), args...).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error finding rows in %s: %w", table, err)
	}
	return byKey(rows), nil
}

func byKey(rows []keyedID) map[upsert.Key]uuid.UUID {
	out := make(map[upsert.Key]uuid.UUID, len(rows))
	for _, r := range rows {
		out[upsert.Key{Type: r.Type, ReferenceID: r.ReferenceID}] = r.ID
	}
	return out
}

// AvatarRepository stores notification avatars.
type AvatarRepository struct {
	db *gorm.DB
}

// NewAvatarRepository returns a repository on db, usually a transaction.
func NewAvatarRepository(db *gorm.DB) *AvatarRepository {
	return &AvatarRepository{db: db}
}

func (r *AvatarRepository) InsertIgnoringConflicts(ctx context.Context, rows []models.NotificationAvatar) (map[upsert.Key]uuid.UUID, error) {
	values := make([][]any, len(rows))
	for i, a := range rows {
		values[i] = []any{uuid.New(), a.Type, a.ReferenceID, a.Image, a.Name, a.TargetURL}
	}
	return insertReturning(ctx, r.db, models.NotificationAvatar{}.TableName(),
		[]string{"id", "type", "reference_id", "image", "name", "target_url"}, values)
}

func (r *AvatarRepository) FindIDs(ctx context.Context, keys []upsert.Key) (map[upsert.Key]uuid.UUID, error) {
	return findIDs(ctx, r.db, models.NotificationAvatar{}.TableName(), keys)
}

// AttachmentRepository stores notification attachments.
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository returns a repository on db, usually a transaction.
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) InsertIgnoringConflicts(ctx context.Context, rows []models.NotificationAttachment) (map[upsert.Key]uuid.UUID, error) {
	values := make([][]any, len(rows))
	for i, a := range rows {
		values[i] = []any{uuid.New(), a.Type, a.ReferenceID, a.Image, a.Title}
	}
	return insertReturning(ctx, r.db, models.NotificationAttachment{}.TableName(),
		[]string{"id", "type", "reference_id", "image", "title"}, values)
}

func (r *AttachmentRepository) FindIDs(ctx context.Context, keys []upsert.Key) (map[upsert.Key]uuid.UUID, error) {
	return findIDs(ctx, r.db, models.NotificationAttachment{}.TableName(), keys)
}
