package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/looking-sharp/Media-Management-Microservice/internal/media"
	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

type MediaRepo struct {
	col *mongo.Collection
}

func NewMediaRepo(col *mongo.Collection) *MediaRepo {
	return &MediaRepo{col: col}
}

// EnsureIndexes creates the unique index on short_id. That index, not the
// pre-insert existence check, is the authority on short id uniqueness.
func (r *MediaRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "short_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Insert writes the record. A unique-index violation on short_id comes back
// as ErrDuplicateShortID so callers can regenerate and retry the whole insert.
func (r *MediaRepo) Insert(ctx context.Context, m *models.Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", utils.ErrDuplicateShortID, m.ShortID)
	}
	return err
}

func (r *MediaRepo) ShortIDExists(ctx context.Context, shortID string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"short_id": shortID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *MediaRepo) GetByShortID(ctx context.Context, shortID string) (*models.Media, error) {
	var m models.Media
	err := r.col.FindOne(ctx, bson.M{"short_id": shortID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteByShortID is idempotent: deleting a record that is already gone is
// not an error, so a retried deletion converges.
func (r *MediaRepo) DeleteByShortID(ctx context.Context, shortID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"short_id": shortID})
	return err
}
