package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID                   string    `bson:"_id"`
	Email                string    `bson:"email"`
	EmailLower           string    `bson:"email_lower"`
	Name                 string    `bson:"name"`
	PasswordHash         string    `bson:"password_hash"`
	EmailVerified        bool      `bson:"email_verified"`
	NotificationsEnabled bool      `bson:"notifications_enabled"`
	PushSubscriptionID   *string   `bson:"push_subscription_id,omitempty"`
	CreatedAt            time.Time `bson:"created_at"`
	UpdatedAt            time.Time `bson:"updated_at"`
}

func (d userDocument) toModel() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	return &models.User{
		ID:                   id,
		Email:                d.Email,
		Name:                 d.Name,
		PasswordHash:         d.PasswordHash,
		EmailVerified:        d.EmailVerified,
		NotificationsEnabled: d.NotificationsEnabled,
		PushSubscriptionID:   d.PushSubscriptionID,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

// UserStore keeps user accounts as documents
type UserStore struct {
	collection *mongo.Collection
}

// NewUserStore creates a user store on db
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{collection: db.Collection(UsersCollection)}
}

// Create inserts a new user
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.collection.InsertOne(ctx, userDocument{
		ID:                   user.ID.String(),
		Email:                user.Email,
		EmailLower:           strings.ToLower(user.Email),
		Name:                 user.Name,
		PasswordHash:         user.PasswordHash,
		EmailVerified:        user.EmailVerified,
		NotificationsEnabled: user.NotificationsEnabled,
		PushSubscriptionID:   user.PushSubscriptionID,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns the user with the given id
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByEmail looks a user up by lower-cased email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email_lower": strings.ToLower(email)})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel()
}

// Update replaces the stored user document
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"email":                 user.Email,
		"email_lower":           strings.ToLower(user.Email),
		"name":                  user.Name,
		"password_hash":         user.PasswordHash,
		"email_verified":        user.EmailVerified,
		"notifications_enabled": user.NotificationsEnabled,
		"updated_at":            user.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if user.PushSubscriptionID != nil {
		set["push_subscription_id"] = *user.PushSubscriptionID
	} else {
		update["$unset"] = bson.M{"push_subscription_id": ""}
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": user.ID.String()}, update)
	if mongo.IsDuplicateKeyError(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListNotifiable returns users who granted notification permission
func (s *UserStore) ListNotifiable(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.collection.Find(ctx, bson.M{"notifications_enabled": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifiable users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		user, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

var _ database.UserStore = (*UserStore)(nil)
