package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/templui/filesmanager/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password"`
	CreatedAt    time.Time     `bson:"createdAt"`
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(mdb *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: mdb.Collection("users")}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	doc := userDocument{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if user.ID != "" {
		oid, err := bson.ObjectIDFromHex(string(user.ID))
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", user.ID, err)
		}
		doc.ID = oid
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}

	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		user.ID = model.OwnerID(oid.Hex())
	}
	return nil
}

func (r *mongoUserRepository) ByID(ctx context.Context, id model.OwnerID) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *mongoUserRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *mongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:           model.OwnerID(doc.ID.Hex()),
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}
