package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/templui/filesmanager/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fileDocument is the "files" collection layout. userId is an ObjectID and
// parentId is either the number 0 (root) or the parent's ObjectID.
type fileDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"userId"`
	Name      string        `bson:"name"`
	Type      string        `bson:"type"`
	IsPublic  bool          `bson:"isPublic"`
	ParentID  any           `bson:"parentId"`
	LocalPath string        `bson:"localPath,omitempty"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type mongoFileRepository struct {
	coll *mongo.Collection
}

func NewMongoFileRepository(mdb *mongo.Database) FileRepository {
	return &mongoFileRepository{coll: mdb.Collection("files")}
}

func (r *mongoFileRepository) Create(ctx context.Context, file *model.File) error {
	owner, err := bson.ObjectIDFromHex(string(file.OwnerID))
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", file.OwnerID, err)
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	doc := fileDocument{
		UserID:    owner,
		Name:      file.Name,
		Type:      string(file.Type),
		IsPublic:  file.IsPublic,
		ParentID:  parentToBSON(file.ParentID),
		LocalPath: file.LocalPath,
		CreatedAt: file.CreatedAt,
	}
	if file.ID != "" {
		doc.ID, err = bson.ObjectIDFromHex(string(file.ID))
		if err != nil {
			return fmt.Errorf("invalid file id %q: %w", file.ID, err)
		}
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		file.ID = model.FileID(oid.Hex())
	}
	return nil
}

func (r *mongoFileRepository) ByID(ctx context.Context, id model.FileID) (*model.File, error) {
	oid, err := bson.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, ErrFileNotFound
	}

	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *mongoFileRepository) ByIDAndOwner(ctx context.Context, id model.FileID, owner model.OwnerID) (*model.File, error) {
	oid, err := bson.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, ErrFileNotFound
	}
	uid, err := bson.ObjectIDFromHex(string(owner))
	if err != nil {
		return nil, ErrFileNotFound
	}

	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: uid}})
}

func (r *mongoFileRepository) ListByParent(ctx context.Context, owner model.OwnerID, parent model.ParentRef, skip, limit int) ([]*model.File, error) {
	files := []*model.File{}

	uid, err := bson.ObjectIDFromHex(string(owner))
	if err != nil {
		return files, nil
	}

	filter := bson.D{{Key: "userId", Value: uid}, {Key: "parentId", Value: parentToBSON(parent)}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc fileDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		files = append(files, doc.toModel())
	}

	return files, cur.Err()
}

func (r *mongoFileRepository) SetPublic(ctx context.Context, id model.FileID, owner model.OwnerID, isPublic bool) (*model.File, error) {
	oid, err := bson.ObjectIDFromHex(string(id))
	if err != nil {
		return nil, ErrFileNotFound
	}
	uid, err := bson.ObjectIDFromHex(string(owner))
	if err != nil {
		return nil, ErrFileNotFound
	}

	filter := bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: uid}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isPublic", Value: isPublic}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc fileDocument
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return doc.toModel(), nil
}

func (r *mongoFileRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *mongoFileRepository) findOne(ctx context.Context, filter bson.D) (*model.File, error) {
	var doc fileDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return doc.toModel(), nil
}

func (d *fileDocument) toModel() *model.File {
	return &model.File{
		ID:        model.FileID(d.ID.Hex()),
		OwnerID:   model.OwnerID(d.UserID.Hex()),
		Name:      d.Name,
		Type:      model.FileType(d.Type),
		IsPublic:  d.IsPublic,
		ParentID:  parentFromBSON(d.ParentID),
		LocalPath: d.LocalPath,
		CreatedAt: d.CreatedAt,
	}
}

func parentToBSON(p model.ParentRef) any {
	if p.IsRoot() {
		return int32(0)
	}
	if oid, err := bson.ObjectIDFromHex(string(p.ID())); err == nil {
		return oid
	}
	return string(p.ID())
}

func parentFromBSON(v any) model.ParentRef {
	switch t := v.(type) {
	case bson.ObjectID:
		return model.RefTo(model.FileID(t.Hex()))
	case string:
		return model.RefTo(model.FileID(t))
	default:
		// 0 in any numeric encoding, or a missing field
		return model.Root
	}
}
