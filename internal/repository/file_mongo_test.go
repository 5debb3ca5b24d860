package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/templui/filesmanager/internal/db"
	"github.com/templui/filesmanager/internal/model"
)

// offlineMongo returns a database handle whose client never reaches a
// server; only code paths that return before a round trip may use it.
func offlineMongo(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(100 * time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("files_manager_offline")
}

func TestParentToBSON(t *testing.T) {
	oid := bson.NewObjectID()

	assert.Equal(t, int32(0), parentToBSON(model.Root))
	assert.Equal(t, int32(0), parentToBSON(model.ParseParentRef("0")))
	assert.Equal(t, oid, parentToBSON(model.RefTo(model.FileID(oid.Hex()))))
	// ids that are not ObjectIDs are stored as-is and simply never match
	assert.Equal(t, "legacy-id", parentToBSON(model.RefTo("legacy-id")))
}

func TestParentFromBSON(t *testing.T) {
	oid := bson.NewObjectID()

	for _, zero := range []any{int32(0), int64(0), float64(0), nil} {
		assert.True(t, parentFromBSON(zero).IsRoot(), "%T", zero)
	}
	assert.Equal(t, model.RefTo(model.FileID(oid.Hex())), parentFromBSON(oid))
	assert.Equal(t, model.RefTo("legacy-id"), parentFromBSON("legacy-id"))
	assert.True(t, parentFromBSON("0").IsRoot())
}

func TestFileDocument_BSONLayout(t *testing.T) {
	owner := bson.NewObjectID()
	folder := bson.NewObjectID()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		parent   model.ParentRef
		wantType bson.Type
	}{
		{"root", model.Root, bson.TypeInt32},
		{"folder", model.RefTo(model.FileID(folder.Hex())), bson.TypeObjectID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := fileDocument{
				ID:        bson.NewObjectID(),
				UserID:    owner,
				Name:      "cat.png",
				Type:      string(model.FileTypeImage),
				ParentID:  parentToBSON(tc.parent),
				LocalPath: "/tmp/files_manager/abc",
				CreatedAt: created,
			}

			data, err := bson.Marshal(doc)
			require.NoError(t, err)

			raw := bson.Raw(data)
			assert.Equal(t, tc.wantType, raw.Lookup("parentId").Type)
			assert.Equal(t, bson.TypeObjectID, raw.Lookup("userId").Type)
			assert.Equal(t, "cat.png", raw.Lookup("name").StringValue())
			assert.False(t, raw.Lookup("isPublic").Boolean())

			var decoded fileDocument
			require.NoError(t, bson.Unmarshal(data, &decoded))

			file := decoded.toModel()
			assert.Equal(t, model.FileID(doc.ID.Hex()), file.ID)
			assert.Equal(t, model.OwnerID(owner.Hex()), file.OwnerID)
			assert.Equal(t, tc.parent, file.ParentID)
			assert.Equal(t, model.FileTypeImage, file.Type)
			assert.Equal(t, "/tmp/files_manager/abc", file.LocalPath)
			assert.True(t, created.Equal(file.CreatedAt))
		})
	}
}

func TestFileDocument_FolderOmitsLocalPath(t *testing.T) {
	data, err := bson.Marshal(fileDocument{
		UserID:   bson.NewObjectID(),
		Name:     "Photos",
		Type:     string(model.FileTypeFolder),
		ParentID: parentToBSON(model.Root),
	})
	require.NoError(t, err)

	raw := bson.Raw(data)
	_, err = raw.LookupErr("localPath")
	assert.Error(t, err)
	_, err = raw.LookupErr("_id")
	assert.Error(t, err)
}

func TestMongoFileRepository_MalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoFileRepository(offlineMongo(t))
	owner := model.OwnerID(bson.NewObjectID().Hex())
	id := model.FileID(bson.NewObjectID().Hex())

	_, err := repo.ByID(ctx, "not-hex")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = repo.ByIDAndOwner(ctx, "not-hex", owner)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = repo.ByIDAndOwner(ctx, id, "not-hex")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = repo.SetPublic(ctx, "not-hex", owner, true)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = repo.SetPublic(ctx, id, "not-hex", true)
	assert.ErrorIs(t, err, ErrFileNotFound)

	files, err := repo.ListByParent(ctx, "not-hex", model.Root, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestMongoFileRepository_CreateRejectsMalformedIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoFileRepository(offlineMongo(t))

	err := repo.Create(ctx, &model.File{OwnerID: "not-hex", Name: "a.txt", Type: model.FileTypeFile})
	assert.ErrorContains(t, err, "invalid owner id")

	err = repo.Create(ctx, &model.File{
		ID:      "not-hex",
		OwnerID: model.OwnerID(bson.NewObjectID().Hex()),
		Name:    "a.txt",
		Type:    model.FileTypeFile,
	})
	assert.ErrorContains(t, err, "invalid file id")
}

func TestMongoUserRepository_MalformedIDIsNotFound(t *testing.T) {
	repo := NewMongoUserRepository(offlineMongo(t))

	_, err := repo.ByID(context.Background(), "not-hex")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(context.Background(), &model.User{ID: "not-hex", Email: "a@b.c"})
	assert.ErrorContains(t, err, "invalid user id")
}

// The tests below need a live server: MONGO_TEST_URI=mongodb://localhost:27017
func liveMongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	name := fmt.Sprintf("files_manager_test_%d", time.Now().UnixNano())
	client, mdb, err := db.InitMongo(ctx, uri, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mdb.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return mdb
}

func TestMongoFileRepository_Live(t *testing.T) {
	ctx := context.Background()
	mdb := liveMongo(t)
	users := NewMongoUserRepository(mdb)
	files := NewMongoFileRepository(mdb)

	owner := &model.User{Email: "bob@dylan.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, owner))
	assert.ErrorIs(t, users.Create(ctx, &model.User{Email: "bob@dylan.com"}), ErrDuplicateEmail)

	folder := &model.File{OwnerID: owner.ID, Name: "Photos", Type: model.FileTypeFolder}
	require.NoError(t, files.Create(ctx, folder))

	image := &model.File{
		OwnerID:   owner.ID,
		Name:      "cat.png",
		Type:      model.FileTypeImage,
		ParentID:  model.RefTo(folder.ID),
		LocalPath: "/tmp/files_manager/abc",
	}
	require.NoError(t, files.Create(ctx, image))

	got, err := files.ByIDAndOwner(ctx, image.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefTo(folder.ID), got.ParentID)

	_, err = files.ByIDAndOwner(ctx, image.ID, model.OwnerID(bson.NewObjectID().Hex()))
	assert.ErrorIs(t, err, ErrFileNotFound)

	root, err := files.ListByParent(ctx, owner.ID, model.Root, 0, 20)
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, folder.ID, root[0].ID)

	inFolder, err := files.ListByParent(ctx, owner.ID, model.RefTo(folder.ID), 0, 20)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, image.ID, inFolder[0].ID)

	published, err := files.SetPublic(ctx, image.ID, owner.ID, true)
	require.NoError(t, err)
	assert.True(t, published.IsPublic)

	n, err := files.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
