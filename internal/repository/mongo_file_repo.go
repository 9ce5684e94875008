package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/filebox/internal/model"
)

const filesCollection = "files"

// fileDoc はfilesコレクションのドキュメント表現。
type fileDoc struct {
	ID        string `bson:"_id"`
	OwnerID   string `bson:"userId"`
	Name      string `bson:"name"`
	Kind      string `bson:"type"`
	ParentID  string `bson:"parentId"`
	IsPublic  bool   `bson:"isPublic"`
	LocalPath string `bson:"localPath,omitempty"`
}

func (d *fileDoc) toModel() *model.File {
	return &model.File{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Kind:      model.FileKind(d.Kind),
		ParentID:  d.ParentID,
		IsPublic:  d.IsPublic,
		LocalPath: d.LocalPath,
	}
}

// MongoFileRepo はMongoDBを使用したファイルメタデータリポジトリ。
type MongoFileRepo struct {
	coll *mongo.Collection
}

// NewMongoFileRepo はMongoFileRepoを生成する。
func NewMongoFileRepo(db *mongo.Database) *MongoFileRepo {
	return &MongoFileRepo{coll: db.Collection(filesCollection)}
}

// Create はエントリを作成し、採番したIDをfile.IDに設定する。
func (r *MongoFileRepo) Create(ctx context.Context, file *model.File) error {
	id := primitive.NewObjectID().Hex()
	doc := fileDoc{
		ID:        id,
		OwnerID:   file.OwnerID,
		Name:      file.Name,
		Kind:      string(file.Kind),
		ParentID:  file.ParentID,
		IsPublic:  file.IsPublic,
		LocalPath: file.LocalPath,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	file.ID = id
	return nil
}

// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
func (r *MongoFileRepo) FindByID(ctx context.Context, id string) (*model.File, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByIDAndOwner はIDと所有者の両方でエントリを検索する。
// どちらかが一致しない場合はnilを返す。
func (r *MongoFileRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.File, error) {
	return r.findOne(ctx, bson.M{"_id": id, "userId": ownerID})
}

func (r *MongoFileRepo) findOne(ctx context.Context, filter bson.M) (*model.File, error) {
	var doc fileDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return doc.toModel(), nil
}

// ListByOwnerAndParent は所有者と親IDが一致するエントリを挿入順で返す。
// match→skip→limit の集約パイプラインでページングする。
func (r *MongoFileRepo) ListByOwnerAndParent(ctx context.Context, ownerID, parentID string, page, pageSize int) ([]*model.File, error) {
	if page < 0 {
		page = 0
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": ownerID, "parentId": parentID}}},
		{{Key: "$skip", Value: int64(page * pageSize)}},
		{{Key: "$limit", Value: int64(pageSize)}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer cursor.Close(ctx)

	files := []*model.File{}
	for cursor.Next(ctx) {
		var doc fileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode file: %w", err)
		}
		files = append(files, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}

	return files, nil
}

// SetPublic は可視性フラグを更新し、更新後のエントリを返す。
// 対象が存在しない場合はnilを返す。
func (r *MongoFileRepo) SetPublic(ctx context.Context, id string, isPublic bool) (*model.File, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc fileDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isPublic": isPublic}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update file visibility: %w", err)
	}

	return doc.toModel(), nil
}

// Count は全エントリ数を返す。
func (r *MongoFileRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ FileRepository = (*MongoFileRepo)(nil)
