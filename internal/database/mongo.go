// Package database はMongoDBとRedisのクライアントライフサイクルを提供する。
// 接続・ヘルスチェック・切断を明示的に行い、グローバル変数による
// 暗黙の接続共有は行わない。生成したハンドルは各コンポーネントに注入する。
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// connectTimeout はストア接続確立の上限時間。
// 接続先不達による無限待ちを防ぐ。
const connectTimeout = 10 * time.Second

// Mongo はMongoDBデータベースハンドルを保持する。
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo はMongoDBに接続し、到達確認まで行ったハンドルを返す。
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// Database はデータベースハンドルを返す。
func (m *Mongo) Database() *mongo.Database {
	return m.db
}

// Ping はプライマリへの到達性を確認する。ヘルスチェック用。
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close は接続を切断する。
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
