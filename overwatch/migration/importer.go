// Package migration copies the legacy bot's Mongo data into Postgres. It is a
// one-shot tool invoked from main behind a flag, safe to re-run: every write
// is an upsert keyed the same way the live tables are.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
)

const batchSize = 500

// legacyUser mirrors the previous bot's users collection.
type legacyUser struct {
	DiscordID string `bson:"_id"`
	Name      string `bson:"name"`
	Balance   int64  `bson:"balance"`
	Birthday  string `bson:"birthday"`
}

// legacyShopItem mirrors the previous bot's shopitems collection.
type legacyShopItem struct {
	Name         string `bson:"name"`
	Price        int64  `bson:"price"`
	ItemType     string `bson:"item_type"`
	Emoji        string `bson:"emoji"`
	Description  string `bson:"description"`
	RoleID       int64  `bson:"role_id"`
	DurationDays int    `bson:"duration_days"`
}

type Importer struct {
	pgDB    *bun.DB
	mongoDB *mongo.Database
}

// Connect opens the legacy Mongo deployment and returns an importer bound to
// both stores. Close releases the Mongo client.
func Connect(ctx context.Context, pgDB *bun.DB, uri, dbName string) (*Importer, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to legacy mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("legacy mongo unreachable: %w", err)
	}

	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}
	return &Importer{pgDB: pgDB, mongoDB: client.Database(dbName)}, closeFn, nil
}

// ImportAll copies users first, then shop items.
func (m *Importer) ImportAll(ctx context.Context) error {
	start := time.Now()
	if err := m.ImportUsers(ctx); err != nil {
		return err
	}
	if err := m.ImportShopItems(ctx); err != nil {
		return err
	}
	slog.Info("Legacy import finished",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (m *Importer) ImportUsers(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("users").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy users: %w", err)
	}
	defer cur.Close(ctx)

	var batch []*models.User
	imported := 0
	now := time.Now()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := m.pgDB.NewInsert().
			Model(&batch).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("display_name = EXCLUDED.display_name").
			Set("balance = EXCLUDED.balance").
			Set("birthday = EXCLUDED.birthday").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert user batch: %w", err)
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		var lu legacyUser
		if err := cur.Decode(&lu); err != nil {
			slog.Warn("Skipping undecodable legacy user", slog.Any("error", err))
			continue
		}
		if lu.DiscordID == "" {
			continue
		}
		batch = append(batch, &models.User{
			DiscordID:   lu.DiscordID,
			DisplayName: lu.Name,
			Balance:     lu.Balance,
			Birthday:    lu.Birthday,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("Legacy users imported",
		slog.String("type", "db"),
		slog.Int("count", imported))
	return nil
}

func (m *Importer) ImportShopItems(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("shopitems").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy shop items: %w", err)
	}
	defer cur.Close(ctx)

	imported := 0
	now := time.Now()
	for cur.Next(ctx) {
		var li legacyShopItem
		if err := cur.Decode(&li); err != nil {
			slog.Warn("Skipping undecodable legacy shop item", slog.Any("error", err))
			continue
		}
		if li.Name == "" {
			continue
		}

		itemType := li.ItemType
		if itemType == "" {
			itemType = models.ItemTypeSimple
		}

		item := &models.ShopItem{
			ItemType:     itemType,
			Name:         li.Name,
			Price:        li.Price,
			Emoji:        li.Emoji,
			Description:  li.Description,
			RoleID:       li.RoleID,
			DurationDays: li.DurationDays,
			CreatedAt:    now,
		}
		// Items carry no stable legacy id, so re-runs match on name.
		exists, err := m.pgDB.NewSelect().
			Model((*models.ShopItem)(nil)).
			Where("name = ?", li.Name).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check shop item %q: %w", li.Name, err)
		}
		if exists {
			continue
		}
		if _, err := m.pgDB.NewInsert().Model(item).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert shop item %q: %w", li.Name, err)
		}
		imported++
	}
	if err := cur.Err(); err != nil {
		return err
	}

	slog.Info("Legacy shop items imported",
		slog.String("type", "db"),
		slog.Int("count", imported))
	return nil
}
