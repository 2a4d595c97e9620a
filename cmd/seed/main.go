// Package main provides demo-data seeding for Tribe Notify.
//
// Schema migrations run first, then an idempotent data bootstrap: one
// family group with a handful of recipients covering every frequency
// and channel combination. Useful for local development and demos.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/config"
	"tribe-notify.io/notify/internal/infrastructure"
	"tribe-notify.io/notify/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	logger.Info("Starting data seeding...")

	if err := infrastructure.Migrate(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := seedDemoFamily(ctx, db.Pool); err != nil {
		return fmt.Errorf("seed demo family: %w", err)
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

const demoParentID = "parent-demo"

// demoRecipient describes one seeded recipient and their membership in
// the demo group. Nil override fields inherit the group default.
type demoRecipient struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Relationship string
	Frequency    *string
	Channels     []string
}

func strptr(s string) *string { return &s }

func demoRecipients() []demoRecipient {
	return []demoRecipient{
		{
			ID: "rcp-grandma", Name: "Grandma June", Email: "june@example.com",
			Relationship: "grandparent",
			// Inherits the group default (every_update over email).
		},
		{
			ID: "rcp-grandpa", Name: "Grandpa Lou", Email: "lou@example.com",
			Phone: "+15550000001", Relationship: "grandparent",
			Frequency: strptr("daily_digest"), Channels: []string{"email"},
		},
		{
			ID: "rcp-aunt", Name: "Aunt Priya", Phone: "+15550000002",
			Relationship: "aunt",
			Frequency:    strptr("weekly_digest"), Channels: []string{"sms"},
		},
		{
			ID: "rcp-uncle", Name: "Uncle Theo", Phone: "+15550000003",
			Relationship: "uncle",
			Frequency:    strptr("milestones_only"), Channels: []string{"whatsapp"},
		},
	}
}

// seedDemoFamily creates the demo parent's group, recipients, and
// memberships. ON CONFLICT DO NOTHING keeps reruns harmless.
func seedDemoFamily(ctx context.Context, pool *pgxpool.Pool) error {
	tag, err := pool.Exec(ctx, `
		INSERT INTO groups (id, parent_id, name, default_frequency, default_channels)
		VALUES ($1, $2, $3, 'every_update', '{email}')
		ON CONFLICT (id) DO NOTHING`,
		"grp-demo-family", demoParentID, "Demo Family",
	)
	if err != nil {
		return fmt.Errorf("create demo group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Info("Demo group already exists, skipping", zap.String("group", "grp-demo-family"))
	} else {
		logger.Info("Seeded demo group", zap.String("group", "grp-demo-family"))
	}

	for _, r := range demoRecipients() {
		if err := seedRecipient(ctx, pool, r); err != nil {
			return err
		}
	}
	return nil
}

func seedRecipient(ctx context.Context, pool *pgxpool.Pool, r demoRecipient) error {
	tag, err := pool.Exec(ctx, `
		INSERT INTO recipients (id, parent_id, name, email, phone, relationship)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, demoParentID, r.Name, r.Email, r.Phone, r.Relationship,
	)
	if err != nil {
		return fmt.Errorf("create recipient %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		logger.Info("Recipient already exists, skipping", zap.String("recipient", r.ID))
		return nil
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO group_memberships (recipient_id, group_id, notification_frequency, preferred_channels)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (recipient_id, group_id) DO NOTHING`,
		r.ID, "grp-demo-family", r.Frequency, r.Channels,
	)
	if err != nil {
		return fmt.Errorf("create membership for %s: %w", r.ID, err)
	}

	logger.Info("Seeded recipient", zap.String("recipient", r.ID), zap.String("name", r.Name))
	return nil
}
