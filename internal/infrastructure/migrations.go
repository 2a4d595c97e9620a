package infrastructure

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema DDL for the notification engine. Statements are idempotent so
// Migrate can run on every boot in development.
//
// The four SQL functions are the "database authority" the engine calls
// as RPCs: mute state, mute settings, tri-tier settings resolution, and
// the combined delivery gate. Keeping them in SQL keeps mute precedence
// (group-scoped before global) and the settings fallback in one place,
// next to the data they read.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS recipients (
	id TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	relationship TEXT,
	preference_token_hash TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	global_mute_until TIMESTAMPTZ,
	global_mute_settings JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

	`CREATE INDEX IF NOT EXISTS idx_recipients_parent ON recipients (parent_id)`,

	`CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL,
	name TEXT NOT NULL,
	default_frequency TEXT NOT NULL DEFAULT 'every_update',
	default_channels TEXT[] NOT NULL DEFAULT '{email}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

	`CREATE TABLE IF NOT EXISTS group_memberships (
	recipient_id TEXT NOT NULL REFERENCES recipients (id) ON DELETE CASCADE,
	group_id TEXT NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	notification_frequency TEXT,
	preferred_channels TEXT[],
	content_types TEXT[],
	mute_until TIMESTAMPTZ,
	mute_settings JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (recipient_id, group_id)
)`,

	`CREATE TABLE IF NOT EXISTS notification_jobs (
	id TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL REFERENCES recipients (id) ON DELETE CASCADE,
	group_id TEXT NOT NULL,
	update_id TEXT NOT NULL,
	scheduled_for TIMESTAMPTZ NOT NULL,
	notification_type TEXT NOT NULL DEFAULT 'immediate',
	urgency TEXT NOT NULL DEFAULT 'normal',
	content JSONB NOT NULL DEFAULT '{}',
	delivery_method TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INT NOT NULL DEFAULT 0,
	max_attempts INT NOT NULL DEFAULT 3,
	next_attempt_at TIMESTAMPTZ,
	message_id TEXT,
	failure_reason TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

	`CREATE INDEX IF NOT EXISTS idx_notification_jobs_due
	ON notification_jobs (status, scheduled_for)`,

	`CREATE INDEX IF NOT EXISTS idx_notification_jobs_group_created
	ON notification_jobs (group_id, created_at)`,

	// Group-scoped mute wins over global mute; absent or expired
	// mute_until means not muted.
	`CREATE OR REPLACE FUNCTION is_recipient_muted(p_recipient_id TEXT, p_group_id TEXT)
RETURNS BOOLEAN
LANGUAGE sql STABLE AS $$
	SELECT COALESCE(
		(SELECT m.mute_until > NOW()
		   FROM group_memberships m
		  WHERE m.recipient_id = p_recipient_id
		    AND m.group_id = p_group_id
		    AND m.mute_until IS NOT NULL),
		(SELECT r.global_mute_until > NOW()
		   FROM recipients r
		  WHERE r.id = p_recipient_id
		    AND r.global_mute_until IS NOT NULL),
		FALSE
	)
$$`,

	`CREATE OR REPLACE FUNCTION get_mute_settings(p_recipient_id TEXT, p_group_id TEXT)
RETURNS JSONB
LANGUAGE sql STABLE AS $$
	SELECT COALESCE(
		(SELECT m.mute_settings
		   FROM group_memberships m
		  WHERE m.recipient_id = p_recipient_id
		    AND m.group_id = p_group_id
		    AND m.mute_until IS NOT NULL
		    AND m.mute_until > NOW()),
		(SELECT r.global_mute_settings
		   FROM recipients r
		  WHERE r.id = p_recipient_id),
		'{}'::jsonb
	)
$$`,

	// Tri-tier settings resolution: member_override > group_default >
	// system_default. NULL membership fields fall through per-field to
	// the group; a missing membership row yields the system default.
	`CREATE OR REPLACE FUNCTION get_effective_notification_settings(p_recipient_id TEXT, p_group_id TEXT)
RETURNS JSONB
LANGUAGE plpgsql STABLE AS $$
DECLARE
	m group_memberships%ROWTYPE;
	g groups%ROWTYPE;
	freq TEXT;
	chans TEXT[];
	ctypes TEXT[];
	src TEXT;
BEGIN
	SELECT * INTO m FROM group_memberships
	 WHERE recipient_id = p_recipient_id AND group_id = p_group_id;
	IF NOT FOUND THEN
		RETURN jsonb_build_object(
			'frequency', 'every_update',
			'channels', jsonb_build_array('email'),
			'content_types', jsonb_build_array('photos', 'text', 'milestones'),
			'source', 'system_default');
	END IF;

	SELECT * INTO g FROM groups WHERE id = p_group_id;

	IF m.notification_frequency IS NOT NULL OR m.preferred_channels IS NOT NULL THEN
		src := 'member_override';
	ELSE
		src := 'group_default';
	END IF;

	freq := COALESCE(m.notification_frequency, g.default_frequency, 'every_update');
	chans := COALESCE(m.preferred_channels, g.default_channels, ARRAY['email']);
	ctypes := COALESCE(m.content_types, ARRAY['photos', 'text', 'milestones']);

	RETURN jsonb_build_object(
		'frequency', freq,
		'channels', to_jsonb(chans),
		'content_types', to_jsonb(ctypes),
		'source', src);
END
$$`,

	// Combined delivery gate: active membership + active recipient +
	// mute state (with the urgent break-through rule) + frequency
	// gating. milestones_only recipients only receive milestone
	// notifications.
	`CREATE OR REPLACE FUNCTION should_deliver_notification(
	p_recipient_id TEXT, p_group_id TEXT, p_notification_type TEXT, p_urgency TEXT)
RETURNS BOOLEAN
LANGUAGE plpgsql STABLE AS $$
DECLARE
	m group_memberships%ROWTYPE;
	r recipients%ROWTYPE;
	muted BOOLEAN;
	msettings JSONB;
	freq TEXT;
BEGIN
	SELECT * INTO r FROM recipients WHERE id = p_recipient_id;
	IF NOT FOUND OR NOT r.is_active THEN
		RETURN FALSE;
	END IF;

	SELECT * INTO m FROM group_memberships
	 WHERE recipient_id = p_recipient_id AND group_id = p_group_id;
	IF NOT FOUND OR NOT m.is_active THEN
		RETURN FALSE;
	END IF;

	muted := is_recipient_muted(p_recipient_id, p_group_id);
	IF muted THEN
		IF p_urgency = 'urgent' THEN
			msettings := get_mute_settings(p_recipient_id, p_group_id);
			IF COALESCE((msettings->>'preserve_urgent')::boolean, TRUE) THEN
				muted := FALSE;
			END IF;
		END IF;
		IF muted THEN
			RETURN FALSE;
		END IF;
	END IF;

	freq := (get_effective_notification_settings(p_recipient_id, p_group_id))->>'frequency';
	IF freq = 'milestones_only' AND p_notification_type <> 'milestone' THEN
		RETURN FALSE;
	END IF;

	RETURN TRUE;
END
$$`,
}

// Migrate applies the notification schema to the pool's database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrationStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration statement: %w", err)
		}
	}
	return nil
}
