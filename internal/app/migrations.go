package app

import "serotonyl.ru/orbit-points/internal/db/postgres"

// Migrations — SQL-миграции, встроенные в код для упрощения деплоя.
// Применяются по порядку, версия фиксируется в schema_migrations.
var Migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Users},
	{Version: 2, SQL: migration002Ledger},
	{Version: 3, SQL: migration003RewardConfig},
	{Version: 4, SQL: migration004ThankYou},
}

// users принадлежит сервису идентификации; здесь только то, что нужно журналу.
var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    orbit_points BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_orbit_points ON users(orbit_points DESC);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS point_transactions (
    id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    points BIGINT NOT NULL,
    action_type VARCHAR(64) NOT NULL,
    category VARCHAR(32) NOT NULL
        CHECK (category IN ('activity', 'contribution', 'outcome', 'system')),
    description TEXT NOT NULL DEFAULT '',
    source_id VARCHAR(128),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_point_transactions_user_created
    ON point_transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_point_transactions_user_action_created
    ON point_transactions(user_id, action_type, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS uq_point_transactions_source
    ON point_transactions(user_id, action_type, source_id)
    WHERE source_id IS NOT NULL;
`

var migration003RewardConfig = `
CREATE TABLE IF NOT EXISTS reward_config (
    action_type VARCHAR(64) PRIMARY KEY,
    points BIGINT NOT NULL,
    daily_limit INTEGER CHECK (daily_limit IS NULL OR daily_limit > 0),
    category VARCHAR(32) NOT NULL
        CHECK (category IN ('activity', 'contribution', 'outcome', 'system')),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
INSERT INTO reward_config (action_type, points, daily_limit, category, is_active) VALUES
    ('send_thank_you',         20,  10,   'contribution', TRUE),
    ('receive_thank_you',      50,  NULL, 'outcome',      TRUE),
    ('daily_login',            5,   1,    'activity',     TRUE),
    ('profile_update',         10,  1,    'activity',     TRUE),
    ('chapter_post',           10,  5,    'contribution', TRUE),
    ('event_attendance',       30,  NULL, 'activity',     TRUE),
    ('event_feedback',         15,  3,    'contribution', TRUE),
    ('consultation_completed', 100, NULL, 'outcome',      TRUE),
    ('admin_adjustment',       0,   NULL, 'system',       TRUE),
    ('point_decay',            0,   NULL, 'system',       FALSE)
ON CONFLICT (action_type) DO NOTHING;
`

var migration004ThankYou = `
CREATE TABLE IF NOT EXISTS pairwise_interactions (
    id BIGSERIAL PRIMARY KEY,
    sender_id BIGINT NOT NULL REFERENCES users(id),
    receiver_id BIGINT NOT NULL REFERENCES users(id),
    action_type VARCHAR(64) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pairwise_lookup
    ON pairwise_interactions(sender_id, receiver_id, action_type, created_at DESC);

CREATE TABLE IF NOT EXISTS thank_you_notes (
    id TEXT PRIMARY KEY,
    sender_id BIGINT NOT NULL REFERENCES users(id),
    receiver_id BIGINT NOT NULL REFERENCES users(id),
    message TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (sender_id <> receiver_id)
);
CREATE INDEX IF NOT EXISTS idx_thank_you_notes_receiver ON thank_you_notes(receiver_id, created_at DESC);
`
