package database

const schema = `
CREATE TABLE IF NOT EXISTS cardsets (
	id           TEXT PRIMARY KEY,
	ref          TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	result_count INTEGER NOT NULL DEFAULT 0,
	sync_state   TEXT NOT NULL DEFAULT 'unsynced',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cardsets_ref_lower ON cardsets (lower(ref));

CREATE TABLE IF NOT EXISTS cards (
	id               TEXT PRIMARY KEY,
	cardset_id       TEXT NOT NULL,
	name             TEXT NOT NULL,
	remark           TEXT,
	number           TEXT,
	rarity_code      TEXT,
	rarity_label     TEXT,
	price_amount     BIGINT,
	price_currency   TEXT,
	image_downloaded BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cards_cardset ON cards (cardset_id);

CREATE TABLE IF NOT EXISTS outbox_event (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	target_stream  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at   TIMESTAMPTZ,
	next_retry_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_event (status, next_retry_at);
`
