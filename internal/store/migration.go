package store

const postgresMigration = `
CREATE TABLE IF NOT EXISTS diagnostics (
	id                 BIGSERIAL PRIMARY KEY,
	code               TEXT NOT NULL,
	description        TEXT,
	outcome_table_name TEXT NOT NULL,
	is_active          BOOLEAN NOT NULL DEFAULT true,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_diagnostics_code UNIQUE (code)
);

CREATE TABLE IF NOT EXISTS diagnostic_versions (
	id                    BIGSERIAL PRIMARY KEY,
	diagnostic_id         BIGINT NOT NULL REFERENCES diagnostics(id) ON DELETE RESTRICT,
	name                  VARCHAR(128) NOT NULL,
	description           TEXT,
	system_prompt         TEXT,
	note                  TEXT,
	src_hash              CHAR(64),
	created_by_admin_id   BIGINT NOT NULL,
	updated_by_admin_id   BIGINT NOT NULL,
	finalized_by_admin_id BIGINT,
	finalized_at          TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_diagnostic_versions_name UNIQUE (diagnostic_id, name)
);

CREATE INDEX IF NOT EXISTS idx_diagnostic_versions_listing
	ON diagnostic_versions (diagnostic_id, updated_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS questions (
	id            BIGSERIAL PRIMARY KEY,
	diagnostic_id BIGINT NOT NULL REFERENCES diagnostics(id) ON DELETE RESTRICT,
	q_code        VARCHAR(64) NOT NULL,
	display_text  TEXT NOT NULL,
	multi         BOOLEAN NOT NULL DEFAULT false,
	sort_order    INTEGER NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_questions_diagnostic_code UNIQUE (diagnostic_id, q_code)
);

-- Deferrable so a rename or reorder inside one import can pass through
-- states where two rows briefly share a code or a position.
CREATE TABLE IF NOT EXISTS options (
	id            BIGSERIAL PRIMARY KEY,
	question_id   BIGINT NOT NULL REFERENCES questions(id) ON DELETE RESTRICT,
	opt_code      VARCHAR(64) NOT NULL,
	display_label TEXT NOT NULL,
	llm_op        JSONB,
	sort_order    INTEGER NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_options_question_code UNIQUE (question_id, opt_code) DEFERRABLE INITIALLY DEFERRED,
	CONSTRAINT uq_options_question_sort UNIQUE (question_id, sort_order) DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS version_questions (
	id                  BIGSERIAL PRIMARY KEY,
	version_id          BIGINT NOT NULL REFERENCES diagnostic_versions(id) ON DELETE RESTRICT,
	diagnostic_id       BIGINT NOT NULL REFERENCES diagnostics(id) ON DELETE RESTRICT,
	question_id         BIGINT NOT NULL REFERENCES questions(id) ON DELETE RESTRICT,
	q_code              VARCHAR(64) NOT NULL,
	display_text        TEXT NOT NULL,
	multi               BOOLEAN NOT NULL DEFAULT false,
	sort_order          INTEGER NOT NULL,
	is_active           BOOLEAN NOT NULL DEFAULT true,
	created_by_admin_id BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_version_questions_version_question UNIQUE (version_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_version_questions_sort
	ON version_questions (version_id, sort_order, question_id);

CREATE TABLE IF NOT EXISTS version_options (
	id                  BIGSERIAL PRIMARY KEY,
	version_id          BIGINT NOT NULL REFERENCES diagnostic_versions(id) ON DELETE RESTRICT,
	version_question_id BIGINT NOT NULL REFERENCES version_questions(id) ON DELETE RESTRICT,
	option_id           BIGINT NOT NULL REFERENCES options(id) ON DELETE RESTRICT,
	q_code              VARCHAR(64) NOT NULL,
	opt_code            VARCHAR(64) NOT NULL,
	display_label       TEXT NOT NULL,
	llm_op              JSONB,
	sort_order          INTEGER NOT NULL,
	is_active           BOOLEAN NOT NULL DEFAULT true,
	created_by_admin_id BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_version_options_version_question_opt UNIQUE (version_id, version_question_id, opt_code)
);

CREATE INDEX IF NOT EXISTS idx_version_options_sort
	ON version_options (version_id, version_question_id, sort_order);

CREATE TABLE IF NOT EXISTS version_outcomes (
	id                  BIGSERIAL PRIMARY KEY,
	version_id          BIGINT NOT NULL REFERENCES diagnostic_versions(id) ON DELETE RESTRICT,
	outcome_id          BIGINT NOT NULL,
	outcome_meta        JSONB,
	sort_order          INTEGER NOT NULL DEFAULT 0,
	is_active           BOOLEAN NOT NULL DEFAULT true,
	created_by_admin_id BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_version_outcomes_version_outcome UNIQUE (version_id, outcome_id)
);

CREATE INDEX IF NOT EXISTS idx_version_outcomes_sort
	ON version_outcomes (version_id, sort_order, outcome_id);

CREATE TABLE IF NOT EXISTS cfg_active_versions (
	id                  BIGSERIAL PRIMARY KEY,
	diagnostic_id       BIGINT NOT NULL REFERENCES diagnostics(id) ON DELETE RESTRICT,
	version_id          BIGINT NOT NULL REFERENCES diagnostic_versions(id) ON DELETE RESTRICT,
	created_by_admin_id BIGINT NOT NULL,
	updated_by_admin_id BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_cfg_active_versions_scope UNIQUE (diagnostic_id)
);

CREATE TABLE IF NOT EXISTS aud_diagnostic_version_logs (
	id         BIGSERIAL PRIMARY KEY,
	version_id BIGINT NOT NULL REFERENCES diagnostic_versions(id) ON DELETE RESTRICT,
	actor_id   BIGINT NOT NULL,
	action     VARCHAR(32) NOT NULL
		CHECK (action IN ('CREATE', 'IMPORT', 'PROMPT_UPDATE', 'FINALIZE', 'ACTIVATE')),
	field_name VARCHAR(64),
	old_value  TEXT,
	new_value  TEXT,
	note       TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_aud_dv_logs_version ON aud_diagnostic_version_logs (version_id, action, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_aud_dv_logs_actor ON aud_diagnostic_version_logs (actor_id, created_at);

CREATE TABLE IF NOT EXISTS mst_ai_jobs (
	id                  BIGSERIAL PRIMARY KEY,
	name                VARCHAR(191) NOT NULL,
	category            VARCHAR(191),
	role_summary        TEXT NOT NULL,
	main_role           TEXT,
	collaboration_style TEXT,
	strength_areas      TEXT,
	description         TEXT NOT NULL,
	avg_salary_jpy      VARCHAR(64),
	target_phase        TEXT,
	core_skills         TEXT,
	deliverables        TEXT,
	pathway_detail      TEXT,
	ai_tools            TEXT,
	advice              TEXT,
	is_active           BOOLEAN NOT NULL DEFAULT true,
	sort_order          INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_mst_ai_jobs_name UNIQUE (name)
);

-- Append-only ledger.
CREATE OR REPLACE FUNCTION aud_diagnostic_version_logs_immutable() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'aud_diagnostic_version_logs is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_aud_dv_logs_immutable ON aud_diagnostic_version_logs;
CREATE TRIGGER trg_aud_dv_logs_immutable
	BEFORE UPDATE OR DELETE ON aud_diagnostic_version_logs
	FOR EACH ROW EXECUTE FUNCTION aud_diagnostic_version_logs_immutable();
`
