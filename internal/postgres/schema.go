package postgres

// Customer service schema: person + customer, 1:1 through person_id.
const customerSchema = `
CREATE TABLE IF NOT EXISTS person (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	identification TEXT NOT NULL,
	gender TEXT NOT NULL DEFAULT '',
	birth_date DATE,
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_person_identification ON person(identification);

CREATE TABLE IF NOT EXISTS customer (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL UNIQUE REFERENCES person(id) ON DELETE CASCADE,
	password_hash TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_customer_active ON customer(active);
`

// Account service schema. The partial unique index encodes "one active account
// per (customer, type)" so the rule holds even if application checks race.
const accountSchema = `
CREATE SEQUENCE IF NOT EXISTS account_number_seq START 100001;

CREATE TABLE IF NOT EXISTS account (
	account_number BIGINT PRIMARY KEY DEFAULT nextval('account_number_seq'),
	customer_id UUID NOT NULL,
	customer_name TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL CHECK (account_type IN ('SAVINGS', 'CHECKING')),
	initial_balance NUMERIC(19,2) NOT NULL CHECK (initial_balance >= 0),
	current_balance NUMERIC(19,2) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_account_customer ON account(customer_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_account_customer_type_active
	ON account(customer_id, account_type) WHERE active;

CREATE TABLE IF NOT EXISTS movement (
	id UUID PRIMARY KEY,
	account_number BIGINT NOT NULL REFERENCES account(account_number) ON DELETE CASCADE,
	movement_type TEXT NOT NULL CHECK (movement_type IN ('CREDIT', 'DEBIT', 'REVERSAL')),
	amount NUMERIC(19,2) NOT NULL CHECK (amount > 0),
	balance_before NUMERIC(19,2) NOT NULL DEFAULT 0,
	balance_after NUMERIC(19,2) NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	reference TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL,
	reversed_movement_id UUID REFERENCES movement(id),
	reversed BOOLEAN NOT NULL DEFAULT FALSE,
	idempotency_key TEXT,
	request_id TEXT NOT NULL DEFAULT '',
	correlation_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_movement_transaction_id ON movement(transaction_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_movement_idempotency_key
	ON movement(idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_movement_account_created ON movement(account_number, created_at);
`

// movement_apply runs BEFORE INSERT on movement and is the store-enforced
// atomic unit: it locks the account row (serializing concurrent posts),
// derives the signed delta, populates balance_before/balance_after, refuses a
// posting that would breach the overdraft floor, flips the original's
// reversed flag for a REVERSAL, and bumps the account balance and version.
// The stable exception messages are parsed by the Go error mapper.
//
// account_quota_check is the store authority for the five-active-accounts
// quota. The advisory transaction lock on the customer id serializes
// concurrent creations and reactivations across different account types,
// which the partial unique index cannot cover.
const accountTriggers = `
CREATE OR REPLACE FUNCTION movement_apply() RETURNS trigger AS $$
DECLARE
	acct account%ROWTYPE;
	original movement%ROWTYPE;
	delta NUMERIC(19,2);
BEGIN
	SELECT * INTO acct FROM account WHERE account_number = NEW.account_number FOR UPDATE;
	IF NOT FOUND THEN
		RAISE EXCEPTION 'ACCOUNT_NOT_FOUND';
	END IF;
	IF NOT acct.active THEN
		RAISE EXCEPTION 'ACCOUNT_NOT_ACTIVE';
	END IF;

	IF NEW.movement_type = 'CREDIT' THEN
		delta := NEW.amount;
	ELSIF NEW.movement_type = 'DEBIT' THEN
		delta := -NEW.amount;
	ELSE
		IF NEW.reversed_movement_id IS NULL THEN
			RAISE EXCEPTION 'INVALID_REVERSAL';
		END IF;
		SELECT * INTO original FROM movement WHERE id = NEW.reversed_movement_id FOR UPDATE;
		IF NOT FOUND
			OR original.account_number <> NEW.account_number
			OR original.movement_type = 'REVERSAL' THEN
			RAISE EXCEPTION 'INVALID_REVERSAL';
		END IF;
		IF original.reversed THEN
			RAISE EXCEPTION 'ALREADY_REVERSED';
		END IF;
		delta := original.balance_before - original.balance_after;
		NEW.amount := abs(delta);
		UPDATE movement SET reversed = TRUE WHERE id = original.id;
	END IF;

	NEW.balance_before := acct.current_balance;
	NEW.balance_after := acct.current_balance + delta;

	IF delta < 0 AND NEW.balance_after < -10000 THEN
		RAISE EXCEPTION 'INSUFFICIENT_BALANCE';
	END IF;

	UPDATE account
	SET current_balance = NEW.balance_after,
		version = version + 1,
		updated_at = now()
	WHERE account_number = NEW.account_number;

	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS movement_apply_trg ON movement;
CREATE TRIGGER movement_apply_trg
	BEFORE INSERT ON movement
	FOR EACH ROW EXECUTE FUNCTION movement_apply();

CREATE OR REPLACE FUNCTION account_quota_check() RETURNS trigger AS $$
DECLARE
	active_others INTEGER;
BEGIN
	IF NOT NEW.active THEN
		RETURN NEW;
	END IF;

	PERFORM pg_advisory_xact_lock(hashtext(NEW.customer_id::text));

	SELECT count(*) INTO active_others
	FROM account
	WHERE customer_id = NEW.customer_id
		AND active
		AND account_number <> NEW.account_number;
	IF active_others >= 5 THEN
		RAISE EXCEPTION 'ACCOUNT_QUOTA_EXCEEDED';
	END IF;

	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS account_quota_trg ON account;
CREATE TRIGGER account_quota_trg
	BEFORE INSERT OR UPDATE OF active ON account
	FOR EACH ROW EXECUTE FUNCTION account_quota_check();
`
