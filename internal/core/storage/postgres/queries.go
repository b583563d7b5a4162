package postgres

// SQL for the raw event and aggregate tables.

const (
	// querySaveEvent inserts one raw event. Events are immutable, so a
	// replayed (pk, sk) is skipped rather than overwritten.
	querySaveEvent = `
		INSERT INTO raw_events (
			pk, sk, id, family, occurred_at, attributes, measures
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pk, sk) DO NOTHING
	`

	// queryShardPage reads one page of a shard: sort keys in [$2, $3) strictly after cursor $4.
	// An empty cursor sorts before every key.
	queryShardPage = `
		SELECT
			sk, id, family, occurred_at, attributes, measures
		FROM raw_events
		WHERE pk = $1
		  AND sk >= $2
		  AND sk < $3
		  AND sk > $4
		ORDER BY sk ASC
		LIMIT $5
	`

	// queryUpsertAggregate overwrites the whole record; re-running a day is idempotent.
	queryUpsertAggregate = `
		INSERT INTO aggregates (
			pk, sk, date, family, item_count, payload,
			idx1_pk, idx1_sk, idx2_pk, idx2_sk, idx3_pk, idx3_sk,
			expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		ON CONFLICT (pk, sk)
		DO UPDATE SET
			date       = EXCLUDED.date,
			family     = EXCLUDED.family,
			item_count = EXCLUDED.item_count,
			payload    = EXCLUDED.payload,
			idx1_pk    = EXCLUDED.idx1_pk,
			idx1_sk    = EXCLUDED.idx1_sk,
			idx2_pk    = EXCLUDED.idx2_pk,
			idx2_sk    = EXCLUDED.idx2_sk,
			idx3_pk    = EXCLUDED.idx3_pk,
			idx3_sk    = EXCLUDED.idx3_sk,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`

	queryGetAggregate = `
		SELECT payload
		FROM aggregates
		WHERE pk = $1
		  AND sk = $2
		  AND expires_at > now()
	`

	// queryPurgeExpired stands in for store-side TTL expiry.
	queryPurgeExpired = `DELETE FROM aggregates WHERE expires_at <= now()`
)

// queryIndexBySlot reads one secondary index; column names cannot be bound,
// so there is one statement per slot.
var queryIndexBySlot = map[int]string{
	1: indexQuery("idx1"),
	2: indexQuery("idx2"),
	3: indexQuery("idx3"),
}

func indexQuery(prefix string) string {
	return `
		SELECT payload
		FROM aggregates
		WHERE ` + prefix + `_pk = $1
		  AND ` + prefix + `_sk >= $2
		  AND ` + prefix + `_sk <= $3
		  AND expires_at > now()
		ORDER BY ` + prefix + `_sk ASC
	`
}
