// Package analysis summarises rollout parquet output with DuckDB.
package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DB is an in-memory DuckDB with a `transitions` view over every batch file
// under the given roots. In-progress files under tmp/ are skipped.
type DB struct {
	db *sql.DB
}

func Open(ctx context.Context, roots ...string) (*DB, error) {
	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}
	if len(globs) == 0 {
		return nil, fmt.Errorf("no rollout roots given")
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Ignore errors for compatibility across versions.
	_, _ = db.ExecContext(ctx, "PRAGMA threads=4")

	view := `CREATE OR REPLACE VIEW transitions AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE filename NOT LIKE '%/tmp/batch_%'`
	if _, err := db.ExecContext(ctx, view); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create transitions view: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

type RunSummary struct {
	RunID        string
	Policy       string
	Episodes     int64
	Steps        int64
	MeanSteps    float64
	MeanReward   float64
	BestScore    int64
	Terminations int64
}

type EpisodeSummary struct {
	Episode     int64
	Seed        int64
	Steps       int64
	TotalReward float64
	BestScore   int64
	Terminated  bool
}

const episodesCTE = `WITH episodes AS (
	SELECT
		run_id,
		episode,
		any_value(policy) AS policy,
		any_value(seed) AS seed,
		count(*) AS steps,
		CAST(sum(reward) AS DOUBLE) AS total_reward,
		max(score) AS best_score,
		bool_or(done) AS terminated
	FROM transitions
	GROUP BY run_id, episode
)`

// Runs summarises every run found under the roots, ordered by run id.
func (d *DB) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := d.db.QueryContext(ctx, episodesCTE+`
		SELECT
			run_id,
			any_value(policy),
			count(*),
			CAST(sum(steps) AS BIGINT),
			CAST(avg(steps) AS DOUBLE),
			CAST(avg(total_reward) AS DOUBLE),
			CAST(max(best_score) AS BIGINT),
			CAST(count(*) FILTER (WHERE terminated) AS BIGINT)
		FROM episodes
		GROUP BY run_id
		ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Policy, &s.Episodes, &s.Steps, &s.MeanSteps, &s.MeanReward, &s.BestScore, &s.Terminations); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Episodes lists the episodes of one run in episode order.
func (d *DB) Episodes(ctx context.Context, runID string) ([]EpisodeSummary, error) {
	rows, err := d.db.QueryContext(ctx, episodesCTE+`
		SELECT
			CAST(episode AS BIGINT),
			seed,
			steps,
			total_reward,
			CAST(best_score AS BIGINT),
			terminated
		FROM episodes
		WHERE run_id = ?
		ORDER BY episode`, runID)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var s EpisodeSummary
		if err := rows.Scan(&s.Episode, &s.Seed, &s.Steps, &s.TotalReward, &s.BestScore, &s.Terminated); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
