package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-cs-coach/internal/model"
)

// Analysis is the archived summary row of one MatchResult.
type Analysis struct {
	ID           string
	DemoHash     string
	MapName      string
	MatchDate    string
	TickRate     float64
	RoundsPlayed int
	TScore       int
	CTScore      int
	Mistakes     int
	CreatedAt    time.Time
}

// RatingRow is one archived player rating.
type RatingRow struct {
	AnalysisID     string
	SteamID        uint64
	Name           string
	Squad          model.Team
	Role           model.Role
	RawImpact      float64
	Percentile     float64
	Final          float64
	WPA            float64
	TradePotential float64
}

const analysisColumns = `analysis_id, demo_hash, map_name, match_date, tick_rate,
	rounds_played, t_score, ct_score, mistakes, created_at`

// AnalysisExists returns true if an analysis with the given id is already stored.
func (db *DB) AnalysisExists(id string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM analyses WHERE analysis_id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertResult archives res and every row derived from it in one transaction. Storing the
// same analysis twice replaces the earlier copy.
func (db *DB) InsertResult(res *model.MatchResult, now time.Time) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteChildren(tx, res.AnalysisID); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO analyses(`+analysisColumns+`, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.AnalysisID, res.DemoHash, res.MapName, res.MatchDate, res.TickRate,
		res.RoundsPlayed, res.Score[model.TeamT], res.Score[model.TeamCT], len(res.Mistakes),
		now.UTC().Format(time.RFC3339), string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	if err := insertPlayers(tx, res); err != nil {
		return err
	}
	if err := insertMistakes(tx, res); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlayers(tx *sql.Tx, res *model.MatchResult) error {
	ratings, err := tx.Prepare(`
		INSERT OR REPLACE INTO ratings(
			analysis_id, steam_id, name, squad, role,
			raw_impact, percentile, final, wpa, trade_potential
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer ratings.Close()

	roles, err := tx.Prepare(`
		INSERT OR REPLACE INTO role_assignments(
			analysis_id, steam_id, round_number, role, confidence, evidence_count, demoted_from
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer roles.Close()

	rules, err := tx.Prepare(`
		INSERT OR REPLACE INTO rule_applications(
			analysis_id, steam_id, seq, rule, kind, value, before, after
		) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer rules.Close()

	for key, p := range res.Players {
		r := p.Rating
		_, err = ratings.Exec(res.AnalysisID, key, p.Name, p.Squad.String(), string(r.Role),
			r.RawImpact, r.Percentile, r.Final, p.WPA, p.TradePotential)
		if err != nil {
			return fmt.Errorf("insert rating for %s: %w", key, err)
		}

		for _, a := range append([]model.RoleAssignment{p.Role}, p.RoundRoles...) {
			_, err = roles.Exec(res.AnalysisID, key, a.Round, string(a.Role), a.Confidence,
				a.EvidenceCount, joinRoles(a.DemotedFrom))
			if err != nil {
				return fmt.Errorf("insert role for %s round %d: %w", key, a.Round, err)
			}
		}

		for i, a := range r.Rules {
			_, err = rules.Exec(res.AnalysisID, key, i, a.Rule, string(a.Kind), a.Value, a.Before, a.After)
			if err != nil {
				return fmt.Errorf("insert rule %s for %s: %w", a.Rule, key, err)
			}
		}
	}
	return nil
}

func insertMistakes(tx *sql.Tx, res *model.MatchResult) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO mistakes(
			analysis_id, seq, round_number, tick, steam_id, type, severity, label, wpa_loss, detail
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range res.Mistakes {
		_, err = stmt.Exec(res.AnalysisID, i, m.Round, m.Tick,
			strconv.FormatUint(uint64(m.Player), 10), string(m.Type),
			m.Severity, m.Label, m.WPALoss, m.Detail)
		if err != nil {
			return fmt.Errorf("insert mistake %d: %w", i, err)
		}
	}
	return nil
}

func deleteChildren(tx *sql.Tx, id string) error {
	for _, table := range []string{"ratings", "role_assignments", "mistakes", "rule_applications"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE analysis_id = ?", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// ListAnalyses returns all stored analyses, newest first.
func (db *DB) ListAnalyses() ([]Analysis, error) {
	rows, err := db.conn.Query(`SELECT ` + analysisColumns + `
		FROM analyses ORDER BY created_at DESC, analysis_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (Analysis, error) {
	var a Analysis
	var created string
	if err := s.Scan(&a.ID, &a.DemoHash, &a.MapName, &a.MatchDate, &a.TickRate,
		&a.RoundsPlayed, &a.TScore, &a.CTScore, &a.Mistakes, &created); err != nil {
		return a, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return a, nil
}

// GetAnalysisByPrefix finds the newest analysis whose demo hash or analysis id starts with
// prefix. It returns nil when nothing matches.
func (db *DB) GetAnalysisByPrefix(prefix string) (*Analysis, error) {
	row := db.conn.QueryRow(`SELECT `+analysisColumns+`
		FROM analyses WHERE demo_hash LIKE ? OR analysis_id LIKE ?
		ORDER BY created_at DESC, analysis_id LIMIT 1`, prefix+"%", prefix+"%")
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadResult decodes the archived MatchResult of an analysis.
func (db *DB) LoadResult(id string) (*model.MatchResult, error) {
	var raw string
	err := db.conn.QueryRow("SELECT result_json FROM analyses WHERE analysis_id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res model.MatchResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode stored result %s: %w", id, err)
	}
	return &res, nil
}

// PlayerRatings returns every archived rating of one player, newest analysis first.
func (db *DB) PlayerRatings(steamID uint64) ([]RatingRow, error) {
	rows, err := db.conn.Query(`
		SELECT r.analysis_id, r.steam_id, r.name, r.squad, r.role,
		       r.raw_impact, r.percentile, r.final, r.wpa, r.trade_potential
		FROM ratings r JOIN analyses a ON a.analysis_id = r.analysis_id
		WHERE r.steam_id = ?
		ORDER BY a.created_at DESC, a.analysis_id`, strconv.FormatUint(steamID, 10))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RatingRow
	for rows.Next() {
		var r RatingRow
		var steamIDStr, squad, role string
		if err := rows.Scan(&r.AnalysisID, &steamIDStr, &r.Name, &squad, &role,
			&r.RawImpact, &r.Percentile, &r.Final, &r.WPA, &r.TradePotential); err != nil {
			return nil, err
		}
		r.SteamID, _ = strconv.ParseUint(steamIDStr, 10, 64)
		r.Squad = parseTeam(squad)
		r.Role = model.Role(role)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteAnalysis removes one analysis and its rows. It returns false when id is unknown.
func (db *DB) DeleteAnalysis(id string) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := deleteChildren(tx, id); err != nil {
		return false, err
	}
	res, err := tx.Exec("DELETE FROM analyses WHERE analysis_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// DeleteAll removes every archived analysis and returns how many were removed.
func (db *DB) DeleteAll() (int, error) {
	list, err := db.ListAnalyses()
	if err != nil {
		return 0, err
	}
	for _, a := range list {
		if _, err := db.DeleteAnalysis(a.ID); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}

func joinRoles(rs []model.Role) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func parseTeam(s string) model.Team {
	switch s {
	case "T":
		return model.TeamT
	case "CT":
		return model.TeamCT
	default:
		return model.TeamUnknown
	}
}

// QueryRaw runs an arbitrary read query and returns column names and rows rendered as
// strings. NULL renders as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}
