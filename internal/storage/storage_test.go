package storage

import (
	"testing"
	"time"

	"github.com/pable/go-cs-coach/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(id, hash string) *model.MatchResult {
	rating := model.Rating{
		Player: 76561198000000001, Role: model.RoleEntry, RawImpact: 61.2, Percentile: 79.6, Final: 79.6,
		Rules: []model.RuleApplication{
			{Rule: "role_baseline", Kind: model.RuleNormalize, Value: 0.823, Before: 61.2, After: 79.6},
		},
	}
	return &model.MatchResult{
		SchemaVersion: model.SchemaVersion,
		AnalysisID:    id,
		DemoHash:      hash,
		MapName:       "de_nuke",
		MatchDate:     "2025-03-01",
		TickRate:      64,
		RoundsPlayed:  24,
		Score:         map[model.Team]int{model.TeamT: 13, model.TeamCT: 11},
		Players: map[string]model.PlayerRecord{
			"76561198000000001": {
				ID: 76561198000000001, Name: "Alice", Squad: model.TeamT, Rating: rating,
				Role: model.RoleAssignment{Player: 76561198000000001, Role: model.RoleEntry, Confidence: 0.6, EvidenceCount: 3},
				RoundRoles: []model.RoleAssignment{
					{Player: 76561198000000001, Round: 1, Role: model.RoleEntry, Confidence: 0.75, EvidenceCount: 3},
					{Player: 76561198000000001, Round: 2, Role: model.RoleSupport, Confidence: 0.5, EvidenceCount: 2},
				},
				WPA: 1.25, TradePotential: 62.5,
			},
		},
		Mistakes: []model.Mistake{
			{Tick: 640, Round: 1, Player: 76561198000000001, Type: model.MistakeDryPeek, Severity: 0.6, Label: model.SeverityMed, WPALoss: 0.12, Detail: "died without support"},
		},
		MistakeSummary: map[model.MistakeType]int{model.MistakeDryPeek: 1},
		Predictions:    []model.PredictionResult{},
		Rounds:         []model.RoundSummary{},
	}
}

func TestInsertAndExists(t *testing.T) {
	db := openMemDB(t)

	if err := db.InsertResult(makeResult("id-1", "abc123"), time.Now()); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	exists, err := db.AnalysisExists("id-1")
	if err != nil {
		t.Fatalf("AnalysisExists: %v", err)
	}
	if !exists {
		t.Error("expected analysis to exist after insert")
	}

	exists2, _ := db.AnalysisExists("nonexistent")
	if exists2 {
		t.Error("expected non-existent analysis to not exist")
	}
}

func TestListAnalyses(t *testing.T) {
	db := openMemDB(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	db.InsertResult(makeResult("id-1", "h1"), base)
	db.InsertResult(makeResult("id-2", "h2"), base.Add(time.Hour))

	list, err := db.ListAnalyses()
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(list))
	}
	// Ordered by created_at DESC, so id-2 comes first.
	if list[0].ID != "id-2" {
		t.Errorf("expected id-2 first (newest), got %s", list[0].ID)
	}
	if list[0].TScore != 13 || list[0].CTScore != 11 || list[0].Mistakes != 1 {
		t.Errorf("summary mismatch: %+v", list[0])
	}
	if !list[1].CreatedAt.Equal(base) {
		t.Errorf("created_at: want %v, got %v", base, list[1].CreatedAt)
	}
}

func TestGetAnalysisByPrefix(t *testing.T) {
	db := openMemDB(t)

	db.InsertResult(makeResult("6f1c2b8e-aaaa", "deadbeef1234"), time.Now())

	a, err := db.GetAnalysisByPrefix("deadb")
	if err != nil {
		t.Fatalf("GetAnalysisByPrefix: %v", err)
	}
	if a == nil {
		t.Fatal("expected match for prefix 'deadb'")
	}
	if a.DemoHash != "deadbeef1234" {
		t.Errorf("unexpected hash %s", a.DemoHash)
	}

	byID, _ := db.GetAnalysisByPrefix("6f1c")
	if byID == nil || byID.ID != "6f1c2b8e-aaaa" {
		t.Errorf("expected lookup by analysis id prefix, got %+v", byID)
	}

	none, err := db.GetAnalysisByPrefix("ffffffff")
	if err != nil {
		t.Fatalf("GetAnalysisByPrefix no-match: %v", err)
	}
	if none != nil {
		t.Error("expected nil for unknown prefix")
	}
}

func TestLoadResultRoundTrip(t *testing.T) {
	db := openMemDB(t)

	want := makeResult("id-1", "h1")
	if err := db.InsertResult(want, time.Now()); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	got, err := db.LoadResult("id-1")
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored result")
	}
	alice, ok := got.Players["76561198000000001"]
	if !ok {
		t.Fatal("Alice not found in stored result")
	}
	if alice.Rating.Final != 79.6 || alice.Rating.Rules[0].Rule != "role_baseline" {
		t.Errorf("rating mismatch: %+v", alice.Rating)
	}
	if len(alice.RoundRoles) != 2 || alice.RoundRoles[1].Role != model.RoleSupport {
		t.Errorf("round roles mismatch: %+v", alice.RoundRoles)
	}
	if got.Score[model.TeamT] != 13 {
		t.Errorf("score: want 13, got %d", got.Score[model.TeamT])
	}

	missing, err := db.LoadResult("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown id; got %v, %v", missing, err)
	}
}

func TestPlayerRatings(t *testing.T) {
	db := openMemDB(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.InsertResult(makeResult("id-1", "h1"), base)
	db.InsertResult(makeResult("id-2", "h2"), base.Add(24*time.Hour))

	rows, err := db.PlayerRatings(76561198000000001)
	if err != nil {
		t.Fatalf("PlayerRatings: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(rows))
	}
	if rows[0].AnalysisID != "id-2" {
		t.Errorf("expected newest first, got %s", rows[0].AnalysisID)
	}
	if rows[0].Squad != model.TeamT || rows[0].Role != model.RoleEntry || rows[0].Final != 79.6 {
		t.Errorf("rating row mismatch: %+v", rows[0])
	}
}

func TestInsertIdempotency(t *testing.T) {
	db := openMemDB(t)

	res := makeResult("idem1", "h1")
	db.InsertResult(res, time.Now())
	// Second insert should not error (INSERT OR REPLACE).
	if err := db.InsertResult(res, time.Now()); err != nil {
		t.Errorf("second InsertResult should succeed (idempotent): %v", err)
	}

	rows, _ := db.PlayerRatings(76561198000000001)
	if len(rows) != 1 {
		t.Errorf("expected 1 rating after re-insert, got %d", len(rows))
	}

	var n int
	db.conn.QueryRow("SELECT COUNT(1) FROM role_assignments WHERE analysis_id = ?", "idem1").Scan(&n)
	if n != 3 {
		t.Errorf("expected 3 role rows (match + 2 rounds), got %d", n)
	}
}

func TestDeleteAnalysis(t *testing.T) {
	db := openMemDB(t)

	db.InsertResult(makeResult("id-1", "h1"), time.Now())
	db.InsertResult(makeResult("id-2", "h2"), time.Now())

	ok, err := db.DeleteAnalysis("id-1")
	if err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if !ok {
		t.Error("expected id-1 to be deleted")
	}
	ok, _ = db.DeleteAnalysis("id-1")
	if ok {
		t.Error("second delete should report nothing removed")
	}

	for _, table := range []string{"ratings", "role_assignments", "mistakes", "rule_applications"} {
		var n int
		db.conn.QueryRow("SELECT COUNT(1) FROM "+table+" WHERE analysis_id = ?", "id-1").Scan(&n)
		if n != 0 {
			t.Errorf("%s still holds %d rows for id-1", table, n)
		}
	}

	n, err := db.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteAll: want 1, got %d", n)
	}
	list, _ := db.ListAnalyses()
	if len(list) != 0 {
		t.Errorf("expected empty archive, got %d", len(list))
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	db.InsertResult(makeResult("id-1", "h1"), time.Now())

	cols, rows, err := db.QueryRaw("SELECT map_name, t_score, NULL AS note FROM analyses")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 3 || cols[1] != "t_score" {
		t.Errorf("unexpected columns %v", cols)
	}
	if len(rows) != 1 || rows[0][0] != "de_nuke" || rows[0][1] != "13" || rows[0][2] != "NULL" {
		t.Errorf("unexpected rows %v", rows)
	}

	if _, _, err := db.QueryRaw("SELECT * FROM nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}
