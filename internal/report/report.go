package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func marker(id, focus model.PlayerID) string {
	if focus != 0 && id == focus {
		return ">"
	}
	return " "
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, res *model.MatchResult) {
	date := res.MatchDate
	if date == "" {
		date = "—"
	}
	fmt.Fprintf(w, "\nMap: %s  |  Date: %s  |  Score: T %d – CT %d  |  Rounds: %d  |  Hash: %s  |  Analysis: %s\n\n",
		res.MapName, date, res.Score[model.TeamT], res.Score[model.TeamCT], res.RoundsPlayed,
		shortHash(res.DemoHash), res.AnalysisID)
}

// SortedPlayers returns the player records by final rating desc, then id.
func SortedPlayers(res *model.MatchResult) []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(res.Players))
	for _, p := range res.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating.Final != out[j].Rating.Final {
			return out[i].Rating.Final > out[j].Rating.Final
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PrintPlayerTable prints the rating table. If focus is non-zero, that player's row is
// marked with ">".
func PrintPlayerTable(w io.Writer, res *model.MatchResult, focus model.PlayerID) {
	table := newTable(w)
	table.Header(
		" ", "NAME", "SQUAD", "ROLE", "CONF", "RATING", "PCT", "K", "D", "K/D", "ADR", "KAST%",
		"ENTRY_K", "ENTRY%", "TRADE_K", "CLUTCH", "WPA", "TRADE%",
	)
	for _, p := range SortedPlayers(res) {
		role := string(p.Role.Role)
		if len(p.Role.DemotedFrom) > 0 {
			role += "*"
		}
		table.Append(
			marker(p.ID, focus),
			p.Name,
			p.Squad.String(),
			role,
			fmt.Sprintf("%.2f", p.Role.Confidence),
			fmt.Sprintf("%.1f", p.Rating.Final),
			fmt.Sprintf("%.0f", p.Rating.Percentile),
			strconv.Itoa(p.Stats.Kills),
			strconv.Itoa(p.Stats.Deaths),
			fmt.Sprintf("%.2f", p.Stats.KDR),
			fmt.Sprintf("%.1f", p.Stats.ADR),
			fmt.Sprintf("%.0f%%", 100*p.Stats.KAST),
			strconv.Itoa(p.Stats.EntryKills),
			fmt.Sprintf("%.0f%%", 100*p.Stats.EntrySuccessRate),
			strconv.Itoa(p.Stats.TradeKills),
			strconv.Itoa(p.Stats.ClutchWins),
			fmt.Sprintf("%+.2f", p.WPA),
			fmt.Sprintf("%.0f%%", p.TradePotential),
		)
	}
	table.Render()
}

// PrintRuleTable prints the calibration trace of one player.
func PrintRuleTable(w io.Writer, p model.PlayerRecord) {
	fmt.Fprintf(w, "\nRating trace for %s (%s, raw impact %.1f):\n", p.Name, p.Rating.Role, p.Rating.RawImpact)
	table := newTable(w)
	table.Header("#", "RULE", "KIND", "VALUE", "BEFORE", "AFTER")
	for i, r := range p.Rating.Rules {
		table.Append(
			strconv.Itoa(i+1),
			r.Rule,
			string(r.Kind),
			fmt.Sprintf("%.4g", r.Value),
			fmt.Sprintf("%.1f", r.Before),
			fmt.Sprintf("%.1f", r.After),
		)
	}
	table.Render()
}

// PrintMistakeTable prints detected mistakes in output order. If focus is non-zero only
// that player's mistakes are shown.
func PrintMistakeTable(w io.Writer, res *model.MatchResult, focus model.PlayerID) {
	table := newTable(w)
	table.Header("ROUND", "TIME", "PLAYER", "TYPE", "SEV", "LABEL", "WPA_LOSS", "DETAIL")
	shown := 0
	for _, m := range res.Mistakes {
		if focus != 0 && m.Player != focus {
			continue
		}
		name := strconv.FormatUint(uint64(m.Player), 10)
		if p, ok := res.Players[name]; ok && p.Name != "" {
			name = p.Name
		}
		table.Append(
			strconv.Itoa(m.Round),
			clock(float64(m.Tick)/res.TickRate),
			name,
			string(m.Type),
			fmt.Sprintf("%.2f", m.Severity),
			m.Label,
			fmt.Sprintf("%.3f", m.WPALoss),
			m.Detail,
		)
		shown++
	}
	table.Render()
	if shown == 0 {
		fmt.Fprintln(w, "  no mistakes detected")
	}
}

// PrintMistakeSummary prints the per-type mistake counts.
func PrintMistakeSummary(w io.Writer, res *model.MatchResult) {
	table := newTable(w)
	table.Header("TYPE", "COUNT")
	for _, t := range model.MistakeTypes {
		table.Append(string(t), strconv.Itoa(res.MistakeSummary[t]))
	}
	table.Render()
}

// PrintFeedback prints every player's recurring death patterns, highest priority first
// within a player. When focus is set only that player is shown, with drills.
func PrintFeedback(w io.Writer, res *model.MatchResult, focus model.PlayerID) {
	table := newTable(w)
	table.Header("PLAYER", "PRIMARY", "PRIO", "CAUSE", "PHASE", "COUNT", "TRADED", "AVG_DIST", "FEEDBACK")
	var drills []string
	shown := 0
	for _, p := range SortedPlayers(res) {
		if focus != 0 && p.ID != focus {
			continue
		}
		for _, it := range p.Feedback.Items {
			primary := " "
			if it.Cause == p.Feedback.PrimaryIssue {
				primary = "x"
			}
			table.Append(
				p.Name,
				primary,
				strconv.Itoa(it.Priority),
				string(it.Cause),
				string(it.Phase),
				strconv.Itoa(it.Count),
				fmt.Sprintf("%d/%d", it.Traded, it.Count),
				fmt.Sprintf("%.0f", it.AvgTeammateDistance),
				it.Message,
			)
			drills = append(drills, it.Drills...)
			shown++
		}
	}
	table.Render()
	if shown == 0 {
		fmt.Fprintln(w, "  no recurring death patterns")
		return
	}
	if focus != 0 && len(drills) > 0 {
		fmt.Fprintln(w, "\nDrills:")
		seen := make(map[string]bool)
		for _, d := range drills {
			if !seen[d] {
				seen[d] = true
				fmt.Fprintf(w, "  - %s\n", d)
			}
		}
	}
}

// PrintRoundTable prints each round with its T win prediction and strongest factor.
func PrintRoundTable(w io.Writer, res *model.MatchResult) {
	preds := make(map[int]model.PredictionResult)
	for _, p := range res.Predictions {
		if p.Kind == model.PredictRoundWin {
			preds[p.Round] = p
		}
	}
	table := newTable(w)
	table.Header("ROUND", "WINNER", "PLANT", "EQUIP_DIFF", "P(T)", "CONF", "TOP_FACTOR")
	for _, r := range res.Rounds {
		p, ok := preds[r.Number]
		prob, conf, top, econ := "—", "—", "—", "—"
		if ok {
			prob = fmt.Sprintf("%.0f%%", 100*p.Probability)
			conf = fmt.Sprintf("%.2f", p.Confidence)
			if len(p.Factors) > 0 && p.Factors[0].Contribution != 0 {
				top = fmt.Sprintf("%s %+.2f", p.Factors[0].Name, p.Factors[0].Contribution)
			}
			for _, f := range p.Factors {
				if f.Name == "economy" {
					econ = humanize.Comma(int64(f.Input))
				}
			}
		}
		plant := " "
		if r.Planted {
			plant = "x"
		}
		table.Append(strconv.Itoa(r.Number), r.Winner.String(), plant, econ, prob, conf, top)
	}
	table.Render()
}

// PrintAnalysisList prints archived analyses with their age relative to now.
func PrintAnalysisList(w io.Writer, list []storage.Analysis, now time.Time) {
	table := newTable(w)
	table.Header("HASH", "ANALYSIS", "MAP", "DATE", "SCORE", "ROUNDS", "MISTAKES", "STORED")
	for _, a := range list {
		table.Append(
			shortHash(a.DemoHash),
			a.ID[:min(8, len(a.ID))],
			a.MapName,
			a.MatchDate,
			fmt.Sprintf("%d–%d", a.TScore, a.CTScore),
			strconv.Itoa(a.RoundsPlayed),
			humanize.Comma(int64(a.Mistakes)),
			humanize.RelTime(a.CreatedAt, now, "ago", "from now"),
		)
	}
	table.Render()
}

func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// PrintRatingHistory prints one player's archived ratings, newest first, with the mean
// final rating as a footer line.
func PrintRatingHistory(w io.Writer, rows []storage.RatingRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", rows[0].Name, rows[0].SteamID)
	table := newTable(w)
	table.Header("ANALYSIS", "SQUAD", "ROLE", "RAW", "PCT", "RATING", "WPA", "TRADE%")
	var sum float64
	for _, r := range rows {
		sum += r.Final
		table.Append(
			r.AnalysisID[:min(8, len(r.AnalysisID))],
			r.Squad.String(),
			string(r.Role),
			fmt.Sprintf("%.1f", r.RawImpact),
			fmt.Sprintf("%.0f", r.Percentile),
			fmt.Sprintf("%.1f", r.Final),
			fmt.Sprintf("%+.2f", r.WPA),
			fmt.Sprintf("%.0f%%", r.TradePotential),
		)
	}
	table.Render()
	fmt.Fprintf(w, "  %d matches, mean rating %.1f\n", len(rows), sum/float64(len(rows)))
}

// PrintRoundRoles prints one player's per-round role assignments.
func PrintRoundRoles(w io.Writer, p model.PlayerRecord) {
	fmt.Fprintf(w, "\nRound roles for %s (match role %s):\n", p.Name, p.Role.Role)
	table := newTable(w)
	table.Header("ROUND", "ROLE", "CONF", "EVIDENCE", "DEMOTED_FROM")
	for _, a := range p.RoundRoles {
		demoted := make([]string, len(a.DemotedFrom))
		for i, r := range a.DemotedFrom {
			demoted[i] = string(r)
		}
		table.Append(
			strconv.Itoa(a.Round),
			string(a.Role),
			fmt.Sprintf("%.2f", a.Confidence),
			strconv.Itoa(a.EvidenceCount),
			strings.Join(demoted, ","),
		)
	}
	table.Render()
}

// PrintRows prints an arbitrary result set, one row per line.
func PrintRows(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}
