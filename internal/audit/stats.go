package audit

import (
	"database/sql"
	"fmt"
	"math"
)

// DecisionRate holds how often each decision was reached.
type DecisionRate struct {
	Decision string  `json:"decision"`
	Count    int     `json:"count"`
	Pct      float64 `json:"pct"`
}

// QueryDecisionRates returns the distribution of decisions over finished runs.
func (d *DB) QueryDecisionRates() ([]DecisionRate, error) {
	rows, err := d.conn.Query(
		`SELECT decision, COUNT(*) FROM runs
		 WHERE decision IS NOT NULL AND decision != ''
		 GROUP BY decision ORDER BY COUNT(*) DESC, decision`)
	if err != nil {
		return nil, fmt.Errorf("query decision rates: %w", err)
	}
	defer rows.Close()

	var results []DecisionRate
	total := 0
	for rows.Next() {
		var dr DecisionRate
		if err := rows.Scan(&dr.Decision, &dr.Count); err != nil {
			return nil, fmt.Errorf("scan decision rate: %w", err)
		}
		total += dr.Count
		results = append(results, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Pct = pct(results[i].Count, total)
	}
	return results, nil
}

// CheckFailure holds failure stats for a specific check.
type CheckFailure struct {
	Check         string  `json:"check"`
	Total         int     `json:"total"`
	Failed        int     `json:"failed"`
	FailRate      float64 `json:"fail_rate_pct"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// QueryCheckFailures returns which checks fail most, worst first.
func (d *DB) QueryCheckFailures() ([]CheckFailure, error) {
	rows, err := d.conn.Query(
		`SELECT check_name,
			COUNT(*) as total,
			SUM(CASE WHEN passed THEN 0 ELSE 1 END) as failed,
			AVG(duration_ms) as avg_ms
		 FROM check_runs
		 GROUP BY check_name ORDER BY failed DESC, check_name`)
	if err != nil {
		return nil, fmt.Errorf("query check failures: %w", err)
	}
	defer rows.Close()

	var results []CheckFailure
	for rows.Next() {
		var cf CheckFailure
		var avgMs sql.NullFloat64
		if err := rows.Scan(&cf.Check, &cf.Total, &cf.Failed, &avgMs); err != nil {
			return nil, fmt.Errorf("scan check failure: %w", err)
		}
		cf.FailRate = pct(cf.Failed, cf.Total)
		if avgMs.Valid {
			cf.AvgDurationMs = math.Round(avgMs.Float64*10) / 10
		}
		results = append(results, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary holds aggregate run stats.
type Summary struct {
	TotalRuns  int     `json:"total_runs"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	AvgQuality float64 `json:"avg_quality"`
	AvgRisk    float64 `json:"avg_risk"`
}

// QuerySummary returns run counts and average scores.
func (d *DB) QuerySummary() (*Summary, error) {
	var s Summary
	var completed, failed sql.NullInt64
	var avgQ, avgR sql.NullFloat64
	err := d.conn.QueryRow(
		`SELECT COUNT(*),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			AVG(quality_score),
			AVG(risk_score)
		 FROM runs`).Scan(&s.TotalRuns, &completed, &failed, &avgQ, &avgR)
	if err != nil {
		return nil, fmt.Errorf("query run summary: %w", err)
	}
	s.Completed = int(completed.Int64)
	s.Failed = int(failed.Int64)
	if avgQ.Valid {
		s.AvgQuality = math.Round(avgQ.Float64*10) / 10
	}
	if avgR.Valid {
		s.AvgRisk = math.Round(avgR.Float64*1000) / 1000
	}
	return &s, nil
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
