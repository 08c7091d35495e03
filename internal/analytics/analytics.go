package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ds-tutor/internal/storage"
)

// DailyStats summarises tutor usage for one calendar day.
type DailyStats struct {
	Date             string               `json:"date"`
	TotalTurns       int                  `json:"total_turns"`
	FailedTurns      int                  `json:"failed_turns"`
	UniqueUsers      int                  `json:"unique_users"`
	PromptTokens     int                  `json:"prompt_tokens"`
	CompletionTokens int                  `json:"completion_tokens"`
	ModelsUsed       map[string]int       `json:"models_used"`
	UserStats        map[string]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID      string `json:"user_id"`
	Turns       int    `json:"turns"`
	FailedTurns int    `json:"failed_turns"`
}

// AnalyzeDailyLogs aggregates events whose timestamp falls on targetDate
// (in targetDate's location).
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		ModelsUsed: make(map[string]int),
		UserStats:  make(map[string]UserStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.Query == "" {
			continue
		}

		stats.TotalTurns++
		us := stats.UserStats[event.UserID]
		us.UserID = event.UserID
		us.Turns++
		if event.Failed() {
			stats.FailedTurns++
			us.FailedTurns++
		} else {
			stats.PromptTokens += event.PromptTokens
			stats.CompletionTokens += event.CompletionTokens
			if event.Model != "" {
				stats.ModelsUsed[event.Model]++
			}
		}
		stats.UserStats[event.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// GenerateReportSummary renders a plain-text report for operators.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data Science Tutor usage for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Turns: %d (failed: %d)\n", ds.TotalTurns, ds.FailedTurns)
	fmt.Fprintf(&b, "Unique users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "Tokens: prompt=%d, completion=%d\n", ds.PromptTokens, ds.CompletionTokens)

	if len(ds.ModelsUsed) > 0 {
		b.WriteString("\nModels:\n")
		for _, m := range sortedKeys(ds.ModelsUsed) {
			fmt.Fprintf(&b, "- %s: %d\n", m, ds.ModelsUsed[m])
		}
	}

	if len(ds.UserStats) > 0 {
		b.WriteString("\nUsers:\n")
		ids := make([]string, 0, len(ds.UserStats))
		for id := range ds.UserStats {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			us := ds.UserStats[id]
			fmt.Fprintf(&b, "- %s: %d turns", id, us.Turns)
			if us.FailedTurns > 0 {
				fmt.Fprintf(&b, ", %d failed", us.FailedTurns)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
