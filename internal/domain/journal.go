// Journal projection types.
//
// These are derived per request by the journal aggregator and never
// persisted: heterogeneous completion records are normalized into
// JournalEntry values, bucketed into Sunday-aligned JournalWeek groups, and
// summarized into streak statistics.
package domain

import "time"

// Journal entry type tags. Closed enumeration; every source collection maps
// to exactly one tag.
const (
	EntryGateway          = "gateway"
	EntryDoNow            = "do_now"
	EntryScenario         = "scenario"
	EntryChallenge        = "challenge"
	EntryHelpGiven        = "help_given"
	EntryHelpReceived     = "help_received"
	EntryDiscovery        = "discovery"
	EntryTeacherChallenge = "teacher_challenge"
	EntryRipple           = "ripple"
)

// Reward is the world-resource award a journal entry implies.
type Reward struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// JournalEntry is the normalized projection of one completion record.
type JournalEntry struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Skill       string    `json:"skill,omitempty"`
	Reward      *Reward   `json:"reward,omitempty"`
}

// JournalWeek groups the entries of one Sunday-aligned calendar week.
// Entries are ordered ascending by date; Highlights is the deduplicated,
// insertion-ordered list of reward glyphs seen that week.
type JournalWeek struct {
	WeekStart  time.Time      `json:"week_start"`
	WeekEnd    time.Time      `json:"week_end"`
	Entries    []JournalEntry `json:"entries"`
	Highlights []string       `json:"highlights"`
}

// Journal is the aggregated result returned by GET /journal.
type Journal struct {
	Weeks           []JournalWeek `json:"weeks"`
	TotalDaysActive int           `json:"total_days_active"`
	LongestStreak   int           `json:"longest_streak"`
	CurrentStreak   int           `json:"current_streak"`
	TotalRipples    int           `json:"total_ripples"`
	SkillsLearned   []string      `json:"skills_learned"`
}
