// Package services – JournalService
//
// This file implements the journal aggregator: nine heterogeneous completion
// sources are fetched concurrently, normalized into a common entry shape,
// bucketed into Sunday-aligned calendar weeks, and summarized into streak
// statistics. Everything is computed per request; nothing here persists.
//
// Observability: Aggregate is OpenTelemetry-instrumented; the span carries
// the student id and resulting entry count.
package services

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
)

// journalDay is the granularity of streak computation.
const journalDay = 24 * time.Hour

// rewardGlyphs maps resource kinds to the highlight glyphs shown on a week.
var rewardGlyphs = map[string]string{
	domain.ResourceFlower:  "🌸",
	domain.ResourceTree:    "🌲",
	domain.ResourceTower:   "🗼",
	domain.ResourceBridge:  "🌉",
	domain.ResourceCrystal: "💎",
}

// JournalService computes the aggregated activity journal.
type JournalService struct {
	DB *gorm.DB
}

// Aggregate builds the journal for one student.
//
// The nine source queries run concurrently; each is bounded at the
// repository layer. Zero entries yields an empty week list and all-zero
// statistics, never an error.
func (s *JournalService) Aggregate(ctx context.Context, studentID string) (*domain.Journal, error) {
	tr := otel.Tracer("services/JournalService")
	ctx, span := tr.Start(ctx, "Aggregate",
		trace.WithAttributes(attribute.String("student.id", studentID)),
	)
	defer span.End()

	var (
		gateway   *domain.GatewayChallenge
		doNows    []domain.DoNowCompletion
		scenarios []domain.ScenarioCompletion
		quests    []domain.ChallengeSubmission
		given     []domain.HelpEvent
		received  []domain.HelpEvent
		posts     []domain.Discovery
		responses []domain.ChallengeResponse
		ripples   []domain.Ripple
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { gateway, err = repo.ApprovedGateway(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { doNows, err = repo.ListDoNows(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { scenarios, err = repo.ListScenarios(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { quests, err = repo.ListChallengeSubmissions(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { given, err = repo.ListHelpGiven(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { received, err = repo.ListHelpReceived(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { posts, err = repo.ListStudentDiscoveries(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { responses, err = repo.ListStudentChallengeResponses(gctx, s.DB, studentID); return })
	g.Go(func() (err error) { ripples, err = repo.ListRipples(gctx, s.DB, studentID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := normalizeEntries(gateway, doNows, scenarios, quests, given, received, posts, responses, ripples)
	span.SetAttributes(attribute.Int("journal.entries", len(entries)))

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	j := &domain.Journal{
		Weeks:         bucketWeeks(entries),
		SkillsLearned: collectSkills(entries),
		TotalRipples:  len(ripples),
	}
	days := distinctDays(entries)
	j.TotalDaysActive = len(days)
	j.LongestStreak, j.CurrentStreak = computeStreaks(days)
	return j, nil
}

// reward returns a one-unit reward hint for kind.
func reward(kind string) *domain.Reward {
	return &domain.Reward{Type: kind, Amount: 1}
}

// normalizeEntries projects every source record into the common entry shape
// with its fixed type tag, synthesized description, and reward hint.
func normalizeEntries(
	gateway *domain.GatewayChallenge,
	doNows []domain.DoNowCompletion,
	scenarios []domain.ScenarioCompletion,
	quests []domain.ChallengeSubmission,
	given, received []domain.HelpEvent,
	posts []domain.Discovery,
	responses []domain.ChallengeResponse,
	ripples []domain.Ripple,
) []domain.JournalEntry {
	entries := make([]domain.JournalEntry, 0,
		len(doNows)+len(scenarios)+len(quests)+len(given)+len(received)+len(posts)+len(responses)+len(ripples)+1)

	if gateway != nil {
		date := gateway.CreatedAt
		if gateway.CompletedAt != nil {
			date = *gateway.CompletedAt
		}
		entries = append(entries, domain.JournalEntry{
			ID:          gateway.ID,
			Date:        date,
			Type:        domain.EntryGateway,
			Title:       "Gateway challenge",
			Description: "Sent a " + gateway.MessageType + " message to " + gateway.Recipient,
			Reward:      reward(domain.ResourceFlower),
		})
	}
	for _, r := range doNows {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryDoNow,
			Title:       r.Title,
			Description: "Completed the do-now " + r.Title,
			Skill:       r.SkillTag,
			Reward:      reward(domain.ResourceFlower),
		})
	}
	for _, r := range scenarios {
		desc := "Worked through the scenario " + r.Title
		if r.Outcome != "" {
			desc += " - " + r.Outcome
		}
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryScenario,
			Title:       r.Title,
			Description: desc,
			Skill:       r.SkillTag,
			Reward:      reward(domain.ResourceTree),
		})
	}
	for _, r := range quests {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryChallenge,
			Title:       r.Title,
			Description: "Submitted the challenge " + r.Title,
			Skill:       r.SkillTag,
			Reward:      reward(domain.ResourceTower),
		})
	}
	for _, r := range given {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryHelpGiven,
			Title:       "Helped a classmate",
			Description: r.Description,
			Reward:      reward(domain.ResourceBridge),
		})
	}
	for _, r := range received {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryHelpReceived,
			Title:       "Received help",
			Description: r.Description,
		})
	}
	for _, r := range posts {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryDiscovery,
			Title:       r.Title,
			Description: "Shared the discovery " + r.Title,
			Skill:       r.SkillTag,
			Reward:      reward(domain.ResourceFlower),
		})
	}
	for _, r := range responses {
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryTeacherChallenge,
			Title:       r.Challenge.Title,
			Description: "Responded to the class challenge " + r.Challenge.Title,
			Skill:       r.Challenge.SkillTag,
			Reward:      reward(domain.ResourceFlower),
		})
	}
	for _, r := range ripples {
		title := "Ripple"
		if r.ChainPosition == 1 {
			title = "Started a ripple"
		}
		entries = append(entries, domain.JournalEntry{
			ID:          r.ID,
			Date:        r.CreatedAt,
			Type:        domain.EntryRipple,
			Title:       title,
			Description: r.Description,
			Reward:      reward(domain.ResourceCrystal),
		})
	}
	return entries
}

// weekStart returns the most recent Sunday at or before t, time-of-day
// zeroed in t's location.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// bucketWeeks groups pre-sorted entries into calendar weeks in one linear
// pass, opening a new bucket whenever the computed week start changes.
// Correctness depends on the ascending sort performed by the caller. The
// result is reversed so the most recent week comes first.
func bucketWeeks(entries []domain.JournalEntry) []domain.JournalWeek {
	weeks := []domain.JournalWeek{}
	for _, e := range entries {
		ws := weekStart(e.Date)
		if len(weeks) == 0 || !weeks[len(weeks)-1].WeekStart.Equal(ws) {
			weeks = append(weeks, domain.JournalWeek{
				WeekStart:  ws,
				WeekEnd:    ws.AddDate(0, 0, 6),
				Entries:    []domain.JournalEntry{},
				Highlights: []string{},
			})
		}
		w := &weeks[len(weeks)-1]
		w.Entries = append(w.Entries, e)
		if e.Reward != nil {
			if glyph, ok := rewardGlyphs[e.Reward.Type]; ok && !contains(w.Highlights, glyph) {
				w.Highlights = append(w.Highlights, glyph)
			}
		}
	}
	// Most recent week first.
	for i, j := 0, len(weeks)-1; i < j; i, j = i+1, j-1 {
		weeks[i], weeks[j] = weeks[j], weeks[i]
	}
	return weeks
}

// distinctDays returns the deduplicated calendar dates (midnight-normalized)
// of all entries, sorted ascending.
func distinctDays(entries []domain.JournalEntry) []time.Time {
	seen := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		key := e.Date.Format("2006-01-02")
		if _, ok := seen[key]; !ok {
			seen[key] = time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// computeStreaks walks the sorted distinct days. A gap of exactly one day
// extends the running streak; a larger gap resets it to 1. Duplicate dates
// cannot occur because the input is deduplicated. Returns the longest run
// seen and the trailing run.
func computeStreaks(days []time.Time) (longest, current int) {
	if len(days) == 0 {
		return 0, 0
	}
	longest, current = 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == journalDay {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest, current
}

// collectSkills returns the deduplicated skill tags in order of first
// occurrence, display-cased for the UI.
func collectSkills(entries []domain.JournalEntry) []string {
	caser := cases.Title(language.English)
	out := []string{}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.Skill == "" {
			continue
		}
		if _, ok := seen[e.Skill]; ok {
			continue
		}
		seen[e.Skill] = struct{}{}
		out = append(out, caser.String(e.Skill))
	}
	return out
}

// contains reports whether list holds s. Lists here are tiny (at most five
// glyphs), so a linear scan beats a map.
func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
