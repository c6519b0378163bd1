// Package services – CoachService
//
// This file implements the AI coaching proxy behind /ai/brainstorm and
// /ai/socratic. The service composes a persona-specific system prompt,
// forwards a bounded conversation under a hard abort deadline, and degrades
// rather than fails: a timeout is a retryable "still thinking" outcome and
// upstream errors become an opaque unavailability, with detail only logged.
//
// The Socratic variant screens the latest user message for crisis keywords
// before anything else, ahead of rate limits, persona selection, and the
// AI call, and short-circuits to a fixed safety message on a hit.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadcraft/leadcraft-backend/internal/ai"
)

// Coach degradation sentinels, translated by the handler layer.
var (
	// ErrCoachUnavailable means no credential is configured or the upstream
	// call failed; clients get a generic 503.
	ErrCoachUnavailable = errors.New("coach service unavailable")

	// ErrCoachTimeout means the abort deadline fired before the upstream
	// call resolved; clients get a soft retryable 200.
	ErrCoachTimeout = errors.New("coach timed out")
)

// coachTimeout is the hard abort deadline for one completion call. Once it
// fires the upstream request is abandoned locally; the remote side may keep
// computing, we just stop waiting for it.
const coachTimeout = 25 * time.Second

// maxHistoryTurns bounds how much conversation is forwarded upstream.
const maxHistoryTurns = 20

// sessionCompleteMarker is the explicit completion signal the system prompt
// asks the model for, replacing substring sniffing of generated text.
const sessionCompleteMarker = "[SESSION_COMPLETE]"

// SessionType is the closed set of coaching personas. Unknown tags parse to
// SessionDefault, making the fallback an explicit variant rather than a map
// lookup miss.
type SessionType int

// Session personas.
const (
	SessionDefault SessionType = iota
	SessionBrainstorm
	SessionReflection
	SessionConflict
	SessionGoals
)

// ParseSessionType maps a wire tag to its persona, defaulting for unknowns.
func ParseSessionType(tag string) SessionType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "brainstorm":
		return SessionBrainstorm
	case "reflection", "reflect":
		return SessionReflection
	case "conflict":
		return SessionConflict
	case "goals", "goal_setting":
		return SessionGoals
	default:
		return SessionDefault
	}
}

// prompt returns the persona's system prompt template. {skills} and
// {context} are interpolated by buildSystemPrompt.
func (t SessionType) prompt() string {
	switch t {
	case SessionBrainstorm:
		return "You are a Socratic leadership coach helping a high-school student brainstorm. " +
			"Never hand over answers; ask one probing question at a time and build on the student's own ideas. " +
			"The student is working on these skills: {skills}. {context}"
	case SessionReflection:
		return "You are a reflective leadership coach. Guide the student to examine what happened, " +
			"what they felt, and what they would do differently, one question at a time. " +
			"Skills in focus: {skills}. {context}"
	case SessionConflict:
		return "You are a leadership coach specializing in peer conflict. Help the student see the other " +
			"side's perspective through questions, never prescriptions. Skills in focus: {skills}. {context}"
	case SessionGoals:
		return "You are a leadership coach for goal setting. Help the student shape one concrete, " +
			"achievable next step through questioning. Skills in focus: {skills}. {context}"
	default:
		return "You are a supportive Socratic leadership coach for a high-school student. " +
			"Ask one thoughtful question at a time and keep answers short. Skills in focus: {skills}. {context}"
	}
}

// crisisKeywords short-circuit the Socratic path. Matching is a simple
// case-insensitive substring scan; false positives are acceptable, false
// negatives are not.
var crisisKeywords = []string{
	"kill myself",
	"suicide",
	"want to die",
	"end my life",
	"hurt myself",
	"self harm",
	"self-harm",
	"no reason to live",
}

// crisisSafetyMessage is returned verbatim on a crisis hit.
const crisisSafetyMessage = "It sounds like you're going through something really heavy right now, and that matters more than any exercise here. Please talk to a trusted adult, your school counselor, or call or text 988, where you can reach someone right now. I'm not able to help with this, but those people are."

// CoachReply is the relayed (or degraded) coaching turn.
type CoachReply struct {
	Message        string `json:"message"`
	CrisisDetected bool   `json:"crisis_detected"`
	Complete       bool   `json:"complete"`
}

// CoachService proxies coaching turns to the completion client.
type CoachService struct {
	Client    *ai.Client
	MaxTokens int

	// Logger reports crisis events through a dedicated path so they are
	// never lost in request noise.
	Logger zerolog.Logger
}

// Available reports whether the AI dependency can be called at all. The
// handler checks this before parsing any request body.
func (s *CoachService) Available() bool {
	return s.Client != nil && s.Client.Configured()
}

// buildSystemPrompt interpolates the student's skills and optional free-text
// context into the persona template.
func buildSystemPrompt(t SessionType, skills []string, extra string) string {
	skillList := "general leadership"
	if len(skills) > 0 {
		skillList = strings.Join(skills, ", ")
	}
	ctxLine := ""
	if strings.TrimSpace(extra) != "" {
		ctxLine = "Additional context from the student: " + strings.TrimSpace(extra)
	}
	p := t.prompt()
	p = strings.ReplaceAll(p, "{skills}", skillList)
	p = strings.ReplaceAll(p, "{context}", ctxLine)
	p += " When the student has reached a clear, settled conclusion, append the marker " +
		sessionCompleteMarker + " to the end of your reply."
	return strings.TrimSpace(p)
}

// Brainstorm relays one coaching turn for the given persona tag.
func (s *CoachService) Brainstorm(ctx context.Context, tag string, history []ai.Message, skills []string, extra string) (*CoachReply, error) {
	if !s.Available() {
		return nil, ErrCoachUnavailable
	}
	return s.complete(ctx, ParseSessionType(tag), history, skills, extra)
}

// Socratic relays one coaching turn with the crisis pre-flight. The scan is
// unconditional and takes precedence over every other rule: a hit never
// reaches the AI service and is reported through the crisis log path.
func (s *CoachService) Socratic(ctx context.Context, studentID, tag string, history []ai.Message, skills []string, extra string) (*CoachReply, error) {
	if msg, hit := detectCrisis(history); hit {
		s.Logger.Error().
			Str("component", "crisis").
			Str("student_id", studentID).
			Str("trigger", msg).
			Msg("crisis keyword detected in coaching session")
		return &CoachReply{Message: crisisSafetyMessage, CrisisDetected: true}, nil
	}
	if !s.Available() {
		return nil, ErrCoachUnavailable
	}
	return s.complete(ctx, ParseSessionType(tag), history, skills, extra)
}

// complete performs the bounded upstream call and classifies its failure
// modes into the two degradation sentinels.
func (s *CoachService) complete(ctx context.Context, persona SessionType, history []ai.Message, skills []string, extra string) (*CoachReply, error) {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: buildSystemPrompt(persona, skills, extra)})
	messages = append(messages, history...)

	cctx, cancel := context.WithTimeout(ctx, coachTimeout)
	defer cancel()

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	reply, err := s.Client.Complete(cctx, messages, maxTokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() != nil {
			return nil, ErrCoachTimeout
		}
		s.Logger.Error().Err(err).Str("component", "coach").Msg("completion call failed")
		return nil, ErrCoachUnavailable
	}

	out := &CoachReply{Message: reply}
	if strings.Contains(reply, sessionCompleteMarker) {
		out.Complete = true
		out.Message = strings.TrimSpace(strings.ReplaceAll(reply, sessionCompleteMarker, ""))
	}
	return out, nil
}

// ContainsCrisisLanguage reports whether the text matches a crisis keyword.
// Exported so the HTTP layer can exempt crisis requests from rate limiting
// before this service ever runs.
func ContainsCrisisLanguage(text string) bool {
	_, hit := matchCrisisKeyword(text)
	return hit
}

func matchCrisisKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// detectCrisis scans the latest user message for crisis keywords and
// returns the matched keyword.
func detectCrisis(history []ai.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != ai.RoleUser {
			continue
		}
		return matchCrisisKeyword(history[i].Content)
	}
	return "", false
}
