package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadcraft/leadcraft-backend/internal/ai"
)

func fakeCompletionServer(t *testing.T, reply string, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func newTestCoach(client *ai.Client) *CoachService {
	return &CoachService{Client: client, MaxTokens: 100, Logger: zerolog.Nop()}
}

func TestCoachService_SocraticCrisisShortCircuits(t *testing.T) {
	// No client at all: a crisis hit must never need the AI dependency.
	svc := newTestCoach(nil)

	reply, err := svc.Socratic(context.Background(), "student-1", "brainstorm", []ai.Message{
		{Role: ai.RoleUser, Content: "sometimes I just want to KILL MYSELF"},
	}, nil, "")
	if err != nil {
		t.Fatalf("Socratic: %v", err)
	}
	if !reply.CrisisDetected {
		t.Fatal("expected crisis_detected true")
	}
	if reply.Message != crisisSafetyMessage {
		t.Fatalf("unexpected message %q", reply.Message)
	}
}

func TestCoachService_CrisisScansLatestUserTurnOnly(t *testing.T) {
	svc := newTestCoach(nil)

	// Old user turn had a keyword, latest does not: no hit, so the call
	// falls through to the unavailable client.
	_, err := svc.Socratic(context.Background(), "student-1", "brainstorm", []ai.Message{
		{Role: ai.RoleUser, Content: "I want to die"},
		{Role: ai.RoleAssistant, Content: "tell me more"},
		{Role: ai.RoleUser, Content: "never mind, let's plan the bake sale"},
	}, nil, "")
	if !errors.Is(err, ErrCoachUnavailable) {
		t.Fatalf("expected ErrCoachUnavailable, got %v", err)
	}
}

func TestCoachService_UnavailableWithoutKey(t *testing.T) {
	svc := newTestCoach(ai.NewClient("", "", "test-model", time.Second))

	if svc.Available() {
		t.Fatal("service should not report available without a key")
	}
	_, err := svc.Brainstorm(context.Background(), "brainstorm", nil, nil, "")
	if !errors.Is(err, ErrCoachUnavailable) {
		t.Fatalf("expected ErrCoachUnavailable, got %v", err)
	}
}

func TestCoachService_BrainstormRelaysReply(t *testing.T) {
	srv := fakeCompletionServer(t, "What outcome would make this feel like a win?", 0)
	defer srv.Close()

	svc := newTestCoach(ai.NewClient("test-key", srv.URL, "test-model", time.Second))

	reply, err := svc.Brainstorm(context.Background(), "goals", []ai.Message{
		{Role: ai.RoleUser, Content: "I want to start a recycling club"},
	}, []string{"communication"}, "new student this year")
	if err != nil {
		t.Fatalf("Brainstorm: %v", err)
	}
	if reply.CrisisDetected || reply.Complete {
		t.Fatalf("unexpected flags in %+v", reply)
	}
	if !strings.Contains(reply.Message, "win") {
		t.Fatalf("unexpected message %q", reply.Message)
	}
}

func TestCoachService_CompletionMarkerStripped(t *testing.T) {
	srv := fakeCompletionServer(t, "Sounds like you have your plan. [SESSION_COMPLETE]", 0)
	defer srv.Close()

	svc := newTestCoach(ai.NewClient("test-key", srv.URL, "test-model", time.Second))

	reply, err := svc.Brainstorm(context.Background(), "brainstorm", []ai.Message{
		{Role: ai.RoleUser, Content: "I think I'm done"},
	}, nil, "")
	if err != nil {
		t.Fatalf("Brainstorm: %v", err)
	}
	if !reply.Complete {
		t.Fatal("expected complete flag")
	}
	if strings.Contains(reply.Message, sessionCompleteMarker) {
		t.Fatalf("marker not stripped from %q", reply.Message)
	}
	if reply.Message != "Sounds like you have your plan." {
		t.Fatalf("unexpected message %q", reply.Message)
	}
}

func TestCoachService_TimeoutIsSoft(t *testing.T) {
	srv := fakeCompletionServer(t, "too late", 2*time.Second)
	defer srv.Close()

	svc := newTestCoach(ai.NewClient("test-key", srv.URL, "test-model", time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Brainstorm(ctx, "brainstorm", []ai.Message{
		{Role: ai.RoleUser, Content: "hello"},
	}, nil, "")
	if !errors.Is(err, ErrCoachTimeout) {
		t.Fatalf("expected ErrCoachTimeout, got %v", err)
	}
}

func TestContainsCrisisLanguage(t *testing.T) {
	cases := map[string]bool{
		"I want to KILL MYSELF":              true,
		"sometimes I feel like self-harm":    true,
		"my presentation is killing me":      false,
		"how do I end my speech gracefully?": false,
		"":                                   false,
	}
	for text, want := range cases {
		if got := ContainsCrisisLanguage(text); got != want {
			t.Fatalf("ContainsCrisisLanguage(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestParseSessionType_DefaultsUnknownTags(t *testing.T) {
	cases := map[string]SessionType{
		"brainstorm":   SessionBrainstorm,
		"Reflection":   SessionReflection,
		"reflect":      SessionReflection,
		"conflict":     SessionConflict,
		"goal_setting": SessionGoals,
		"goals":        SessionGoals,
		"":             SessionDefault,
		"pirate":       SessionDefault,
	}
	for tag, want := range cases {
		if got := ParseSessionType(tag); got != want {
			t.Fatalf("ParseSessionType(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestBuildSystemPrompt_Interpolation(t *testing.T) {
	p := buildSystemPrompt(SessionBrainstorm, []string{"empathy", "public speaking"}, "prepping for student council")
	if !strings.Contains(p, "empathy, public speaking") {
		t.Fatalf("skills not interpolated: %q", p)
	}
	if !strings.Contains(p, "prepping for student council") {
		t.Fatalf("context not interpolated: %q", p)
	}
	if !strings.Contains(p, sessionCompleteMarker) {
		t.Fatal("prompt must instruct the completion marker")
	}

	p = buildSystemPrompt(SessionDefault, nil, "")
	if !strings.Contains(p, "general leadership") {
		t.Fatalf("missing skill fallback: %q", p)
	}
	if strings.Contains(p, "{skills}") || strings.Contains(p, "{context}") {
		t.Fatalf("placeholders left behind: %q", p)
	}
}
