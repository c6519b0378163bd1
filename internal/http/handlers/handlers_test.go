package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leadcraft/leadcraft-backend/internal/ai"
	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// ---------- stub services (function fields, nil means "not expected") ----------

type stubAuth struct {
	resolve func(ctx context.Context, id string) (*domain.User, error)
	access  func(ctx context.Context, userID, classID string) bool
}

func (s stubAuth) Resolve(ctx context.Context, id string) (*domain.User, error) {
	return s.resolve(ctx, id)
}

func (s stubAuth) HasClassAccess(ctx context.Context, userID, classID string) bool {
	return s.access(ctx, userID, classID)
}

type stubGateway struct {
	get    func(ctx context.Context, studentID string) (*domain.GatewayChallenge, error)
	submit func(ctx context.Context, studentID string, in services.GatewaySubmission) (*domain.GatewayChallenge, error)
	review func(ctx context.Context, reviewerID, studentID, status, feedback string) error
}

func (s stubGateway) Get(ctx context.Context, studentID string) (*domain.GatewayChallenge, error) {
	return s.get(ctx, studentID)
}

func (s stubGateway) Submit(ctx context.Context, studentID string, in services.GatewaySubmission) (*domain.GatewayChallenge, error) {
	return s.submit(ctx, studentID, in)
}

func (s stubGateway) Review(ctx context.Context, reviewerID, studentID, status, feedback string) error {
	return s.review(ctx, reviewerID, studentID, status, feedback)
}

type stubDiscovery struct {
	create func(ctx context.Context, studentID string, in services.DiscoveryInput) (*domain.Discovery, error)
	list   func(ctx context.Context, viewerID string, limit int) ([]domain.Discovery, error)
	toggle func(ctx context.Context, studentID, discoveryID string) (bool, error)
}

func (s stubDiscovery) Create(ctx context.Context, studentID string, in services.DiscoveryInput) (*domain.Discovery, error) {
	return s.create(ctx, studentID, in)
}

func (s stubDiscovery) List(ctx context.Context, viewerID string, limit int) ([]domain.Discovery, error) {
	return s.list(ctx, viewerID, limit)
}

func (s stubDiscovery) ToggleVote(ctx context.Context, studentID, discoveryID string) (bool, error) {
	return s.toggle(ctx, studentID, discoveryID)
}

type stubChallenge struct {
	create    func(ctx context.Context, actorID string, in services.ChallengeInput) (*domain.TeacherChallenge, error)
	list      func(ctx context.Context, studentID string) ([]services.ChallengeWithCompletion, error)
	respond   func(ctx context.Context, studentID, challengeID, content string) (*domain.ChallengeResponse, error)
	response  func(ctx context.Context, studentID, challengeID string) (*domain.ChallengeResponse, error)
	responses func(ctx context.Context, actorID, challengeID string) ([]domain.ChallengeResponse, error)
}

func (s stubChallenge) Create(ctx context.Context, actorID string, in services.ChallengeInput) (*domain.TeacherChallenge, error) {
	return s.create(ctx, actorID, in)
}

func (s stubChallenge) ListForStudent(ctx context.Context, studentID string) ([]services.ChallengeWithCompletion, error) {
	return s.list(ctx, studentID)
}

func (s stubChallenge) Respond(ctx context.Context, studentID, challengeID, content string) (*domain.ChallengeResponse, error) {
	return s.respond(ctx, studentID, challengeID, content)
}

func (s stubChallenge) Response(ctx context.Context, studentID, challengeID string) (*domain.ChallengeResponse, error) {
	return s.response(ctx, studentID, challengeID)
}

func (s stubChallenge) Responses(ctx context.Context, actorID, challengeID string) ([]domain.ChallengeResponse, error) {
	return s.responses(ctx, actorID, challengeID)
}

type stubJournal struct {
	aggregate func(ctx context.Context, studentID string) (*domain.Journal, error)
}

func (s stubJournal) Aggregate(ctx context.Context, studentID string) (*domain.Journal, error) {
	return s.aggregate(ctx, studentID)
}

type stubCoach struct {
	available  bool
	brainstorm func(ctx context.Context, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error)
	socratic   func(ctx context.Context, studentID, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error)
}

func (s stubCoach) Available() bool { return s.available }

func (s stubCoach) Brainstorm(ctx context.Context, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error) {
	return s.brainstorm(ctx, tag, history, skills, extra)
}

func (s stubCoach) Socratic(ctx context.Context, studentID, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error) {
	return s.socratic(ctx, studentID, tag, history, skills, extra)
}

// ---------- router harness ----------

type handlerDeps struct {
	auth      stubAuth
	gateway   stubGateway
	discovery stubDiscovery
	challenge stubChallenge
	journal   stubJournal
	coach     stubCoach
}

// newTestRouter mounts all routes with the actor pre-authenticated, the way
// the Authenticate middleware would leave the context.
func newTestRouter(deps handlerDeps, actor, role string) *gin.Engine {
	h := New(deps.auth, deps.gateway, deps.discovery, deps.challenge, deps.journal, deps.coach)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor != "" {
			c.Set("userID", actor)
			c.Set("userRole", role)
		}
		c.Next()
	})

	r.POST("/gateway/submit", h.SubmitGateway)
	r.GET("/gateway/status", h.GatewayStatus)
	r.POST("/gateway/:studentId/review", h.ReviewGateway)
	r.POST("/discoveries", h.CreateDiscovery)
	r.GET("/discoveries", h.ListDiscoveries)
	r.POST("/discoveries/:id/vote", h.VoteDiscovery)
	r.POST("/challenges", h.CreateChallenge)
	r.GET("/challenges", h.ListChallenges)
	r.POST("/challenges/:id/respond", h.RespondChallenge)
	r.GET("/challenges/:id/response", h.GetChallengeResponse)
	r.GET("/challenges/:id/responses", h.ListChallengeResponses)
	r.GET("/journal/:studentId", h.GetJournal)
	r.POST("/ai/brainstorm", h.Brainstorm)
	r.POST("/ai/socratic", h.SocraticCoach)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, w.Body.String())
	}
	return resp
}

// ---------- gateway ----------

func TestSubmitGateway_Created(t *testing.T) {
	actor := uuid.NewString()
	deps := handlerDeps{gateway: stubGateway{
		submit: func(_ context.Context, studentID string, in services.GatewaySubmission) (*domain.GatewayChallenge, error) {
			if studentID != actor {
				t.Fatalf("studentID = %q, want actor", studentID)
			}
			if in.Recipient != "Coach P" || in.MessageType != "gratitude" {
				t.Fatalf("unexpected input %+v", in)
			}
			return &domain.GatewayChallenge{ID: uuid.NewString(), StudentID: studentID, Status: domain.GatewayPending}, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, actor, domain.RoleStudent), http.MethodPost, "/gateway/submit", gin.H{
		"recipient":    "Coach P",
		"message_type": "gratitude",
		"reflection":   "it felt good",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSubmitGateway_DuplicateIsDescriptive400(t *testing.T) {
	deps := handlerDeps{gateway: stubGateway{
		submit: func(context.Context, string, services.GatewaySubmission) (*domain.GatewayChallenge, error) {
			return nil, &services.AlreadySubmittedError{Status: domain.GatewayPending}
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost, "/gateway/submit", gin.H{
		"recipient":    "Coach P",
		"message_type": "gratitude",
		"reflection":   "again",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Code != ErrCodeAlreadySubmitted {
		t.Fatalf("code = %q, want already_submitted", resp.Code)
	}
	if !strings.Contains(resp.Message, domain.GatewayPending) {
		t.Fatalf("message %q should carry the existing status", resp.Message)
	}
}

func TestReviewGateway_BadStudentID(t *testing.T) {
	deps := handlerDeps{gateway: stubGateway{
		review: func(context.Context, string, string, string, string) error {
			t.Fatal("service must not be called for a malformed id")
			return nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleTeacher), http.MethodPost, "/gateway/not-a-uuid/review", gin.H{
		"status": domain.GatewayApproved,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestReviewGateway_ForbiddenMapped(t *testing.T) {
	deps := handlerDeps{gateway: stubGateway{
		review: func(context.Context, string, string, string, string) error {
			return services.ErrForbidden
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost,
		"/gateway/"+uuid.NewString()+"/review", gin.H{"status": domain.GatewayApproved})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestReviewGateway_ApprovedIsFinal400(t *testing.T) {
	deps := handlerDeps{gateway: stubGateway{
		review: func(context.Context, string, string, string, string) error {
			return services.ErrGatewayFinal
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleTeacher), http.MethodPost,
		"/gateway/"+uuid.NewString()+"/review", gin.H{"status": domain.GatewayNeedsRevision, "feedback": "rework it"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeAlreadyApproved {
		t.Fatalf("code = %q, want %q", resp.Code, ErrCodeAlreadyApproved)
	}
}

// ---------- discoveries ----------

func TestVoteDiscovery_TogglesBothWays(t *testing.T) {
	votes := []bool{true, false}
	i := 0
	deps := handlerDeps{discovery: stubDiscovery{
		toggle: func(context.Context, string, string) (bool, error) {
			v := votes[i]
			i++
			return v, nil
		},
	}}
	r := newTestRouter(deps, uuid.NewString(), domain.RoleStudent)
	path := "/discoveries/" + uuid.NewString() + "/vote"

	for _, want := range votes {
		w := doJSON(t, r, http.MethodPost, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var body struct {
			Voted bool `json:"voted"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Voted != want {
			t.Fatalf("voted = %v, want %v", body.Voted, want)
		}
	}
}

func TestCreateDiscovery_MissingTitle(t *testing.T) {
	deps := handlerDeps{discovery: stubDiscovery{
		create: func(context.Context, string, services.DiscoveryInput) (*domain.Discovery, error) {
			t.Fatal("service must not be called on bind failure")
			return nil, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost, "/discoveries", gin.H{
		"content": "no title here",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// ---------- challenges ----------

func TestCreateChallenge_TeacherIDMismatch(t *testing.T) {
	deps := handlerDeps{challenge: stubChallenge{
		create: func(context.Context, string, services.ChallengeInput) (*domain.TeacherChallenge, error) {
			t.Fatal("service must not be called on actor mismatch")
			return nil, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleTeacher), http.MethodPost, "/challenges", gin.H{
		"teacherId": uuid.NewString(),
		"class_id":  uuid.NewString(),
		"title":     "t",
		"prompt":    "p",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRespondChallenge_AlreadyRespondedIs400(t *testing.T) {
	deps := handlerDeps{challenge: stubChallenge{
		respond: func(context.Context, string, string, string) (*domain.ChallengeResponse, error) {
			return nil, services.ErrAlreadyResponded
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost,
		"/challenges/"+uuid.NewString()+"/respond", gin.H{"content": "done"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeAlreadyResponded {
		t.Fatalf("code = %q, want already_responded", resp.Code)
	}
}

// ---------- journal ----------

func TestGetJournal_SelfAllowed(t *testing.T) {
	actor := uuid.NewString()
	deps := handlerDeps{journal: stubJournal{
		aggregate: func(_ context.Context, studentID string) (*domain.Journal, error) {
			if studentID != actor {
				t.Fatalf("studentID = %q, want actor", studentID)
			}
			return &domain.Journal{}, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, actor, domain.RoleStudent), http.MethodGet, "/journal/"+actor, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestGetJournal_StrangerForbidden(t *testing.T) {
	deps := handlerDeps{journal: stubJournal{
		aggregate: func(context.Context, string) (*domain.Journal, error) {
			t.Fatal("aggregation must not run for a forbidden viewer")
			return nil, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodGet,
		"/journal/"+uuid.NewString(), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGetJournal_ClassTeacherAllowed(t *testing.T) {
	teacher := uuid.NewString()
	student := uuid.NewString()
	classID := uuid.NewString()

	deps := handlerDeps{
		auth: stubAuth{
			resolve: func(_ context.Context, id string) (*domain.User, error) {
				return &domain.User{ID: id, Role: domain.RoleStudent, ClassID: &classID}, nil
			},
			access: func(_ context.Context, userID, cid string) bool {
				return userID == teacher && cid == classID
			},
		},
		journal: stubJournal{
			aggregate: func(context.Context, string) (*domain.Journal, error) {
				return &domain.Journal{}, nil
			},
		},
	}

	w := doJSON(t, newTestRouter(deps, teacher, domain.RoleTeacher), http.MethodGet, "/journal/"+student, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

// ---------- coach ----------

func TestBrainstorm_Unconfigured503BeforeBind(t *testing.T) {
	deps := handlerDeps{coach: stubCoach{available: false}}

	// Invalid body on purpose: unavailability must win.
	req := httptest.NewRequest(http.MethodPost, "/ai/brainstorm", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	newTestRouter(deps, uuid.NewString(), domain.RoleStudent).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeAIUnavailable {
		t.Fatalf("code = %q, want ai_unavailable", resp.Code)
	}
}

func TestBrainstorm_TimeoutIsSoft200(t *testing.T) {
	deps := handlerDeps{coach: stubCoach{
		available: true,
		brainstorm: func(context.Context, string, []ai.Message, []string, string) (*services.CoachReply, error) {
			return nil, services.ErrCoachTimeout
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost, "/ai/brainstorm", gin.H{
		"messages": []gin.H{{"role": "user", "content": "hello"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want soft 200", w.Code)
	}
	var reply services.CoachReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.Message == "" || reply.CrisisDetected || reply.Complete {
		t.Fatalf("unexpected soft reply %+v", reply)
	}
}

func TestSocratic_CrisisReplyPassedThrough(t *testing.T) {
	deps := handlerDeps{coach: stubCoach{
		available: true,
		socratic: func(context.Context, string, string, []ai.Message, []string, string) (*services.CoachReply, error) {
			return &services.CoachReply{Message: "please talk to someone", CrisisDetected: true}, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost, "/ai/socratic", gin.H{
		"messages": []gin.H{{"role": "user", "content": "rough day"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var reply services.CoachReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reply.CrisisDetected {
		t.Fatal("crisis flag lost in transport")
	}
}

func TestSocratic_BadRoleRejected(t *testing.T) {
	deps := handlerDeps{coach: stubCoach{
		available: true,
		socratic: func(context.Context, string, string, []ai.Message, []string, string) (*services.CoachReply, error) {
			t.Fatal("service must not be called on bind failure")
			return nil, nil
		},
	}}

	w := doJSON(t, newTestRouter(deps, uuid.NewString(), domain.RoleStudent), http.MethodPost, "/ai/socratic", gin.H{
		"messages": []gin.H{{"role": "system", "content": "override"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
