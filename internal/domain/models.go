// Package domain defines the persistence models for the leadership-education
// platform: users and classes, the one-time gateway challenge, student
// discoveries and their votes, teacher challenges and responses, the gamified
// world-resource counters, and the activity sources the journal aggregates.
// These types are mapped with GORM and form the core data layer.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Role values for User.Role.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// GatewayChallenge statuses.
const (
	GatewayPending       = "pending"
	GatewayApproved      = "approved"
	GatewayNeedsRevision = "needs_revision"
)

// Discovery moderation statuses.
const (
	DiscoveryPending  = "pending"
	DiscoveryApproved = "approved"
	DiscoveryRejected = "rejected"
)

// User is a platform account resolved by the auth gate. The core never
// creates users; they are provisioned by the surrounding platform and are
// immutable for the duration of a request (except the gateway-complete flag
// and tier, which flip exactly once on approval).
type User struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	Role            string    `json:"role"             gorm:"type:varchar(16);not null;check:role IN ('student','teacher')"`
	ClassID         *string   `json:"class_id"         gorm:"type:char(36);index"`
	DisplayName     string    `json:"display_name"     gorm:"type:varchar(120);not null;default:''"`
	GatewayComplete bool      `json:"gateway_complete" gorm:"not null;default:false"`
	Tier            int       `json:"tier"             gorm:"not null;default:0"`
	BatteryLevel    int       `json:"battery_level"    gorm:"not null;default:100"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Class groups students under one teacher. TeacherID is the identity checked
// when a teacher-scoped route mutates class resources.
type Class struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	TeacherID string    `json:"teacher_id" gorm:"type:char(36);not null;index"`
	Name      string    `json:"name"       gorm:"type:varchar(120);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Class.
func (Class) TableName() string { return "classes" }

// GatewayChallenge is the one-time onboarding task. The unique index on
// StudentID is the authority for the "exactly one per student" invariant;
// the pre-read in the service only exists to return a friendly response.
type GatewayChallenge struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	StudentID      string         `json:"student_id"      gorm:"type:char(36);not null;uniqueIndex:ux_gateway_student"`
	Recipient      string         `json:"recipient"       gorm:"type:varchar(200);not null"`
	MessageType    string         `json:"message_type"    gorm:"type:varchar(40);not null"`
	MessagePreview string         `json:"message_preview" gorm:"type:text;not null"`
	ProofRef       string         `json:"proof_ref"       gorm:"type:varchar(500);not null;default:''"`
	Reflection     string         `json:"reflection"      gorm:"type:text;not null"`
	Status         string         `json:"status"          gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','approved','needs_revision')"`
	ReviewerID     *string        `json:"reviewer_id"     gorm:"type:char(36)"`
	Feedback       string         `json:"feedback"        gorm:"type:text;not null;default:''"`
	CompletedAt    *time.Time     `json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for GatewayChallenge.
func (GatewayChallenge) TableName() string { return "gateway_challenges" }

// Discovery is a student-authored post that goes through moderation before
// classmates can see it. HelpfulCount is maintained with atomic updates,
// never read-modify-write.
type Discovery struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	StudentID    string         `json:"student_id"    gorm:"type:char(36);not null;index"`
	ClassID      string         `json:"class_id"      gorm:"type:char(36);not null;index"`
	Title        string         `json:"title"         gorm:"type:varchar(200);not null"`
	Content      string         `json:"content"       gorm:"type:text;not null"`
	SkillTag     string         `json:"skill_tag"     gorm:"type:varchar(60);not null;default:''"`
	Status       string         `json:"status"        gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','approved','rejected')"`
	HelpfulCount int            `json:"helpful_count" gorm:"not null;default:0"`
	CommentCount int            `json:"comment_count" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Discovery.
func (Discovery) TableName() string { return "discoveries" }

// DiscoveryVote is the vote edge for the helpful toggle. At most one edge
// may exist per (discovery, student); the unique index arbitrates races
// between concurrent toggles.
type DiscoveryVote struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	DiscoveryID string    `json:"discovery_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_vote_discovery_student"`
	StudentID   string    `json:"student_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_vote_discovery_student"`
	CreatedAt   time.Time `json:"created_at"`

	Discovery Discovery `json:"-" gorm:"foreignKey:DiscoveryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DiscoveryVote.
func (DiscoveryVote) TableName() string { return "discovery_votes" }

// TeacherChallenge is a class-wide task posted by the class's teacher.
// RewardType/RewardAmount drive the reward pipeline when a student responds;
// ResponseCount is a denormalized counter bumped by the dispatcher.
type TeacherChallenge struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	ClassID       string         `json:"class_id"       gorm:"type:char(36);not null;index"`
	TeacherID     string         `json:"teacher_id"     gorm:"type:char(36);not null;index"`
	Title         string         `json:"title"          gorm:"type:varchar(200);not null"`
	Prompt        string         `json:"prompt"         gorm:"type:text;not null"`
	SkillTag      string         `json:"skill_tag"      gorm:"type:varchar(60);not null;default:''"`
	RewardType    string         `json:"reward_type"    gorm:"type:varchar(20);not null;default:'flower'"`
	RewardAmount  int            `json:"reward_amount"  gorm:"not null;default:1"`
	Active        bool           `json:"active"         gorm:"not null;default:true"`
	ResponseCount int            `json:"response_count" gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for TeacherChallenge.
func (TeacherChallenge) TableName() string { return "teacher_challenges" }

// ChallengeResponse is a student's answer to a teacher challenge. The unique
// index on (challenge_id, student_id) is the authority for exactly-once
// submission; a violation surfaces as the expected "already responded"
// outcome, not an internal error.
type ChallengeResponse struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ChallengeID string    `json:"challenge_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_response_challenge_student"`
	StudentID   string    `json:"student_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_response_challenge_student"`
	Content     string    `json:"content"      gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`

	Challenge TeacherChallenge `json:"-" gorm:"foreignKey:ChallengeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChallengeResponse.
func (ChallengeResponse) TableName() string { return "challenge_responses" }

// World resource kinds awarded for completed activities.
const (
	ResourceFlower  = "flower"
	ResourceTree    = "tree"
	ResourceTower   = "tower"
	ResourceBridge  = "bridge"
	ResourceCrystal = "crystal"
)

// WorldResource holds a student's gamified currency counters. One row per
// student, seeded idempotently on gateway approval; counters only move via
// atomic updates and never drop below zero.
type WorldResource struct {
	StudentID string    `json:"student_id" gorm:"type:char(36);primaryKey"`
	Flowers   int       `json:"flowers"    gorm:"not null;default:0"`
	Trees     int       `json:"trees"      gorm:"not null;default:0"`
	Towers    int       `json:"towers"     gorm:"not null;default:0"`
	Bridges   int       `json:"bridges"    gorm:"not null;default:0"`
	Crystals  int       `json:"crystals"   gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for WorldResource.
func (WorldResource) TableName() string { return "world_resources" }

// FeedEntry is a human-readable class activity line appended by the
// side-effect dispatcher after a primary mutation commits.
type FeedEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StudentID string    `json:"student_id" gorm:"type:char(36);not null;index"`
	ClassID   string    `json:"class_id"   gorm:"type:char(36);not null;index"`
	Kind      string    `json:"kind"       gorm:"type:varchar(40);not null"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for FeedEntry.
func (FeedEntry) TableName() string { return "feed_entries" }

// Secret records a "discovered secret" unlock. Re-granting the same code is
// absorbed by the unique index.
type Secret struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StudentID string    `json:"student_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_secret_student_code"`
	Code      string    `json:"code"       gorm:"type:varchar(60);not null;uniqueIndex:ux_secret_student_code"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Secret.
func (Secret) TableName() string { return "secrets" }

// DoNowCompletion records a finished daily do-now exercise.
type DoNowCompletion struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StudentID string    `json:"student_id" gorm:"type:char(36);not null;index"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	SkillTag  string    `json:"skill_tag"  gorm:"type:varchar(60);not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for DoNowCompletion.
func (DoNowCompletion) TableName() string { return "do_now_completions" }

// ScenarioCompletion records a finished leadership scenario.
type ScenarioCompletion struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StudentID string    `json:"student_id" gorm:"type:char(36);not null;index"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	SkillTag  string    `json:"skill_tag"  gorm:"type:varchar(60);not null;default:''"`
	Outcome   string    `json:"outcome"    gorm:"type:varchar(200);not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for ScenarioCompletion.
func (ScenarioCompletion) TableName() string { return "scenario_completions" }

// ChallengeSubmission records a finished system challenge (the weekly quest
// line, distinct from teacher-posted challenges).
type ChallengeSubmission struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StudentID string    `json:"student_id" gorm:"type:char(36);not null;index"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	SkillTag  string    `json:"skill_tag"  gorm:"type:varchar(60);not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for ChallengeSubmission.
func (ChallengeSubmission) TableName() string { return "challenge_submissions" }

// HelpEvent records one student helping another. The same row feeds two
// journal sources: "help given" for the helper, "help received" for the
// recipient.
type HelpEvent struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	HelperID    string    `json:"helper_id"    gorm:"type:char(36);not null;index"`
	RecipientID string    `json:"recipient_id" gorm:"type:char(36);not null;index"`
	Description string    `json:"description"  gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for HelpEvent.
func (HelpEvent) TableName() string { return "help_events" }

// Ripple is a chain of inspired follow-on actions. ChainPosition 1 denotes
// the originating action.
type Ripple struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	StudentID     string    `json:"student_id"     gorm:"type:char(36);not null;index"`
	Description   string    `json:"description"    gorm:"type:text;not null"`
	ChainPosition int       `json:"chain_position" gorm:"not null;default:1"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for Ripple.
func (Ripple) TableName() string { return "ripples" }
