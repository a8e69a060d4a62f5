// ABOUTME: Record types, sentinel errors, and store interfaces for taskdeck persistence
// ABOUTME: Defines Account, Task, Project, Session structs and the collection contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert would violate the unique
// index on accounts.email.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrAlreadyExists is returned when inserting a record whose id is already
// present in the collection.
var ErrAlreadyExists = errors.New("record already exists")

// Task status constants. Status is a closed set; the schema rejects
// anything else.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task priority constants.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Subscription tiers and statuses for accounts.
const (
	TierFree = "free"
	TierPro  = "pro"

	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// NotificationPrefs controls which reminders an account receives.
type NotificationPrefs struct {
	Email   bool `json:"email"`
	DueSoon bool `json:"dueSoon"`
}

// Preferences is the per-account preference bag. Stored as a JSON column,
// so adding fields does not require a schema change.
type Preferences struct {
	Theme           string            `json:"theme,omitempty"`
	DefaultPriority string            `json:"defaultPriority,omitempty"`
	Locale          string            `json:"locale,omitempty"`
	Timezone        string            `json:"timezone,omitempty"`
	Notifications   NotificationPrefs `json:"notifications"`
}

// Account represents a registered user. PasswordHash is a bcrypt hash and
// is empty for guest accounts, which never reach persistent storage.
type Account struct {
	ID                 string      `json:"id"`
	Email              string      `json:"email"`
	DisplayName        string      `json:"displayName"`
	AvatarURL          string      `json:"avatarUrl,omitempty"`
	PasswordHash       string      `json:"-"`
	Preferences        Preferences `json:"preferences"`
	SubscriptionTier   string      `json:"subscriptionTier"`
	SubscriptionStatus string      `json:"subscriptionStatus"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// AccountPatch holds the updatable fields of an account. Nil pointers are
// left untouched by UpdateAccount.
type AccountPatch struct {
	DisplayName        *string
	AvatarURL          *string
	PasswordHash       *string
	Preferences        *Preferences
	SubscriptionTier   *string
	SubscriptionStatus *string
}

// Session represents an authenticated session. A session is valid iff
// now < ExpiresAt; the store itself does not evaluate validity.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Task represents a single task owned by an account.
type Task struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Category        string     `json:"category,omitempty"`
	EstimateMinutes int        `json:"estimateMinutes,omitempty"`
	ActualMinutes   int        `json:"actualMinutes,omitempty"`
	Attachments     []string   `json:"attachments,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TaskPatch holds the updatable fields of a task. Nil pointers are left
// untouched. Clear flags remove optional values and win over the
// corresponding pointer if both are set.
//
// The store does not couple CompletedAt to Status. Callers moving a task
// across the done boundary are responsible for setting or clearing
// CompletedAt alongside it.
type TaskPatch struct {
	Title           *string
	Description     *string
	Status          *string
	Priority        *string
	DueDate         *time.Time
	ClearDueDate    bool
	CompletedAt     *time.Time
	ClearCompleted  bool
	Tags            *[]string
	Category        *string
	EstimateMinutes *int
	ActualMinutes   *int
	Attachments     *[]string
}

// TaskFilter narrows ListTasksByOwner results. Empty fields match
// everything.
type TaskFilter struct {
	Status   string
	Priority string
}

// Project represents a grouping of tasks owned by an account.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectPatch holds the updatable fields of a project.
type ProjectPatch struct {
	Name        *string
	Description *string
	Color       *string
	Archived    *bool
}

// AccountStore defines persistence for the accounts collection.
// GetAccountByEmail is the unique-index lookup; it returns at most one
// record.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error)
}

// TaskStore defines persistence for the tasks collection. The collection
// carries secondary indexes on owner_id, status, and due_date; the List
// methods are the corresponding index lookups. Results are in unspecified
// order - callers needing order must sort.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasksByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*Task, error)
	ListTasksByStatus(ctx context.Context, status string) ([]*Task, error)
	ListTasksDueBefore(ctx context.Context, cutoff time.Time) ([]*Task, error)
}

// ProjectStore defines persistence for the projects collection.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error)
}

// SessionStore defines persistence for the sessions collection. GetSession
// returns expired sessions unchanged; expiry is the identity service's
// concern and is evaluated lazily on read. DeleteExpiredSessions exists for
// explicit operator-driven cleanup only - nothing calls it on a timer.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]*Session, error)
	DeleteExpiredSessions(ctx context.Context) error
}

// Store is the full storage engine contract. SQLiteStore implements all
// collection interfaces in a single struct.
type Store interface {
	AccountStore
	TaskStore
	ProjectStore
	SessionStore

	// Close releases any resources held by the store
	Close() error
}
