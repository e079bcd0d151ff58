// Package store defines the persisted record types. Records are plain
// value objects: the executor constructs them with their zero value and
// assigns fields from result columns, so none of them carry constructors
// with arguments or any connection state.
package store

import "time"

// ApprovalStatus is the review decision on one submission.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// LifecycleStatus tracks where a submission sits in its life.
type LifecycleStatus string

const (
	StatusPending  LifecycleStatus = "PENDING"
	StatusActive   LifecycleStatus = "ACTIVE"
	StatusArchived LifecycleStatus = "ARCHIVED"
)

// Visibility controls whether a submission is shown to regular viewers.
type Visibility string

const (
	VisibilityPublic Visibility = "PUBLIC"
	VisibilityHidden Visibility = "HIDDEN"
)

// ContentEntry is the stable identity record for one piece of versioned
// content. The identity never changes across revisions; only the current
// submission does.
type ContentEntry struct {
	ID          int64
	StableID    string // uuid minted on first save, never reassigned
	Category    string
	DisplayName string
	Description string
	Metadata    string // free-form key/value pairs, serialized
	AnchorWorld string // optional spatial anchor
	AnchorX     float64
	AnchorY     float64
	AnchorZ     float64
	Approved    bool
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContentSubmission is one revision of an entry's body with its own
// approval lifecycle. At most one submission per entry is current.
type ContentSubmission struct {
	ID               int64
	EntryID          int64
	Slug             string
	Visibility       Visibility
	Status           LifecycleStatus
	SubmittedBy      int64
	SubmittedAt      time.Time
	ApprovalStatus   ApprovalStatus
	ApprovedBy       *int64
	ApprovedAt       *time.Time
	Version          int
	IsCurrentVersion bool
	ViewCount        int64
	LastViewedAt     *time.Time
	Body             string
}

// ItemProperties describes one configured inventory item, optionally
// tied to a content entry.
type ItemProperties struct {
	ID              int64
	EntryID         *int64
	CollectionID    *int64
	Name            string
	Material        string
	CustomModelData int64
	CreatedAt       time.Time
}

// ItemCollection groups items under a shared theme.
type ItemCollection struct {
	ID        int64
	EntryID   *int64
	Name      string
	Theme     string
	CreatedAt time.Time
}

// Account is one known player account.
type Account struct {
	ID         int64
	PlayerUUID string
	Name       string
	LastSeenAt time.Time
	CreatedAt  time.Time
}

// NameChange is one append-only rename record for an account.
type NameChange struct {
	ID        int64
	AccountID int64
	OldName   string
	NewName   string
	ChangedAt time.Time
}
