package core

import (
	"fmt"
	"strings"
	"time"
)

// MatchType selects which envelope fields a rule is tested against
type MatchType string

const (
	// MatchSender tests the sender address and display name
	MatchSender MatchType = "sender"
	// MatchSubject tests the subject line
	MatchSubject MatchType = "subject"
	// MatchContains tests sender, display name, subject and preview
	MatchContains MatchType = "contains"
)

// ParseMatchType converts user input into a MatchType
func ParseMatchType(s string) (MatchType, error) {
	switch MatchType(strings.ToLower(strings.TrimSpace(s))) {
	case MatchSender:
		return MatchSender, nil
	case MatchSubject:
		return MatchSubject, nil
	case MatchContains:
		return MatchContains, nil
	default:
		return "", fmt.Errorf("unknown match type %q (expected sender, subject or contains)", s)
	}
}

// Rule is a deterministic pattern-to-folder mapping
type Rule struct {
	Pattern      string    `json:"pattern" db:"pattern"`
	Folder       string    `json:"folder" db:"folder"`
	MatchType    MatchType `json:"match_type" db:"match_type"`
	CreatedOrder int64     `json:"created_order" db:"created_order"`
}

// Matches reports whether the rule applies to the envelope.
// Comparison is a case-insensitive substring test.
func (r Rule) Matches(env *MessageEnvelope) bool {
	pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
	if pattern == "" || env == nil {
		return false
	}

	var fields []string
	switch r.MatchType {
	case MatchSender:
		fields = []string{env.Sender, env.SenderDisplayName}
	case MatchSubject:
		fields = []string{env.Subject}
	case MatchContains:
		fields = []string{env.Sender, env.SenderDisplayName, env.Subject, env.PreviewText}
	default:
		return false
	}

	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), pattern) {
			return true
		}
	}
	return false
}

// MessageEnvelope is the read-only view of a message used for classification
type MessageEnvelope struct {
	ID                string
	Sender            string
	SenderDisplayName string
	Subject           string
	PreviewText       string
	CurrentBucket     string
}

// ResultSource identifies what produced a classification
type ResultSource string

const (
	SourceRule       ResultSource = "rule"
	SourceClassifier ResultSource = "classifier"
	SourceFallback   ResultSource = "fallback"
)

// ClassificationResult is the outcome of classifying one envelope
type ClassificationResult struct {
	Bucket     string
	Confidence float64
	Reason     string
	Source     ResultSource
	Degraded   bool
}

// PromptConstraints are handed to the classifier collaborator
type PromptConstraints struct {
	Categories   []string
	Instructions string
}

// MemoryEntry records one classification for recent-activity reports
type MemoryEntry struct {
	MessageID    string
	Subject      string
	Sender       string
	Bucket       string
	ClassifiedAt time.Time
}

// Movement describes a message that reconciliation moved
type Movement struct {
	Subject string
	From    string
	To      string
	Reason  string
}

// Failure describes a message reconciliation could not converge
type Failure struct {
	Subject string
	Reason  string
}

// ReconcileReport aggregates the result of a reconciliation batch
type ReconcileReport struct {
	Analyzed  int
	Moved     int
	Unchanged int
	Errors    int
	Movements []Movement
	Failures  []Failure
}

// DraftStatus is the lifecycle state of a draft session
type DraftStatus string

const (
	DraftPendingApproval DraftStatus = "pending_approval"
	DraftApproved        DraftStatus = "approved"
	DraftSent            DraftStatus = "sent"
	DraftCancelled       DraftStatus = "cancelled"
)

// Terminal reports whether no transition may leave the status
func (s DraftStatus) Terminal() bool {
	return s == DraftSent || s == DraftCancelled
}

// DraftSession is the ephemeral state of one outbound message
type DraftSession struct {
	ID                 string
	Recipient          string
	RecipientName      string
	Subject            string
	Body               string
	OriginatingContext string
	Tone               string
	Status             DraftStatus
	RevisionCount      int
	CreatedAt          time.Time
	SentAt             time.Time
}

// ComposeRequest carries everything needed to start a draft
type ComposeRequest struct {
	Recipient     string
	RecipientName string
	Intent        string
	Context       string
	Tone          string
}

// SendResult is returned after a successful transport send
type SendResult struct {
	Draft     DraftSession
	MessageID string
}

// Contact is an addressable person known to the contact directory
type Contact struct {
	Name    string
	Address string
}

// String renders the contact as "Name <address>"
func (c Contact) String() string {
	if c.Name == "" {
		return c.Address
	}
	return fmt.Sprintf("%s <%s>", c.Name, c.Address)
}

// Disambiguation is an outstanding recipient choice for one initiator
type Disambiguation struct {
	QueriedName        string
	Candidates         []Contact
	OriginatingRequest ComposeRequest
	Timestamp          time.Time
}

// Resolution is the outcome of a successful disambiguation selection
type Resolution struct {
	Recipient          string
	DisplayName        string
	OriginatingRequest ComposeRequest
}

// OutboundMessage is handed to the mail transport
type OutboundMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}
