// Package domain holds the value types shared across the curator:
// messages, dispositions, categories, selection results and moderation
// sessions. The package is dependency-free on purpose.
package domain

import (
	"sort"
	"strconv"
	"time"
)

// Disposition is the terminal (or pending) processing outcome of a message.
type Disposition string

const (
	DispositionUnprocessed        Disposition = "unprocessed"
	DispositionPublished          Disposition = "published"
	DispositionRejectedDuplicate  Disposition = "rejected_duplicate"
	DispositionRejectedKeywords   Disposition = "rejected_keywords"
	DispositionRejectedLLM        Disposition = "rejected_llm"
	DispositionRejectedModeration Disposition = "rejected_moderation"

	// DispositionErrored marks a message whose processing failed for a
	// transient reason. Errored messages are re-eligible on the next run.
	DispositionErrored Disposition = "errored"
)

// Terminal reports whether the disposition is final. Errored is not
// terminal: it re-enters the candidate set on the next run.
func (d Disposition) Terminal() bool {
	switch d {
	case DispositionPublished,
		DispositionRejectedDuplicate,
		DispositionRejectedKeywords,
		DispositionRejectedLLM,
		DispositionRejectedModeration:
		return true
	default:
		return false
	}
}

// Valid reports whether the value is a known disposition.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionUnprocessed, DispositionErrored:
		return true
	default:
		return d.Terminal()
	}
}

// Message is a raw channel post as stored by the listener.
type Message struct {
	ID              string
	ChannelID       string
	ChannelUsername string
	ChannelTitle    string
	TGMessageID     int64
	Text            string
	ReceivedAt      time.Time
	Disposition     Disposition
}

// SourceLink returns the public t.me link for the message, or empty when
// the source channel has no username.
func (m *Message) SourceLink() string {
	if m.ChannelUsername == "" {
		return ""
	}

	return "https://t.me/" + m.ChannelUsername + "/" + strconv.FormatInt(m.TGMessageID, 10)
}

// SelectedItem is one candidate picked by the selection model.
type SelectedItem struct {
	MessageID   string
	Title       string
	Description string
	Score       int
	Reason      string
	SourceLink  string
	ReceivedAt  time.Time
}

// SortSelected orders items by score descending, arrival time ascending on
// ties. The order is the proposal order shown to the moderator and the
// publication order.
func SortSelected(items []SelectedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}

		return items[i].ReceivedAt.Before(items[j].ReceivedAt)
	})
}

// PublishedItem is a digest entry persisted after publication, together
// with the embedding used for future duplicate checks.
type PublishedItem struct {
	ID          string
	MessageID   string
	Category    string
	Title       string
	Description string
	Score       int
	SourceLink  string
	Embedding   []float32
	PublishedAt time.Time
}

// Category is one curation stream: a keyword filter plus a publication
// target. Categories are loaded once per run and never mutated mid-run.
type Category struct {
	Name            string
	DisplayName     string
	TargetChatID    int64
	TopN            int
	Keywords        []string
	ExcludeKeywords []string
	Enabled         bool
}

// SessionStatus is the state of a moderation session.
type SessionStatus string

const (
	SessionPending        SessionStatus = "pending"
	SessionApprovedAll    SessionStatus = "approved_all"
	SessionApprovedSubset SessionStatus = "approved_subset"
	SessionRejectedAll    SessionStatus = "rejected_all"
	SessionTimedOut       SessionStatus = "timed_out"
)

// Resolved reports whether the session reached a final state. Resolved
// sessions never transition again.
func (s SessionStatus) Resolved() bool {
	return s != SessionPending && s != ""
}

// ModerationSession tracks one review round for a category proposal.
// Sessions live in memory only; a restart abandons pending sessions.
type ModerationSession struct {
	ID                string
	Category          string
	Items             []SelectedItem
	Status            SessionStatus
	ProposalMessageID int
	OpenedAt          time.Time
	Deadline          time.Time
	ResolvedAt        time.Time
}
