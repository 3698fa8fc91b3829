package stylist

import (
	"slices"
	"sync"
	"time"

	"closetapi/models"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	ID        int64     `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session owns one conversation: its transcript, the last proposed outfit and
// the closet snapshot taken when it started. Only the orchestrator mutates it.
type Session struct {
	ID      string
	OwnerID uint

	mu         sync.Mutex
	closet     []models.ClosetItem
	messages   []Message
	lastOutfit []uint
	nextID     int64
	inFlight   bool
	closed     bool
	activeAt   time.Time
	now        func() time.Time
}

func NewSession(id string, ownerID uint, closet []models.ClosetItem) *Session {
	return newSession(id, ownerID, closet, time.Now)
}

func newSession(id string, ownerID uint, closet []models.ClosetItem, now func() time.Time) *Session {
	s := &Session{
		ID:      id,
		OwnerID: ownerID,
		closet:  slices.Clone(closet),
		now:     now,
	}
	if s.closet == nil {
		s.closet = []models.ClosetItem{}
	}
	s.activeAt = now()
	s.appendLocked(SenderAssistant, GreetingMessage)
	return s
}

type State struct {
	SessionID  string              `json:"session_id"`
	Messages   []Message           `json:"messages"`
	LastOutfit []uint              `json:"last_outfit"`
	Preview    []models.ClosetItem `json:"preview"`
	Pending    bool                `json:"pending"`
}

// State is a copy; callers can hold on to it while the session moves on.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	outfit := slices.Clone(s.lastOutfit)
	if outfit == nil {
		outfit = []uint{}
	}
	return State{
		SessionID:  s.ID,
		Messages:   slices.Clone(s.messages),
		LastOutfit: outfit,
		Preview:    PreviewOutfit(s.lastOutfit, s.closet),
		Pending:    s.inFlight,
	}
}

func (s *Session) Closet() []models.ClosetItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.closet)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) appendLocked(sender Sender, text string) Message {
	s.nextID++
	msg := Message{ID: s.nextID, Sender: sender, Text: text, CreatedAt: s.now()}
	s.messages = append(s.messages, msg)
	s.activeAt = msg.CreatedAt
	return msg
}

// turn is what one submission needs from the session, copied out under the lock.
type turn struct {
	history    []Message
	closet     []models.ClosetItem
	lastOutfit []uint
	utterance  string
}

func (s *Session) begin(utterance string) (turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return turn{}, ErrSessionClosed
	}
	if s.inFlight {
		return turn{}, ErrTurnInProgress
	}

	t := turn{
		history:    slices.Clone(s.messages),
		closet:     s.closet,
		lastOutfit: slices.Clone(s.lastOutfit),
		utterance:  utterance,
	}
	s.appendLocked(SenderUser, utterance)
	s.inFlight = true
	return t, nil
}

func (s *Session) finish(text string, outfit []uint, replaceOutfit bool) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if s.closed {
		return Message{}, ErrSessionClosed
	}
	if replaceOutfit {
		s.lastOutfit = slices.Clone(outfit)
	}
	return s.appendLocked(SenderAssistant, text), nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeAt, s.inFlight
}
