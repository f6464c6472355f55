// Package memory keeps users, chats and messages in process memory. It backs tests and
// local runs started with a memory:// store URI.
package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]*models.User
	chats    map[primitive.ObjectID]*models.Chat
	messages map[primitive.ObjectID][]*models.Message // chatID -> msgs in insertion order
}

func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*models.User),
		chats:    make(map[primitive.ObjectID]*models.Chat),
		messages: make(map[primitive.ObjectID][]*models.Message),
	}
}

// Repositories exposes s through the same grouping the Mongo store uses.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Users:    userRepo{s},
		Chats:    chatRepo{s},
		Messages: messageRepo{s},
	}
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Friends = cloneIDs(u.Friends)
	c.FriendRequests = cloneIDs(u.FriendRequests)
	c.SentFriendRequests = cloneIDs(u.SentFriendRequests)
	return &c
}

func cloneMessage(m *models.Message) *models.Message {
	if m == nil {
		return nil
	}
	c := *m
	c.ReadBy = cloneIDs(m.ReadBy)
	if m.Duration != nil {
		d := *m.Duration
		c.Duration = &d
	}
	return &c
}

func cloneChat(ch *models.Chat) *models.Chat {
	c := *ch
	c.Participants = cloneIDs(ch.Participants)
	c.LastMessage = cloneMessage(ch.LastMessage)
	return &c
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	for i, x := range ids {
		if x == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	if u.FriendRequests == nil {
		u.FriendRequests = []primitive.ObjectID{}
	}
	if u.SentFriendRequests == nil {
		u.SentFriendRequests = []primitive.ObjectID{}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.User{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r userRepo) Search(_ context.Context, term string, exclude primitive.ObjectID, limit int64) ([]*models.User, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.User{}
	for id, u := range r.s.users {
		if id == exclude {
			continue
		}
		if re.MatchString(u.Email) || re.MatchString(u.DisplayName) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r userRepo) Update(_ context.Context, id primitive.ObjectID, upd repository.UserUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r userRepo) AddFriendRequest(_ context.Context, from, to primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	receiver, ok := r.s.users[to]
	if !ok {
		return repository.ErrNotFound
	}
	receiver.FriendRequests = addID(receiver.FriendRequests, from)
	if sender, ok := r.s.users[from]; ok {
		sender.SentFriendRequests = addID(sender.SentFriendRequests, to)
	}
	return nil
}

func (r userRepo) RemoveFriendRequest(_ context.Context, from, to primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	receiver, ok := r.s.users[to]
	if !ok {
		return false, nil
	}
	var removed bool
	receiver.FriendRequests, removed = removeID(receiver.FriendRequests, from)
	if sender, ok := r.s.users[from]; ok {
		sender.SentFriendRequests, _ = removeID(sender.SentFriendRequests, to)
	}
	return removed, nil
}

func (r userRepo) AddFriends(_ context.Context, a, b primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ua, ok := r.s.users[a]
	if !ok {
		return repository.ErrNotFound
	}
	ub, ok := r.s.users[b]
	if !ok {
		return repository.ErrNotFound
	}
	ua.Friends = addID(ua.Friends, b)
	ub.Friends = addID(ub.Friends, a)
	return nil
}

type chatRepo struct{ s *Store }

func (r chatRepo) Create(_ context.Context, c *models.Chat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if len(c.Participants) == 2 {
		c.PairKey = models.PairKey(c.Participants[0], c.Participants[1])
		for _, existing := range r.s.chats {
			if existing.PairKey == c.PairKey {
				return repository.ErrDuplicate
			}
		}
	}
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.chats[c.ID] = cloneChat(c)
	return nil
}

func (r chatRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneChat(c), nil
}

func (r chatRepo) FindByPair(_ context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	key := models.PairKey(a, b)
	for _, c := range r.s.chats {
		if c.PairKey == key {
			return cloneChat(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r chatRepo) ListForUser(_ context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Chat{}
	for _, c := range r.s.chats {
		if c.HasParticipant(userID) {
			out = append(out, cloneChat(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r chatRepo) SetLastMessage(_ context.Context, chatID primitive.ObjectID, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.chats[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.LastMessage = cloneMessage(m)
	c.UpdatedAt = m.CreatedAt
	return nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	if m.ReadBy == nil {
		m.ReadBy = []primitive.ObjectID{}
	}
	if m.Status == "" {
		m.Status = models.StatusSent
	}
	r.s.messages[m.ChatID] = append(r.s.messages[m.ChatID], cloneMessage(m))
	return nil
}

func (r messageRepo) ListByChat(_ context.Context, chatID primitive.ObjectID, q repository.MessageQuery) ([]*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var msgs []*models.Message
	for _, m := range r.s.messages[chatID] {
		if !q.Before.IsZero() && !m.CreatedAt.Before(q.Before) {
			continue
		}
		msgs = append(msgs, m)
	}
	if q.Limit > 0 && int64(len(msgs)) > q.Limit {
		msgs = msgs[int64(len(msgs))-q.Limit:]
	}
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (r messageRepo) MarkRead(_ context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var wanted map[primitive.ObjectID]bool
	if len(ids) > 0 {
		wanted = make(map[primitive.ObjectID]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
	}

	var n int64
	now := time.Now().UTC()
	for _, m := range r.s.messages[chatID] {
		if m.SenderID == reader || m.IsReadBy(reader) {
			continue
		}
		if wanted != nil && !wanted[m.ID] {
			continue
		}
		m.ReadBy = append(m.ReadBy, reader)
		m.Read = true
		m.Status = models.StatusRead
		m.UpdatedAt = now
		n++
	}
	return n, nil
}
