package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/events"
	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/repository/memory"
	"github.com/fathima-sithara/chat-backend/internal/storage"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type staticTokens struct{}

func (staticTokens) Generate(userID string) (string, error) { return "token-" + userID, nil }

type countingMetrics struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *countingMetrics) MessageCreated(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]int{}
	}
	c.n[t]++
}

type fixture struct {
	store   *repository.Store
	events  *events.Recorder
	metrics *countingMetrics
	auth    *AuthService
	users   *UserService
	friends *FriendService
	chats   *ChatService
}

func testUploads() config.UploadsConf {
	return config.UploadsConf{MaxFileMB: 1, MaxPhotoMB: 1, ThumbnailWidth: 32, PhotoSize: 16}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	f := &fixture{
		store:   memory.NewStore().Repositories(),
		events:  &events.Recorder{},
		metrics: &countingMetrics{},
	}
	log := zap.NewNop()
	f.auth = NewAuthService(f.store.Users, staticTokens{}, f.events, log)
	f.users = NewUserService(f.store.Users, files, testUploads(), log)
	f.friends = NewFriendService(f.store.Users, f.events, log)
	f.chats = NewChatService(ChatDeps{
		Store: f.store, Files: files, Uploads: testUploads(),
		Publisher: f.events, Counter: f.metrics, Logger: log,
	})
	return f
}

func (f *fixture) register(t *testing.T, email, name string) *models.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Password: "secret1", DisplayName: name})
	require.NoError(t, err)
	id, err := primitive.ObjectIDFromHex(res.User.ID)
	require.NoError(t, err)
	return f.reload(t, id)
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := f.store.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.auth.Register(ctx, RegisterInput{Email: " Ann@Example.com ", Password: "secret1", DisplayName: " <b>Ann</b> "})
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", res.User.Email)
	require.Equal(t, "Ann", res.User.DisplayName)
	require.Equal(t, "token-"+res.User.ID, res.Token)
	require.Equal(t, []string{events.UserRegistered}, f.events.Types())

	_, err = f.auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "another1", DisplayName: "Ann 2"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "secret1", DisplayName: "<i></i>"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	// 40 two-byte runes pass the character limit but not bcrypt's byte limit
	_, err = f.auth.Register(ctx, RegisterInput{Email: "cat@example.com", Password: strings.Repeat("é", 40), DisplayName: "Cat"})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "password must be at most 72 bytes long", ve.Message)

	got, err := f.auth.Login(ctx, LoginInput{Email: "ANN@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, res.User.ID, got.User.ID)

	_, err = f.auth.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong!!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStoredPasswordIsHashed(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ann@example.com", "Ann")
	require.NotEqual(t, "secret1", u.PasswordHash)
	require.NotEmpty(t, u.PasswordHash)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	f.register(t, "bob@example.com", "Bobby")
	f.register(t, "carl@test.org", "Carl")

	_, err := f.users.Search(ctx, ann.ID, "  ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "Search term is required", ve.Message)

	got, err := f.users.Search(ctx, ann.ID, "EXAMPLE")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Bobby", got[0].DisplayName)

	got, err = f.users.Search(ctx, ann.ID, ".*")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")

	tests := []struct {
		name    string
		updates map[string]interface{}
		wantErr string
	}{
		{"email not allowed", map[string]interface{}{"email": "x@y.z"}, "Invalid updates"},
		{"mixed keys", map[string]interface{}{"displayName": "A", "photoURL": "x"}, "Invalid updates"},
		{"wrong type", map[string]interface{}{"displayName": 5}, "displayName must be a string"},
		{"blank", map[string]interface{}{"displayName": "   "}, "displayName must be between 1 and 50 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.UpdateProfile(ctx, ann.ID, tt.updates)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.wantErr, ve.Message)
		})
	}

	pub, err := f.users.UpdateProfile(ctx, ann.ID, map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, "Ann", pub.DisplayName)

	pub, err = f.users.UpdateProfile(ctx, ann.ID, map[string]interface{}{"displayName": "Annie"})
	require.NoError(t, err)
	require.Equal(t, "Annie", pub.DisplayName)
	require.Equal(t, "Annie", f.reload(t, ann.ID).DisplayName)
}

func TestUploadPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")

	_, err := f.users.UploadPhoto(ctx, ann.ID, []byte("definitely not a picture"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.users.UploadPhoto(ctx, ann.ID, make([]byte, 2<<20))
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "File too large (max 1MB)", ve.Message)

	url, err := f.users.UploadPhoto(ctx, ann.ID, pngImage(t, 40, 20))
	require.NoError(t, err)
	require.Regexp(t, `^/uploads/photo-.+\.jpg$`, url)
	require.Equal(t, url, f.reload(t, ann.ID).PhotoURL)
}

func TestFriendRequestFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")

	_, err := f.friends.SendRequest(ctx, ann, ann.ID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.friends.SendRequest(ctx, ann, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrUserNotFound)

	created, err := f.friends.SendRequest(ctx, ann, bob.ID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = f.friends.SendRequest(ctx, f.reload(t, ann.ID), bob.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, []primitive.ObjectID{ann.ID}, f.reload(t, bob.ID).FriendRequests)

	_, err = f.friends.SendRequest(ctx, f.reload(t, bob.ID), ann.ID)
	require.ErrorIs(t, err, ErrRequestFromTarget)

	profile, err := f.users.GetProfile(ctx, f.reload(t, ann.ID), bob.ID)
	require.NoError(t, err)
	require.True(t, profile.RequestPending)
	require.False(t, profile.IsFriend)

	reqs, err := f.friends.Requests(ctx, f.reload(t, bob.ID))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, ann.ID.Hex(), reqs[0].ID)

	require.NoError(t, f.friends.Accept(ctx, bob.ID, ann.ID))
	require.ErrorIs(t, f.friends.Accept(ctx, bob.ID, ann.ID), ErrRequestNotFound)

	ann, bob = f.reload(t, ann.ID), f.reload(t, bob.ID)
	require.True(t, ann.IsFriend(bob.ID))
	require.True(t, bob.IsFriend(ann.ID))
	require.Empty(t, bob.FriendRequests)
	require.Empty(t, ann.SentFriendRequests)

	_, err = f.friends.SendRequest(ctx, ann, bob.ID)
	require.ErrorIs(t, err, ErrAlreadyFriends)

	friends, err := f.friends.Friends(ctx, ann)
	require.NoError(t, err)
	require.Len(t, friends, 1)

	profile, err = f.users.GetProfile(ctx, ann, bob.ID)
	require.NoError(t, err)
	require.True(t, profile.IsFriend)
}

type failingFriends struct {
	repository.UserRepository
	fail bool
}

func (r *failingFriends) AddFriends(ctx context.Context, a, b primitive.ObjectID) error {
	if r.fail {
		return errors.New("write failed")
	}
	return r.UserRepository.AddFriends(ctx, a, b)
}

func TestAcceptKeepsRequestWhenFriendshipFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")

	_, err := f.friends.SendRequest(ctx, ann, bob.ID)
	require.NoError(t, err)

	users := &failingFriends{UserRepository: f.store.Users, fail: true}
	svc := NewFriendService(users, f.events, zap.NewNop())
	require.Error(t, svc.Accept(ctx, bob.ID, ann.ID))
	require.Equal(t, []primitive.ObjectID{ann.ID}, f.reload(t, bob.ID).FriendRequests)
	require.False(t, f.reload(t, bob.ID).IsFriend(ann.ID))

	users.fail = false
	require.NoError(t, svc.Accept(ctx, bob.ID, ann.ID))
	require.True(t, f.reload(t, bob.ID).IsFriend(ann.ID))
	require.Empty(t, f.reload(t, bob.ID).FriendRequests)
	require.Empty(t, f.reload(t, ann.ID).SentFriendRequests)
}

func TestRejectAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")

	_, err := f.friends.SendRequest(ctx, ann, bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.friends.Reject(ctx, bob.ID, ann.ID))
	require.ErrorIs(t, f.friends.Reject(ctx, bob.ID, ann.ID), ErrRequestNotFound)
	require.Empty(t, f.reload(t, ann.ID).SentFriendRequests)

	_, err = f.friends.SendRequest(ctx, f.reload(t, ann.ID), bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.friends.CancelRequest(ctx, ann.ID, bob.ID))
	require.ErrorIs(t, f.friends.CancelRequest(ctx, ann.ID, bob.ID), ErrRequestNotFound)
	require.Empty(t, f.reload(t, bob.ID).FriendRequests)
	require.False(t, f.reload(t, bob.ID).IsFriend(ann.ID))
}

func TestGetOrCreateChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")

	_, _, err := f.chats.GetOrCreateChat(ctx, ann.ID, ann.ID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, _, err = f.chats.GetOrCreateChat(ctx, ann.ID, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrUserNotFound)

	first, created, err := f.chats.GetOrCreateChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, first.Participants, 2)

	second, created, err := f.chats.GetOrCreateChat(ctx, bob.ID, ann.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateChatConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := ann.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			v, _, err := f.chats.GetOrCreateChat(ctx, a, b)
			if err == nil {
				ids[i] = v.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	chats, err := f.store.Chats.ListForUser(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
}

func TestMessagingFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")
	eve := f.register(t, "eve@example.com", "Eve")

	chat, _, err := f.chats.GetOrCreateChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	chatID, err := primitive.ObjectIDFromHex(chat.ID)
	require.NoError(t, err)

	_, err = f.chats.SendText(ctx, ann, chatID, "   ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.chats.SendText(ctx, eve, chatID, "hi")
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.chats.SendText(ctx, ann, primitive.NewObjectID(), "hi")
	require.ErrorIs(t, err, ErrChatNotFound)

	m1, err := f.chats.SendText(ctx, ann, chatID, "hello bob")
	require.NoError(t, err)
	require.Equal(t, "Ann", m1.Sender.DisplayName)
	require.Equal(t, models.StatusSent, m1.EffectiveStatus())
	published := f.events.Events()
	last := published[len(published)-1]
	require.Equal(t, events.MessageCreated, last.Type)
	require.Equal(t, chat.ID, last.Key)

	m2, err := f.chats.SendText(ctx, bob, chatID, "hi ann")
	require.NoError(t, err)

	msgs, err := f.chats.ListMessages(ctx, ann.ID, chatID, repository.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, m1.ID, msgs[0].ID)
	require.Equal(t, m2.ID, msgs[1].ID)
	require.Equal(t, "Bob", msgs[1].Sender.DisplayName)

	_, err = f.chats.ListMessages(ctx, eve.ID, chatID, repository.MessageQuery{})
	require.ErrorIs(t, err, ErrAccessDenied)

	list, err := f.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "hi ann", list[0].LastMessage.Content)

	n, err := f.chats.MarkRead(ctx, bob.ID, chatID, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// read state never goes back
	n, err = f.chats.MarkRead(ctx, bob.ID, chatID, []string{m1.ID.Hex()})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.chats.MarkRead(ctx, bob.ID, chatID, []string{"nope"})
	require.ErrorAs(t, err, &ve)

	msgs, err = f.chats.ListMessages(ctx, bob.ID, chatID, repository.MessageQuery{})
	require.NoError(t, err)
	require.Equal(t, models.StatusRead, msgs[0].EffectiveStatus())
	require.True(t, msgs[0].IsReadBy(bob.ID))
	require.Equal(t, models.StatusSent, msgs[1].EffectiveStatus())

	require.Equal(t, 2, f.metrics.n["text"])
	require.Contains(t, f.events.Types(), events.ChatCreated)
	require.Contains(t, f.events.Types(), events.MessagesRead)
}

func TestSendFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann@example.com", "Ann")
	bob := f.register(t, "bob@example.com", "Bob")
	chat, _, err := f.chats.GetOrCreateChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(chat.ID)

	var ve *ValidationError
	_, err = f.chats.SendFile(ctx, ann, chatID, FileMessageInput{Filename: "a.png"})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "No file uploaded", ve.Message)

	_, err = f.chats.SendFile(ctx, ann, chatID, FileMessageInput{Type: models.MessageText, Filename: "a.png", Data: []byte("x")})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "Invalid message type", ve.Message)

	_, err = f.chats.SendFile(ctx, ann, chatID, FileMessageInput{Filename: "big.bin", Data: make([]byte, 1<<20+1)})
	require.ErrorAs(t, err, &ve)

	img, err := f.chats.SendFile(ctx, ann, chatID, FileMessageInput{Filename: "pic.png", Data: pngImage(t, 64, 64)})
	require.NoError(t, err)
	require.Equal(t, models.MessageImage, img.Type)
	require.Equal(t, "File message", img.Content)
	require.Regexp(t, `^/uploads/file-.+\.png$`, img.FileURL)
	require.Regexp(t, `^/uploads/thumb-.+\.jpg$`, img.ThumbnailURL)

	d := 3.5
	voice, err := f.chats.SendFile(ctx, ann, chatID, FileMessageInput{
		Type: models.MessageVoice, Content: "listen", Duration: &d, Filename: "memo.webm", Data: []byte("opus"),
	})
	require.NoError(t, err)
	require.Equal(t, "listen", voice.Content)
	require.Empty(t, voice.ThumbnailURL)
	require.Equal(t, 3.5, *voice.Duration)
}
