package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEffectiveStatus(t *testing.T) {
	reader := primitive.NewObjectID()

	tests := []struct {
		name string
		msg  Message
		want MessageStatus
	}{
		{"fresh", Message{Status: StatusSent}, StatusSent},
		{"empty status", Message{}, StatusSent},
		{"read by someone", Message{Status: StatusSent, ReadBy: []primitive.ObjectID{reader}}, StatusDelivered},
		{"read flag", Message{Status: StatusSent, Read: true, ReadBy: []primitive.ObjectID{reader}}, StatusRead},
		{"explicit error", Message{Status: StatusError, Read: true}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.msg.EffectiveStatus())
		})
	}
}

func TestMessageViewJSON(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	v := MessageView{
		Message: Message{
			ID:        primitive.NewObjectID(),
			Type:      MessageText,
			Content:   "hi",
			Status:    StatusSent,
			CreatedAt: created,
		},
		Sender: &PublicUser{ID: "abc", DisplayName: "Ann"},
	}

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, "hi", out["content"])
	require.Equal(t, "sent", out["status"])
	require.Equal(t, []any{}, out["readBy"])
	require.Equal(t, created.Format(time.RFC3339), out["timestamp"])
	require.Equal(t, "Ann", out["sender"].(map[string]any)["displayName"])
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.Equal(t, PairKey(a, b), PairKey(b, a))
	require.NotEqual(t, PairKey(a, b), PairKey(a, primitive.NewObjectID()))
}
