package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tg_rss_bot/internal/model"
)

const (
	botID    = 900
	callerID = 42
)

type fakeDirectory struct {
	chat      model.Chat
	chatErr   error
	admins    []int64
	adminsErr error
	selfErr   error
	calls     []string
}

func (f *fakeDirectory) ResolveChat(_ context.Context, identifier string) (model.Chat, error) {
	f.calls = append(f.calls, "resolve:"+identifier)
	return f.chat, f.chatErr
}

func (f *fakeDirectory) ChatAdministrators(_ context.Context, _ int64) ([]int64, error) {
	f.calls = append(f.calls, "admins")
	return f.admins, f.adminsErr
}

func (f *fakeDirectory) SelfID(_ context.Context) (int64, error) {
	f.calls = append(f.calls, "self")
	return botID, f.selfErr
}

func TestAuthorize(t *testing.T) {
	channel := model.Chat{ID: -1001234, Type: model.ChatChannel, Title: "News"}

	tests := []struct {
		name      string
		dir       *fakeDirectory
		wantID    int64
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "caller and bot are admins",
			dir:       &fakeDirectory{chat: channel, admins: []int64{callerID, botID}},
			wantID:    channel.ID,
			wantCalls: []string{"resolve:@news", "admins", "self"},
		},
		{
			name:      "supergroup accepted",
			dir:       &fakeDirectory{chat: model.Chat{ID: -1009, Type: model.ChatSupergroup}, admins: []int64{botID, callerID}},
			wantID:    -1009,
			wantCalls: []string{"resolve:@news", "admins", "self"},
		},
		{
			name:      "chat lookup fails",
			dir:       &fakeDirectory{chatErr: errors.New("Bad Request: chat not found")},
			wantErr:   ErrChatNotFound,
			wantCalls: []string{"resolve:@news"},
		},
		{
			name:      "private chat rejected",
			dir:       &fakeDirectory{chat: model.Chat{ID: 7, Type: model.ChatPrivate}},
			wantErr:   ErrInvalidTargetType,
			wantCalls: []string{"resolve:@news"},
		},
		{
			name:      "admin list unavailable",
			dir:       &fakeDirectory{chat: channel, adminsErr: errors.New("Forbidden")},
			wantErr:   ErrBotNotAdmin,
			wantCalls: []string{"resolve:@news", "admins"},
		},
		{
			name:      "bot member but not admin",
			dir:       &fakeDirectory{chat: channel, admins: []int64{callerID}},
			wantErr:   ErrBotNotAdmin,
			wantCalls: []string{"resolve:@news", "admins", "self"},
		},
		{
			name:      "self identity unavailable",
			dir:       &fakeDirectory{chat: channel, admins: []int64{callerID, botID}, selfErr: errors.New("timeout")},
			wantErr:   ErrBotNotAdmin,
			wantCalls: []string{"resolve:@news", "admins", "self"},
		},
		{
			name:      "caller not admin",
			dir:       &fakeDirectory{chat: channel, admins: []int64{botID, 1, 2}},
			wantErr:   ErrUserNotAdmin,
			wantCalls: []string{"resolve:@news", "admins", "self"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.dir).Authorize(context.Background(), callerID, "@news")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantID, id); diff != "" {
				t.Errorf("chat id (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, tt.dir.calls); diff != "" {
				t.Errorf("transport calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBotNotAdminRegardlessOfCaller(t *testing.T) {
	dir := &fakeDirectory{
		chat:   model.Chat{ID: -100, Type: model.ChatChannel},
		admins: []int64{callerID},
	}
	_, err := New(dir).Authorize(context.Background(), callerID, "-100")
	if !errors.Is(err, ErrBotNotAdmin) {
		t.Fatalf("expected ErrBotNotAdmin, got %v", err)
	}
	if errors.Is(err, ErrUserNotAdmin) {
		t.Error("caller privileges must not change the outcome")
	}
}
