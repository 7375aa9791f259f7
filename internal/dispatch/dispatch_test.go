package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func testFormat(post model.Post, sub model.Subscription) string {
	return fmt.Sprintf("post %d via sub %d", post.PostID, sub.ID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func bindChat(t *testing.T, store *storage.SQLite, chatID int64) {
	t.Helper()
	ctx := context.Background()
	settings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	settings.ChatID = chatID
	if err := store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
}

func seedPost(t *testing.T, store *storage.SQLite, postID int64, title string, pub time.Time) {
	t.Helper()
	post := model.Post{PostID: postID, Title: title, PubDate: pub}
	if _, err := store.InsertPost(context.Background(), &post); err != nil {
		t.Fatalf("seed post %d: %v", postID, err)
	}
}

func seedSub(t *testing.T, store *storage.SQLite, sub model.Subscription) int64 {
	t.Helper()
	if err := store.CreateSubscription(context.Background(), &sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub.ID
}

func TestProcessUnpushedKillSwitch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)
	seedSub(t, store, model.Subscription{Keyword1: "vps"})
	seedPost(t, store, 501, "VPS Flash Sale", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	settings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	settings.StopPush = true
	if err := store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	sender := &fakeSender{}
	d := New(store, sender, testFormat, false, discardLogger())

	rep, err := d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff(Report{}, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no sends, got %d", len(sender.sent))
	}

	// Posts stay unpushed and are picked up once push resumes.
	posts, err := store.ListUnpushed(ctx)
	if err != nil {
		t.Fatalf("list unpushed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 unpushed post, got %d", len(posts))
	}
}

func TestProcessUnpushedPushAndSkip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)
	subID := seedSub(t, store, model.Subscription{Keyword1: "vps"})

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	seedPost(t, store, 501, "VPS Flash Sale", base)
	seedPost(t, store, 502, "Daily check-in thread", base.Add(time.Hour))

	sender := &fakeSender{}
	d := New(store, sender, testFormat, false, discardLogger())

	rep, err := d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := Report{
		Processed: 2,
		Pushed:    1,
		Skipped:   1,
		Details: []Detail{
			{PostID: 501, Title: "VPS Flash Sale", Status: DetailPushed},
			{PostID: 502, Title: "Daily check-in thread", Status: DetailSkipped, Reason: "no matching subscription"},
		},
	}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	wantSent := []sentMessage{{ChatID: 100, Text: "post 501 via sub 1"}}
	if diff := cmp.Diff(wantSent, sender.sent); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}

	pushed, err := store.GetPost(ctx, 501)
	if err != nil {
		t.Fatalf("get pushed: %v", err)
	}
	if pushed.PushStatus != model.StatusPushed {
		t.Errorf("status = %v, want pushed", pushed.PushStatus)
	}
	if pushed.SubID == nil || *pushed.SubID != subID {
		t.Errorf("sub id = %v, want %d", pushed.SubID, subID)
	}
	if pushed.PushDate == nil {
		t.Error("expected push date to be recorded")
	}

	skipped, err := store.GetPost(ctx, 502)
	if err != nil {
		t.Fatalf("get skipped: %v", err)
	}
	if skipped.PushStatus != model.StatusSkipped {
		t.Errorf("status = %v, want skipped", skipped.PushStatus)
	}
	if skipped.SubID != nil {
		t.Errorf("skipped post has sub id %d", *skipped.SubID)
	}
}

func TestProcessUnpushedFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)

	firstID := seedSub(t, store, model.Subscription{Keyword1: "vps"})
	seedSub(t, store, model.Subscription{Keyword1: "sale"})

	seedPost(t, store, 501, "VPS Flash Sale", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	sender := &fakeSender{}
	d := New(store, sender, testFormat, false, discardLogger())

	if _, err := d.ProcessUnpushed(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly 1 send, got %d", len(sender.sent))
	}
	post, err := store.GetPost(ctx, 501)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.SubID == nil || *post.SubID != firstID {
		t.Errorf("sub id = %v, want first matching subscription %d", post.SubID, firstID)
	}
}

func TestProcessUnpushedSendFailureRetries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)
	seedSub(t, store, model.Subscription{Keyword1: "vps"})
	seedPost(t, store, 501, "VPS Flash Sale", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	sender := &fakeSender{err: fmt.Errorf("telegram: 429 too many requests")}
	d := New(store, sender, testFormat, false, discardLogger())

	rep, err := d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rep.Errors != 1 || rep.Pushed != 0 {
		t.Fatalf("report = %+v, want 1 error and 0 pushed", rep)
	}
	if len(rep.Details) != 1 || rep.Details[0].Status != DetailError {
		t.Fatalf("details = %+v, want one error detail", rep.Details)
	}

	post, err := store.GetPost(ctx, 501)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.PushStatus != model.StatusUnpushed {
		t.Fatalf("status = %v, want unpushed after failed send", post.PushStatus)
	}

	// Next pass succeeds and finally pushes the post.
	sender.err = nil
	rep, err = d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if rep.Pushed != 1 {
		t.Fatalf("second pass pushed = %d, want 1", rep.Pushed)
	}
}

func TestProcessUnpushedUnboundChat(t *testing.T) {
	tests := []struct {
		name        string
		skipUnbound bool
		wantStatus  model.PushStatus
		wantDetail  string
	}{
		{
			name:        "stays unpushed by default",
			skipUnbound: false,
			wantStatus:  model.StatusUnpushed,
			wantDetail:  DetailError,
		},
		{
			name:        "skipped when configured",
			skipUnbound: true,
			wantStatus:  model.StatusSkipped,
			wantDetail:  DetailSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			// No chat bound on purpose.
			seedSub(t, store, model.Subscription{Keyword1: "vps"})
			seedPost(t, store, 501, "VPS Flash Sale", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

			sender := &fakeSender{}
			d := New(store, sender, testFormat, tt.skipUnbound, discardLogger())

			rep, err := d.ProcessUnpushed(ctx)
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			if len(sender.sent) != 0 {
				t.Errorf("expected no sends, got %d", len(sender.sent))
			}
			if len(rep.Details) != 1 || rep.Details[0].Status != tt.wantDetail {
				t.Fatalf("details = %+v, want one %s detail", rep.Details, tt.wantDetail)
			}
			if rep.Details[0].Reason != "no chat bound" {
				t.Errorf("reason = %q, want %q", rep.Details[0].Reason, "no chat bound")
			}

			post, err := store.GetPost(ctx, 501)
			if err != nil {
				t.Fatalf("get post: %v", err)
			}
			if post.PushStatus != tt.wantStatus {
				t.Errorf("status = %v, want %v", post.PushStatus, tt.wantStatus)
			}
		})
	}
}

func TestProcessUnpushedPacing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)
	seedSub(t, store, model.Subscription{Keyword1: "vps"})

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 7; i++ {
		seedPost(t, store, 500+i, fmt.Sprintf("VPS deal %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	sender := &fakeSender{}
	d := New(store, sender, testFormat, false, discardLogger())

	var pauses []time.Duration
	d.sleep = func(dur time.Duration) { pauses = append(pauses, dur) }

	rep, err := d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rep.Pushed != 7 {
		t.Fatalf("pushed = %d, want 7", rep.Pushed)
	}

	// One pause after the fifth delivery, none for the trailing two.
	if diff := cmp.Diff([]time.Duration{time.Second}, pauses); diff != "" {
		t.Errorf("pauses mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessUnpushedEmptyBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	bindChat(t, store, 100)

	sender := &fakeSender{}
	d := New(store, sender, testFormat, false, discardLogger())

	rep, err := d.ProcessUnpushed(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff(Report{}, rep, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
