package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crew-radar/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionNotifierFiltersJobsPerSubscriber(t *testing.T) {
	t.Parallel()

	store := &stubSubscriptionStore{
		subs: []model.Subscription{
			{ID: 1, Email: "deck@example.com", Channel: "email", Departments: []string{"deck"}},
			{ID: 2, Email: "log@example.com", Channel: "log", Departments: []string{"galley"}},
			{ID: 3, Email: "sail@example.com", Channel: "email", VesselTypes: []string{"sailing_yacht"}},
		},
	}

	emailSender := &recordingSender{}
	cfg := EmailConfig{From: "from@example.com", Host: "smtp", To: []string{"placeholder"}}
	subNotifier := NewSubscriptionNotifier(store, cfg, emailSender, nil)

	jobs := []model.Job{
		{ID: "d", Title: "Bosun", Department: model.DepartmentDeck, VesselType: model.VesselMotorYacht},
		{ID: "g", Title: "Sous Chef", Department: model.DepartmentGalley, VesselType: model.VesselMotorYacht},
	}

	if err := subNotifier.Notify(context.Background(), jobs); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if len(emailSender.msgs) != 1 {
		t.Fatalf("expected email sender called once, got %d", len(emailSender.msgs))
	}
	msg := emailSender.msgs[0]
	if msg.To[0] != "deck@example.com" {
		t.Fatalf("unexpected recipient %v", msg.To)
	}
	if !strings.Contains(msg.Body, "Bosun") || strings.Contains(msg.Body, "Sous Chef") {
		t.Fatalf("expected only deck job in email body, got %s", msg.Body)
	}
}

func TestSubscriptionNotifierFallsBackWhenNoSubscriptions(t *testing.T) {
	t.Parallel()

	store := &stubSubscriptionStore{}
	fallback := &stubNotifier{}

	notifier := NewSubscriptionNotifier(store, EmailConfig{}, nil, fallback)

	jobs := []model.Job{{ID: "only"}}

	if err := notifier.Notify(context.Background(), jobs); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if fallback.calls == 0 {
		t.Fatalf("expected fallback notifier to be invoked")
	}
}

func TestSubscriptionNotifierPropagatesStoreError(t *testing.T) {
	t.Parallel()

	store := &stubSubscriptionStore{err: errors.New("db closed")}
	err := NewSubscriptionNotifier(store, EmailConfig{}, &recordingSender{}, nil).Notify(context.Background(), []model.Job{{ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list subscriptions")
}

func TestMultiNotifierContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	first := &stubNotifier{err: boom}
	second := &stubNotifier{}
	m := NewMulti(first, nil, second)
	require.Len(t, m, 2)

	err := m.Notify(context.Background(), []model.Job{{ID: "1"}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	require.NoError(t, m.Notify(context.Background(), nil))
	assert.Equal(t, 1, second.calls)
}

type stubSubscriptionStore struct {
	subs []model.Subscription
	err  error
}

func (s *stubSubscriptionStore) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.subs, s.err
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	s.calls++
	return s.err
}

type recordingSender struct {
	msgs []EmailMessage
}

func (s *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	s.msgs = append(s.msgs, msg)
	return nil
}
