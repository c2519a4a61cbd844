package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"crew-radar/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	store, err := NewStore(Config{DSN: filepath.Join(t.TempDir(), "jobs.db")})
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)}
	store.WithClock(clock.Now).WithLogger(log.New(io.Discard, "", 0))
	return store, clock
}

func sampleJob(source model.Source, externalID, title string) model.Job {
	posted := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	return model.Job{
		Source:         source,
		ExternalID:     externalID,
		Title:          title,
		Company:        "M/Y Example",
		Location:       "Antibes",
		EmploymentType: model.EmploymentPermanent,
		Department:     model.DepartmentDeck,
		VesselType:     model.VesselMotorYacht,
		SalaryRange:    "€3,000 per month",
		Description:    "Deck crew wanted",
		Requirements:   datatypes.JSONSlice[string]{"STCW"},
		Benefits:       datatypes.JSONSlice[string]{},
		SourceURL:      "https://example.com/jobs/" + externalID,
		RawData:        datatypes.JSONMap{"title": title},
		QualityScore:   0.8,
		PostedDate:     &posted,
		ScrapedAt:      time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t)
	ctx := context.Background()

	job := sampleJob("acme", "123", "Deckhand")
	outcome, err := store.Upsert(ctx, &job)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	require.NotEmpty(t, job.ID)

	first, err := store.FindByKey(ctx, "acme", "123")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	again := sampleJob("acme", "123", "Deckhand")
	outcome, err = store.Upsert(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	total, err := store.CountJobs(ctx, JobQuery{Source: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	second, err := store.FindByKey(ctx, "acme", "123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at must not change")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at must advance")
}

func TestUpsertKeepsIdentityOnContentChange(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t)
	ctx := context.Background()

	job := sampleJob("acme", "123", "Deckhand")
	_, err := store.Upsert(ctx, &job)
	require.NoError(t, err)
	originalID := job.ID

	clock.Advance(24 * time.Hour)
	changed := sampleJob("acme", "123", "Senior Deckhand")
	changed.SalaryRange = "€4,000 per month"
	changed.Department = model.DepartmentOther
	_, err = store.Upsert(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, originalID, changed.ID)

	got, err := store.GetJob(ctx, originalID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Deckhand", got.Title)
	assert.Equal(t, "€4,000 per month", got.SalaryRange)
	assert.Equal(t, model.DepartmentOther, got.Department)
	assert.Equal(t, []string{"STCW"}, []string(got.Requirements))
	assert.True(t, got.CreatedAt.Equal(clock.Now().Add(-24*time.Hour)))
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
}

func TestSameExternalIDAcrossSourcesDoesNotCollide(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	a := sampleJob("acme", "1", "Bosun")
	b := sampleJob("other", "1", "Bosun")
	res, err := store.UpsertJobs(ctx, []model.Job{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.NotEqual(t, res.NewJobs[0].ID, res.NewJobs[1].ID)
}

func TestUpsertJobsIsolatesFailures(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	jobs := make([]model.Job, 0, 5)
	for i := 1; i <= 5; i++ {
		jobs = append(jobs, sampleJob("acme", fmt.Sprintf("%d", i), fmt.Sprintf("Job %d", i)))
	}
	jobs[0].ID = "forced-id"
	jobs[2].ID = "forced-id"

	res, err := store.UpsertJobs(ctx, jobs)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "acme/3")

	for _, id := range []string{"1", "2", "4", "5"} {
		_, err := store.FindByKey(ctx, "acme", id)
		assert.NoError(t, err, id)
	}
	_, err = store.FindByKey(ctx, "acme", "3")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpsertJobsLastWriteWinsWithinBatch(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	res, err := store.UpsertJobs(ctx, []model.Job{
		sampleJob("acme", "7", "Deckhand"),
		sampleJob("acme", "8", "Stewardess"),
		sampleJob("acme", "7", "Lead Deckhand"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.NewJobs, 2)
	assert.Equal(t, "Lead Deckhand", res.NewJobs[0].Title)

	got, err := store.FindByKey(ctx, "acme", "7")
	require.NoError(t, err)
	assert.Equal(t, "Lead Deckhand", got.Title)

	total, err := store.CountJobs(ctx, JobQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestUpsertRejectsMissingKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	job := sampleJob("acme", "", "Deckhand")
	_, err := store.Upsert(context.Background(), &job)
	assert.Error(t, err)
}

func TestListJobsFiltersAndOrders(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	older := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC)

	deck := sampleJob("yotspot", "1", "Deckhand")
	deck.PostedDate = &older
	chef := sampleJob("yotspot", "2", "Sole Chef")
	chef.Department = model.DepartmentGalley
	chef.VesselType = model.VesselSailingYacht
	chef.Location = "Palma de Mallorca"
	chef.PostedDate = &newer
	chef.QualityScore = 0.4
	engineer := sampleJob("daywork123", "dw123_3", "Daywork Engineer")
	engineer.Department = model.DepartmentEngineering
	engineer.EmploymentType = model.EmploymentDaywork
	engineer.Description = "Watermaker service"

	_, err := store.UpsertJobs(ctx, []model.Job{deck, chef, engineer})
	require.NoError(t, err)

	all, err := store.ListJobs(ctx, JobQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Sole Chef", all[0].Title)

	check := func(q JobQuery, want ...string) {
		t.Helper()
		got, err := store.ListJobs(ctx, q)
		require.NoError(t, err)
		titles := make([]string, 0, len(got))
		for _, j := range got {
			titles = append(titles, j.Title)
		}
		assert.ElementsMatch(t, want, titles)

		n, err := store.CountJobs(ctx, q)
		require.NoError(t, err)
		assert.EqualValues(t, len(want), n)
	}

	check(JobQuery{Source: "daywork123"}, "Daywork Engineer")
	check(JobQuery{Department: model.DepartmentGalley}, "Sole Chef")
	check(JobQuery{VesselType: model.VesselSailingYacht}, "Sole Chef")
	check(JobQuery{EmploymentType: model.EmploymentDaywork}, "Daywork Engineer")
	check(JobQuery{Location: "palma"}, "Sole Chef")
	check(JobQuery{Search: "watermaker"}, "Daywork Engineer")
	check(JobQuery{MinQuality: 0.5}, "Deckhand", "Daywork Engineer")
	check(JobQuery{PostedSince: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}, "Sole Chef", "Daywork Engineer")

	page, err := store.ListJobs(ctx, JobQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestStatsAndRuns(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t)
	ctx := context.Background()

	old := sampleJob("yotspot", "1", "Deckhand")
	_, err := store.Upsert(ctx, &old)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)
	fresh := sampleJob("daywork123", "2", "Stewardess")
	fresh.Department = model.DepartmentInterior
	_, err = store.Upsert(ctx, &fresh)
	require.NoError(t, err)

	st, err := store.Stats(ctx, clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Total)
	assert.EqualValues(t, 1, st.Today)
	assert.EqualValues(t, 1, st.Week)
	assert.InDelta(t, 0.8, st.AvgQuality, 0.0001)
	assert.Equal(t, map[string]int64{"yotspot": 1, "daywork123": 1}, st.BySource)
	assert.Equal(t, map[string]int64{"deck": 1, "interior": 1}, st.ByDepartment)

	base := clock.Now()
	for i, src := range []model.Source{"yotspot", "daywork123", "yotspot"} {
		run := &model.ScrapeRun{Source: src, Success: true, JobsFound: i + 1, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.RecordRun(ctx, run))
	}

	runs, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 3, runs[0].JobsFound)

	yot, err := store.ListRuns(ctx, "yotspot", 10)
	require.NoError(t, err)
	assert.Len(t, yot, 2)

	latest, err := store.LatestRuns(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 3, latest["yotspot"].JobsFound)
	assert.Equal(t, 2, latest["daywork123"].JobsFound)
}

func TestSubscriptionsCRUD(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	sub := &model.Subscription{Email: "crew@example.com", Channel: "email", Departments: datatypes.JSONSlice[string]{"deck"}}
	require.NoError(t, store.CreateSubscription(ctx, sub))
	require.NotZero(t, sub.ID)

	subs, err := store.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"deck"}, []string(subs[0].Departments))

	require.NoError(t, store.DeleteSubscription(ctx, sub.ID))
	assert.ErrorIs(t, store.DeleteSubscription(ctx, sub.ID), ErrNotFound)
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := NewStore(Config{Driver: "oracle"})
	assert.Error(t, err)

	_, err = NewStore(Config{Driver: "mysql"})
	assert.Error(t, err)
}
