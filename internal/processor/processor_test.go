package processor

import (
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"crew-radar/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func newTestProcessor() *Processor {
	return New(log.New(io.Discard, "", 0)).WithClock(func() time.Time { return refNow })
}

func TestProcessorRejectsWhenTitleMissing(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()
	for _, title := range []string{"", "   \t\n"} {
		res := p.Normalize(model.RawJobFields{ExternalID: "1", Title: title, Description: "x"}, "acme")
		if res.Outcome != ResultRejected {
			t.Fatalf("expected rejection for %q, got %v", title, res.Outcome)
		}
		if res.Job != nil {
			t.Fatalf("expected no job on rejection")
		}
		if res.Reason == "" {
			t.Fatalf("expected rejection reason to be set")
		}
	}
}

func TestProcessorDefaultClassificationIsTotal(t *testing.T) {
	t.Parallel()

	res := newTestProcessor().Normalize(model.RawJobFields{
		ExternalID: "9",
		Title:      "Random Text With No Keywords",
	}, "acme")
	require.Equal(t, ResultAccepted, res.Outcome)

	job := res.Job
	assert.Equal(t, model.EmploymentPermanent, job.EmploymentType)
	assert.Equal(t, model.DepartmentOther, job.Department)
	assert.Equal(t, model.VesselMotorYacht, job.VesselType)
}

func TestProcessorClassifiesByPriority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		raw        model.RawJobFields
		employment model.EmploymentType
		department model.Department
		vessel     model.VesselType
	}{
		{
			name:       "daywork beats rotational",
			raw:        model.RawJobFields{Title: "Daywork Deckhand on rotation"},
			employment: model.EmploymentDaywork,
			department: model.DepartmentDeck,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "job type field counts",
			raw:        model.RawJobFields{Title: "Chief Stewardess", JobType: "Rotational"},
			employment: model.EmploymentRotational,
			department: model.DepartmentInterior,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "deck beats engineering",
			raw:        model.RawJobFields{Title: "Deck Engineer", JobType: "Seasonal"},
			employment: model.EmploymentSeasonal,
			department: model.DepartmentDeck,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "temporary",
			raw:        model.RawJobFields{Title: "Temporary ETO"},
			employment: model.EmploymentTemporary,
			department: model.DepartmentEngineering,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "temp as last word",
			raw:        model.RawJobFields{Title: "Chef - Temp"},
			employment: model.EmploymentTemporary,
			department: model.DepartmentGalley,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "temp in parentheses",
			raw:        model.RawJobFields{Title: "Stewardess (Temp)"},
			employment: model.EmploymentTemporary,
			department: model.DepartmentInterior,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "sy abbreviation at end",
			raw:        model.RawJobFields{Title: "Bosun", VesselText: "52m SY"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentDeck,
			vessel:     model.VesselSailingYacht,
		},
		{
			name:       "contract",
			raw:        model.RawJobFields{Title: "Sous Chef", JobType: "Contract"},
			employment: model.EmploymentContract,
			department: model.DepartmentGalley,
			vessel:     model.VesselMotorYacht,
		},
		{
			name:       "sailing from vessel text",
			raw:        model.RawJobFields{Title: "Mate", VesselText: "45m Sailing Yacht"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentDeck,
			vessel:     model.VesselSailingYacht,
		},
		{
			name:       "sailing beats catamaran",
			raw:        model.RawJobFields{Title: "Cook", Description: "Sailing catamaran charter"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentGalley,
			vessel:     model.VesselSailingYacht,
		},
		{
			name:       "super yacht",
			raw:        model.RawJobFields{Title: "Butler", Description: "120m super yacht"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentInterior,
			vessel:     model.VesselSuperYacht,
		},
		{
			name:       "expedition",
			raw:        model.RawJobFields{Title: "2nd Engineer", VesselText: "Expedition vessel"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentEngineering,
			vessel:     model.VesselExpedition,
		},
		{
			name:       "chase boat",
			raw:        model.RawJobFields{Title: "Captain", Description: "Run the chase boat"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentDeck,
			vessel:     model.VesselChaseBoat,
		},
		{
			name:       "accents folded",
			raw:        model.RawJobFields{Title: "Chéf de cuisine"},
			employment: model.EmploymentPermanent,
			department: model.DepartmentGalley,
			vessel:     model.VesselMotorYacht,
		},
	}

	p := newTestProcessor()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.raw.ExternalID = "1"
			res := p.Normalize(tc.raw, "acme")
			require.Equal(t, ResultAccepted, res.Outcome)
			assert.Equal(t, tc.employment, res.Job.EmploymentType)
			assert.Equal(t, tc.department, res.Job.Department)
			assert.Equal(t, tc.vessel, res.Job.VesselType)
		})
	}
}

func TestRuleTablesEvaluateInOrder(t *testing.T) {
	t.Parallel()

	table := RuleTable[string]{
		Rules: []Rule[string]{
			{Keywords: []string{"alpha"}, Result: "first"},
			{Keywords: []string{"alpha", "beta"}, Result: "second"},
		},
		Default: "none",
	}
	assert.Equal(t, "first", table.Match("alpha beta"))
	assert.Equal(t, "second", table.Match("beta"))
	assert.Equal(t, "none", table.Match("gamma"))
}

func TestProcessorTruncatesAfterMatching(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 250) + " deckhand"
	res := newTestProcessor().Normalize(model.RawJobFields{
		ExternalID:  "2",
		Title:       long,
		Company:     strings.Repeat("c", 150),
		Location:    strings.Repeat("l", 150),
		Description: strings.Repeat("d", 25000),
	}, "acme")
	require.Equal(t, ResultAccepted, res.Outcome)

	job := res.Job
	assert.Equal(t, model.DepartmentDeck, job.Department)
	assert.Len(t, job.Title, model.MaxTitleLen)
	assert.Len(t, job.Company, model.MaxCompanyLen)
	assert.Len(t, job.Location, model.MaxLocationLen)
	assert.Len(t, job.Description, model.MaxDescriptionLen)
}

func TestProcessorFillsFallbacks(t *testing.T) {
	t.Parallel()

	res := newTestProcessor().Normalize(model.RawJobFields{
		Title:      " Junior  Deckhand ",
		Company:    "M/Y Example",
		Location:   "Antibes",
		PostedText: "not a date",
		SalaryText: "€3,000 per month",
		VesselText: "Motor yacht 40m (131ft)",
		Attrs:      map[string]string{"card": "1"},
	}, "acme")
	require.Equal(t, ResultAccepted, res.Outcome)

	job := res.Job
	assert.Equal(t, "Junior Deckhand", job.Title)
	require.NotEmpty(t, job.ExternalID)
	assert.True(t, strings.HasPrefix(job.ExternalID, "h"))
	assert.Equal(t, "Job ID: "+job.ExternalID+" - Junior Deckhand", job.Description)
	assert.Equal(t, "EUR", job.SalaryCurrency)
	assert.Equal(t, "month", job.SalaryPeriod)
	assert.Equal(t, "40m (131ft)", job.VesselSize)
	assert.Equal(t, "junior", job.PositionLevel)
	assert.NotNil(t, job.Requirements)
	assert.Empty(t, job.Requirements)
	assert.Equal(t, "1", job.RawData["card"])
	assert.Equal(t, "not a date", job.RawData["posted_text"])

	require.NotNil(t, job.PostedDate)
	assert.Equal(t, Sentinel(refNow), *job.PostedDate)
	assert.Equal(t, refNow, job.ScrapedAt)

	again := newTestProcessor().Normalize(model.RawJobFields{
		Title:      "Junior Deckhand",
		Company:    "M/Y Example",
		Location:   "Antibes",
		PostedText: "not a date",
	}, "acme")
	assert.Equal(t, job.ExternalID, again.Job.ExternalID)
}

func TestQualityScoreBounds(t *testing.T) {
	t.Parallel()

	full := model.Job{
		Title:       "Deckhand",
		Company:     "M/Y Example",
		Location:    "Antibes",
		Description: strings.Repeat("a", 201),
		SourceURL:   "https://example.com/jobs/1",
		ExternalID:  "1",
	}
	assert.Equal(t, 1.0, QualityScore(full))

	mid := full
	mid.Description = strings.Repeat("a", 150)
	assert.Equal(t, 0.9, QualityScore(mid))

	sparse := model.Job{Title: "Deckhand", Description: "0123456789"}
	assert.Equal(t, 0.3, QualityScore(sparse))

	sparse.SourceURL = "https://example.com/jobs/1"
	sparse.ExternalID = "1"
	assert.Equal(t, 0.5, QualityScore(sparse))

	blank := model.Job{Title: "Deckhand", Company: "N/A", Location: "   ", SourceURL: "not a url", ExternalID: "1"}
	assert.Equal(t, 0.3, QualityScore(blank))

	assert.Equal(t, 0.0, QualityScore(model.Job{}))
}

func TestParsePostedDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want time.Time
	}{
		{"2 days ago", refNow.AddDate(0, 0, -2)},
		{"Posted 2 days ago", refNow.AddDate(0, 0, -2)},
		{"today", refNow},
		{"0 hours ago", refNow},
		{"yesterday", refNow.AddDate(0, 0, -1)},
		{"3 hours ago", refNow.Add(-3 * time.Hour)},
		{"an hour ago", refNow.Add(-time.Hour)},
		{"15 minutes ago", refNow.Add(-15 * time.Minute)},
		{"1 week ago", refNow.AddDate(0, 0, -7)},
		{"2 months ago", refNow.AddDate(0, -2, 0)},
		{"12 March 2025", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"Posted on: 3rd Feb 2025", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"Mar 12, 2025", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"12/03/2025", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParsePostedDate(tc.text, refNow)
		require.True(t, ok, tc.text)
		assert.WithinDuration(t, tc.want, got, 5*time.Second, tc.text)
	}

	for _, text := range []string{"", "sometime soon", "Posted", "99999999999999999999 days ago"} {
		got, ok := ParsePostedDate(text, refNow)
		assert.False(t, ok, text)
		assert.True(t, got.Before(refNow.AddDate(0, 0, -90)), text)
	}
}
