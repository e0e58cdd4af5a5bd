package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/deathrecord/domain/source"
	"github.com/emergent-company/deathrecord/domain/synthesis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSource struct {
	desc      source.Descriptor
	available bool
	result    source.LookupResult
	calls     int
	panics    bool
}

func (f *fakeSource) Name() string               { return f.desc.Name }
func (f *fakeSource) Type() source.Type          { return f.desc.Type }
func (f *fakeSource) Descriptor() source.Descriptor { return f.desc }
func (f *fakeSource) IsAvailable() bool          { return f.available }
func (f *fakeSource) Lookup(ctx context.Context, a source.Actor) source.LookupResult {
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.result
}

func newFakeSource(typ source.Type, name string, cat source.Category, fam source.Family, tier source.ReliabilityTier, confidence float64) *fakeSource {
	return &fakeSource{
		desc:      source.Descriptor{Type: typ, Name: name, Category: cat, Family: fam, Tier: tier},
		available: true,
		result: source.LookupResult{
			Entry: source.SourceEntry{Type: typ, ReliabilityTier: tier, ReliabilityScore: tier.Score(), Confidence: confidence},
			Biography: &source.RawBiographySnippet{Text: "some biography text", Confidence: confidence},
		},
	}
}

type fakeGenerator struct{}

func (fakeGenerator) IsConfigured() bool { return true }
func (fakeGenerator) Generate(ctx context.Context, prompt string) (string, float64, error) {
	return `{"circumstances": "died peacefully", "notableFactors": ["natural_causes"]}`, 0.01, nil
}

func testConfig() Config {
	return Config{
		EarlyStopSourceCount:    5,
		EarlyStopMinConfidence:  0.3,
		EarlyStopMinReliability: 0.7,
		MaxCostPerActorUSD:      0,
		MaxCostPerBatchUSD:      0,
		DisabledCategories:      map[source.Category]bool{},
	}
}

func testActor() source.Actor { return source.Actor{ID: "1", Name: "John Wayne"} }

func TestOrchestrator_SourceOrdering_IsTierOrderedThenAlphabetical(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
		newFakeSource(source.TypeWikipedia, "wikipedia", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8),
		newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8),
	}
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, testConfig(), testLogger())

	assert.Equal(t, []string{"wikidata", "wikipedia", "bbc"}, o.SourceNames())
}

func TestOrchestrator_DisabledCategoryIsNeverCalled(t *testing.T) {
	bbc := newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8)
	sources := []source.Source{bbc}

	cfg := testConfig()
	cfg.DisabledCategories = map[source.Category]bool{source.CategoryNews: true}
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	assert.Equal(t, 0, o.SourceCount())
	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	assert.Equal(t, 0, bbc.calls)
	assert.False(t, outcome.Success())
}

func TestOrchestrator_UnavailableSourceIsExcluded(t *testing.T) {
	s := newFakeSource(source.TypeBing, "bing", source.CategoryWebSearch, source.FamilyWebSearch, source.TierWebSearch, 0.8)
	s.available = false
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{s}, synth, testConfig(), testLogger())

	assert.Equal(t, 0, o.SourceCount())
}

func TestOrchestrator_EarlyStop_StopsAfterQualifyingFamilyThreshold(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8),
		newFakeSource(source.TypeWikipedia, "wikipedia", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8),
		newFakeSource(source.TypeBritannica, "britannica", source.CategoryReference, source.FamilyBritannica, source.TierSecondaryCompilation, 0.8),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 2
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	assert.True(t, outcome.Stats.EarlyStopped)

	bbc := sources[3].(*fakeSource)
	assert.Equal(t, 0, bbc.calls, "bbc should not be called once 2 qualifying families are reached")
}

func TestOrchestrator_LowReliabilityDoesNotTriggerEarlyStop(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeDuckDuckGo, "duckduckgo", source.CategoryWebSearch, source.FamilyWebSearch, source.TierWebSearch, 0.8),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 1
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	bbc := sources[1].(*fakeSource)
	assert.Equal(t, 1, bbc.calls, "web_search reliability (0.50) is below the 0.7 floor and must not early-stop before bbc runs")
}

func TestOrchestrator_LowConfidenceDoesNotTriggerEarlyStop(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.2),
		newFakeSource(source.TypeWikipedia, "wikipedia", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.2),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 1
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	o.Enrich(context.Background(), testActor(), "run-1")
	bbc := sources[2].(*fakeSource)
	assert.Equal(t, 1, bbc.calls, "confidence 0.2 is below threshold 0.3 and must not trigger early stop")
}

func TestOrchestrator_BookSourcesAreTriedAfterEarlyStop(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8),
		newFakeSource(source.TypeGoogleBooks, "google_books", source.CategoryBooks, source.FamilyBookCorpus, source.TierSecondaryCompilation, 0.8),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 1
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	assert.True(t, outcome.Stats.EarlyStopped)

	books := sources[1].(*fakeSource)
	bbc := sources[2].(*fakeSource)
	assert.Equal(t, 1, books.calls, "book sources are always tried before the early stop takes effect")
	assert.Equal(t, 0, bbc.calls)
}

func TestOrchestrator_MarginalBookSourceCountsTowardEarlyStop(t *testing.T) {
	// A book hit at web_search reliability (0.50, below the 0.7 floor)
	// still qualifies: books are exempt from the reliability gate.
	sources := []source.Source{
		newFakeSource(source.TypeGoogleBooks, "google_books", source.CategoryBooks, source.FamilyBookCorpus, source.TierWebSearch, 0.8),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 1
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	assert.True(t, outcome.Stats.EarlyStopped)

	bbc := sources[1].(*fakeSource)
	assert.Equal(t, 0, bbc.calls, "the marginal book hit alone must end the run")
}

func TestOrchestrator_DisableBookExemptionSuppressesIt(t *testing.T) {
	sources := []source.Source{
		newFakeSource(source.TypeGoogleBooks, "google_books", source.CategoryBooks, source.FamilyBookCorpus, source.TierWebSearch, 0.8),
		newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8),
	}
	cfg := testConfig()
	cfg.EarlyStopSourceCount = 1
	cfg.DisableBookExemption = true
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New(sources, synth, cfg, testLogger())

	o.Enrich(context.Background(), testActor(), "run-1")

	bbc := sources[1].(*fakeSource)
	assert.Equal(t, 1, bbc.calls, "with the exemption disabled a sub-floor book hit does not qualify")
}

func TestOrchestrator_CostCeilingPerActor(t *testing.T) {
	s1 := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	s1.result.Entry.CostUSD = 1.0
	s2 := newFakeSource(source.TypeBBC, "bbc", source.CategoryNews, source.FamilyTier1News, source.TierTier1News, 0.8)

	cfg := testConfig()
	cfg.MaxCostPerActorUSD = 0.5
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{s1, s2}, synth, cfg, testLogger())

	o.Enrich(context.Background(), testActor(), "run-1")
	assert.Equal(t, 1, s1.calls)
	assert.Equal(t, 0, s2.calls, "second source should not be called once the per-actor ceiling is exceeded")
}

func TestOrchestrator_SourceErrorDoesNotAbortRun(t *testing.T) {
	failing := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	failing.result = source.LookupResult{ErrKind: source.ErrorUpstreamError, ErrMsg: "boom"}
	ok := newFakeSource(source.TypeWikipedia, "wikipedia", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)

	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{failing, ok}, synth, testConfig(), testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	assert.Equal(t, 2, outcome.Stats.SourcesAttempted)
	assert.Equal(t, 1, outcome.Stats.SourcesFailed)
	assert.Len(t, outcome.RawSources, 1)
}

func TestOrchestrator_PanickingSourceDoesNotAbortRun(t *testing.T) {
	panicker := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	panicker.panics = true
	ok := newFakeSource(source.TypeWikipedia, "wikipedia", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)

	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{panicker, ok}, synth, testConfig(), testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	require.True(t, outcome.Success())
	assert.Len(t, outcome.RawSources, 1)
}

func TestOrchestrator_NoSynthesisOnEmptyRawSources(t *testing.T) {
	failing := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	failing.result = source.LookupResult{ErrKind: source.ErrorNotFound}

	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{failing}, synth, testConfig(), testLogger())

	outcome := o.Enrich(context.Background(), testActor(), "run-1")
	assert.False(t, outcome.Success())
	assert.Equal(t, "no data", outcome.Error)
}

func TestOrchestrator_CancellationBetweenActors(t *testing.T) {
	ok := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{ok}, synth, testConfig(), testLogger())

	actors := []source.Actor{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	result := o.EnrichBatch(ctx, actors, func(a source.Actor) string {
		calls++
		if calls == 3 {
			cancel()
		}
		return "run-" + a.ID
	})

	assert.Equal(t, ExitInterrupted, result.ExitReason)
	assert.Len(t, result.Outcomes, 2)
}

func TestOrchestrator_BatchCostLimit(t *testing.T) {
	ok := newFakeSource(source.TypeWikidata, "wikidata", source.CategoryFree, source.FamilyWikimedia, source.TierStructuredData, 0.8)
	ok.result.Entry.CostUSD = 6.0

	cfg := testConfig()
	cfg.MaxCostPerBatchUSD = 10.0
	synth := synthesis.NewSynthesizer(fakeGenerator{}, 0, testLogger())
	o := New([]source.Source{ok}, synth, cfg, testLogger())

	actors := []source.Actor{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	result := o.EnrichBatch(context.Background(), actors, func(a source.Actor) string { return "run-" + a.ID })

	assert.Equal(t, ExitCostLimit, result.ExitReason)
	assert.Len(t, result.Outcomes, 2)
}

func TestValidateEarlyStopSourceCount(t *testing.T) {
	assert.Equal(t, 5, validateEarlyStopSourceCount(0))
	assert.Equal(t, 5, validateEarlyStopSourceCount(-3))
	assert.Equal(t, 5, validateEarlyStopSourceCount(actorNaN()))
	assert.Equal(t, 5, validateEarlyStopSourceCount(actorInf()))
	assert.Equal(t, 3, validateEarlyStopSourceCount(3.7))
	assert.Equal(t, 7, validateEarlyStopSourceCount(7))
}

func actorNaN() float64 { var z float64; return z / z }
func actorInf() float64 { var z float64; return 1 / z }
