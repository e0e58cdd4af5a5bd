package writer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/deathrecord/domain/actor"
	"github.com/emergent-company/deathrecord/domain/synthesis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeStore struct {
	productionWrites int
	stagingWrites    int
	rejectedFactors  []string
	statsRecorded    int
	resolved         map[string]string
	resolveErr       error
	writeErr         error
}

func (f *fakeStore) GetActor(context.Context, string) (*actor.Actor, error) { return nil, nil }

func (f *fakeStore) LoadActorsForEnrichment(context.Context, actor.LoadCriteria, int) ([]*actor.Actor, error) {
	return nil, nil
}

func (f *fakeStore) WriteProduction(context.Context, *actor.EnrichmentResult) error {
	f.productionWrites++
	return f.writeErr
}

func (f *fakeStore) WriteStaging(context.Context, *actor.EnrichmentResult) error {
	f.stagingWrites++
	return f.writeErr
}

func (f *fakeStore) ResolveActorsByName(_ context.Context, names []string) (map[string]string, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	out := make(map[string]string)
	for _, n := range names {
		if id, ok := f.resolved[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (f *fakeStore) RecordRejectedFactor(_ context.Context, _, _, factor, _ string) error {
	f.rejectedFactors = append(f.rejectedFactors, factor)
	return nil
}

func (f *fakeStore) RecordRunStats(context.Context, *actor.RunStats) error {
	f.statsRecorded++
	return nil
}

func testResult() *actor.EnrichmentResult {
	return &actor.EnrichmentResult{
		ActorID:       "1",
		RunID:         "run-1",
		Circumstances: "died at home surrounded by family",
	}
}

func TestWriter_StagingModeBypassesProduction(t *testing.T) {
	store := &fakeStore{}
	w := New(store, ModeStaging, testLogger())

	err := w.Write(context.Background(), testResult(), nil, &actor.RunStats{ActorID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.stagingWrites)
	assert.Equal(t, 0, store.productionWrites, "staging writes must not touch production")
	assert.Equal(t, 1, store.statsRecorded)
}

func TestWriter_ProductionMode(t *testing.T) {
	store := &fakeStore{}
	w := New(store, ModeProduction, testLogger())

	err := w.Write(context.Background(), testResult(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.productionWrites)
	assert.Equal(t, 0, store.stagingWrites)
}

func TestWriter_DefaultsToStaging(t *testing.T) {
	store := &fakeStore{}
	w := New(store, "", testLogger())

	require.NoError(t, w.Write(context.Background(), testResult(), nil, nil))
	assert.Equal(t, 1, store.stagingWrites)
}

func TestWriter_ResolvesRelatedCelebrities(t *testing.T) {
	store := &fakeStore{resolved: map[string]string{"Maureen O'Hara": "42"}}
	w := New(store, ModeStaging, testLogger())

	result := testResult()
	result.RelatedCelebrities = []actor.RelatedCelebrity{
		{Name: "Maureen O'Hara"},
		{Name: "Somebody Unknown"},
	}

	require.NoError(t, w.Write(context.Background(), result, nil, nil))
	assert.Equal(t, "42", result.RelatedCelebrities[0].ActorID)
	assert.Empty(t, result.RelatedCelebrities[1].ActorID, "unresolved names stay free-form")
}

func TestWriter_RecordsRejectedFactors(t *testing.T) {
	store := &fakeStore{}
	w := New(store, ModeStaging, testLogger())

	rejected := []synthesis.RejectedFactor{{Factor: "cursed_film", Reason: "not in closed vocabulary"}}
	require.NoError(t, w.Write(context.Background(), testResult(), rejected, nil))
	assert.Equal(t, []string{"cursed_film"}, store.rejectedFactors)
}

func TestWriter_NilResultRecordsStatsOnly(t *testing.T) {
	store := &fakeStore{}
	w := New(store, ModeProduction, testLogger())

	require.NoError(t, w.Write(context.Background(), nil, nil, &actor.RunStats{ActorID: "1", ExitReason: "completed"}))
	assert.Equal(t, 0, store.productionWrites)
	assert.Equal(t, 1, store.statsRecorded)
}

func TestWriter_StoreErrorPropagates(t *testing.T) {
	store := &fakeStore{writeErr: errors.New("cache_unavailable")}
	w := New(store, ModeProduction, testLogger())

	err := w.Write(context.Background(), testResult(), nil, nil)
	require.Error(t, err)
}

func TestWriter_ResolveErrorPropagates(t *testing.T) {
	store := &fakeStore{resolveErr: errors.New("db down")}
	w := New(store, ModeStaging, testLogger())

	result := testResult()
	result.RelatedCelebrities = []actor.RelatedCelebrity{{Name: "x"}}

	require.Error(t, w.Write(context.Background(), result, nil, nil))
	assert.Equal(t, 0, store.stagingWrites)
}
