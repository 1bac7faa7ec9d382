package session

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstat/domain/analysis"
	"medstat/domain/core"
	"medstat/domain/dataset"
	"medstat/internal"
)

func quietState(ttl time.Duration) *AppState {
	return NewAppState(ttl, time.Second, internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError))
}

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("trial.csv", dataset.SourceUpload,
		[]string{"time", "event", "arm"},
		[][]string{{"5", "1", "A"}, {"8", "0", "B"}, {"12", "1", "A"}})
	require.NoError(t, err)
	return ds
}

func TestAppState_CreateAndGet(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	require.False(t, b.ID.IsEmpty())

	got, err := a.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, 1, a.Len())

	_, err = a.Get(core.NewID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestAppState_ActivateUnknownKind(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	_, err := a.Activate(b.ID, analysis.Kind("histogram"))
	assert.ErrorIs(t, err, core.ErrUnknownAnalysis)
}

func TestActivate_CreatesTabOnce(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()

	first, err := a.Activate(b.ID, analysis.KindSurvival)
	require.NoError(t, err)
	again, err := a.Activate(b.ID, analysis.KindSurvival)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, analysis.KindSurvival, b.ActiveKind())
}

func TestConfirmedPreviewBindsToOpeningTab(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()

	tab := b.OpenPreview(analysis.KindSurvival, sampleDataset(t), "trial.csv")
	assert.Nil(t, tab.Dataset(), "nothing is bound before confirmation")

	b.Preview.ToggleColumn("arm")
	_, ok := b.Preview.ConfirmSelection()
	require.True(t, ok)

	bound := tab.Dataset()
	require.NotNil(t, bound)
	assert.Equal(t, []string{"time", "event"}, bound.ColumnNames())
	assert.False(t, tab.BoundAt().IsZero())
}

func TestTabSwitchCancelsPreviewKeepsDataset(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()

	surv := b.OpenPreview(analysis.KindSurvival, sampleDataset(t), "first")
	b.Preview.ConfirmSelection()
	require.NotNil(t, surv.Dataset())

	b.OpenPreview(analysis.KindSurvival, sampleDataset(t), "second")
	require.True(t, b.Preview.Active())

	_, err := a.Activate(b.ID, analysis.KindROC)
	require.NoError(t, err)
	assert.False(t, b.Preview.Active())
	assert.Equal(t, 3, surv.Dataset().RowCount())

	roc, ok := b.Tab(analysis.KindROC)
	require.True(t, ok)
	assert.Nil(t, roc.Dataset())
}

func TestReactivatingSameTabKeepsPreview(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	b.OpenPreview(analysis.KindTTest, sampleDataset(t), "t")

	_, err := a.Activate(b.ID, analysis.KindTTest)
	require.NoError(t, err)
	assert.True(t, b.Preview.Active())
}

func TestEnsureDoesNotSwitchTabs(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	b.OpenPreview(analysis.KindSurvival, sampleDataset(t), "trial.csv")

	meta := b.Ensure(analysis.KindMeta)
	require.NotNil(t, meta)
	assert.Same(t, meta, b.Ensure(analysis.KindMeta))
	assert.Equal(t, analysis.KindSurvival, b.ActiveKind())
	assert.True(t, b.Preview.Active())
}

func TestConfirmPreviewReportsOpeningTab(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	surv := b.OpenPreview(analysis.KindSurvival, sampleDataset(t), "trial.csv")

	kind, ds, ok := b.ConfirmPreview()
	require.True(t, ok)
	assert.Equal(t, analysis.KindSurvival, kind)
	assert.Same(t, ds, surv.Dataset())

	_, _, ok = b.ConfirmPreview()
	assert.False(t, ok)
}

func TestOpenPreviewAfterSwitchStaysOpen(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	b.Activate(analysis.KindSurvival)
	ds := sampleDataset(t)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Activate(analysis.KindROC)
		}()
		go func() {
			defer wg.Done()
			b.OpenPreview(analysis.KindROC, ds, "roc.csv")
		}()
	}
	wg.Wait()

	assert.Equal(t, analysis.KindROC, b.ActiveKind())
	assert.True(t, b.Preview.Active())
}

func TestBindDatasetResetsFormAndResult(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	tab := b.Activate(analysis.KindTTest)

	tab.SetForm(json.RawMessage(`{"value_column":"score"}`))
	tab.SetResult(&analysis.TTestResult{N1: 3})
	require.NotNil(t, tab.Form())
	require.NotNil(t, tab.Result())

	tab.BindDataset(sampleDataset(t))
	assert.Nil(t, tab.Form())
	assert.Nil(t, tab.Result())
	assert.NotNil(t, tab.Task())
}

func TestDropRemovesSession(t *testing.T) {
	a := quietState(time.Hour)
	b := a.Create()
	b.OpenPreview(analysis.KindROC, sampleDataset(t), "x")

	a.Drop(b.ID)
	assert.Equal(t, 0, a.Len())
	assert.False(t, b.Preview.Active())
	_, err := a.Get(b.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	a.Drop(b.ID)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	a := quietState(time.Hour)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	idle := a.Create()
	busy := a.Create()

	clock = clock.Add(50 * time.Minute)
	_, err := a.Get(busy.ID)
	require.NoError(t, err)

	clock = clock.Add(20 * time.Minute)
	assert.Equal(t, 1, a.Sweep())

	_, err = a.Get(idle.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = a.Get(busy.ID)
	assert.NoError(t, err)
}
