package ml

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memArtifacts struct {
	mu    sync.Mutex
	blobs map[string][]byte
	times map[string]time.Time
	clock *fakeClock
	saves int
}

func newMemArtifacts(clock *fakeClock) *memArtifacts {
	return &memArtifacts{
		blobs: make(map[string][]byte),
		times: make(map[string]time.Time),
		clock: clock,
	}
}

func artifactKey(productID, kind string) string { return productID + "/" + kind }

func (m *memArtifacts) Save(_ context.Context, productID, kind string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := artifactKey(productID, kind)
	m.blobs[key] = blob
	m.times[key] = m.clock.Now()
	m.saves++
	return nil
}

func (m *memArtifacts) Load(_ context.Context, productID, kind string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := artifactKey(productID, kind)
	blob, ok := m.blobs[key]
	if !ok {
		return nil, time.Time{}, repository.ErrArtifactNotFound
	}
	return blob, m.times[key], nil
}

func (m *memArtifacts) Delete(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, artifactKey(productID, artifactKindModel))
	delete(m.blobs, artifactKey(productID, artifactKindScaler))
	return nil
}

func (m *memArtifacts) drop(productID, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, artifactKey(productID, kind))
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(topic, productID string)       {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(productID string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordEvent(kind string)                         {}

func newStoreUnderTest(t *testing.T) (*ArtifactModelStore, *fakeClock, *memArtifacts) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	artifacts := newMemArtifacts(clock)
	trainer := NewTrainer(DefaultForestParams(), newTestLogger(t))
	store := NewArtifactModelStore(artifacts, trainer, clock, 7*24*time.Hour, newTestLogger(t), nopMetrics{})
	return store, clock, artifacts
}

func TestGetOrTrainTrainsAndPersists(t *testing.T) {
	store, _, artifacts := newStoreUnderTest(t)
	features, target := rampDataset(20)

	model, scaler, meta, err := store.GetOrTrain(context.Background(), "B0TEST", features, target)
	require.NoError(t, err)
	require.NotNil(t, model)
	require.NotNil(t, scaler)

	assert.True(t, meta.Retrained)
	assert.GreaterOrEqual(t, meta.Confidence, 0.0)
	assert.LessOrEqual(t, meta.Confidence, 1.0)
	assert.Equal(t, 2, artifacts.saves)
}

func TestGetOrTrainReusesFreshModel(t *testing.T) {
	store, clock, artifacts := newStoreUnderTest(t)
	features, target := rampDataset(20)
	ctx := context.Background()

	modelA, scalerA, metaA, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)
	trainedAt := metaA.TrainedAt

	clock.Advance(time.Hour)
	modelB, scalerB, metaB, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)

	assert.False(t, metaB.Retrained)
	assert.Equal(t, trainedAt, metaB.TrainedAt)
	assert.Equal(t, metaA.Confidence, metaB.Confidence)
	assert.Equal(t, 2, artifacts.saves)

	row := features[len(features)-1]
	assert.Equal(t, modelA.Predict(scalerA.Transform(row)), modelB.Predict(scalerB.Transform(row)))
}

func TestGetOrTrainRetrainsStaleModel(t *testing.T) {
	store, clock, artifacts := newStoreUnderTest(t)
	features, target := rampDataset(20)
	ctx := context.Background()

	_, _, _, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	_, _, meta, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)

	assert.True(t, meta.Retrained)
	assert.Equal(t, 4, artifacts.saves)
}

func TestGetOrTrainRetrainsWhenScalerMissing(t *testing.T) {
	store, clock, artifacts := newStoreUnderTest(t)
	features, target := rampDataset(20)
	ctx := context.Background()

	_, _, _, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)

	artifacts.drop("B0TEST", artifactKindScaler)
	clock.Advance(time.Hour)

	_, scaler, meta, err := store.GetOrTrain(ctx, "B0TEST", features, target)
	require.NoError(t, err)
	assert.True(t, meta.Retrained)
	assert.NotNil(t, scaler)
}
