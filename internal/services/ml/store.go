package ml

import (
	"context"
	"errors"
	"sync"
	"time"

	"PricePulse/internal/domain/repository"
	"PricePulse/internal/domain/service"
	"PricePulse/pkg/logger"
)

const (
	artifactKindModel  = "model"
	artifactKindScaler = "scaler"
)

// ArtifactModelStore serves per-product models from an artifact store,
// retraining when the stored copy is older than maxAge or unreadable.
// A per-product lock keeps concurrent requests for the same product
// from training twice.
type ArtifactModelStore struct {
	artifacts repository.ArtifactStore
	trainer   service.Trainer
	clock     repository.Clock
	maxAge    time.Duration
	log       *logger.Logger
	metrics   repository.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ service.ModelStore = (*ArtifactModelStore)(nil)

func NewArtifactModelStore(
	artifacts repository.ArtifactStore,
	trainer service.Trainer,
	clock repository.Clock,
	maxAge time.Duration,
	log *logger.Logger,
	metrics repository.Metrics,
) *ArtifactModelStore {
	return &ArtifactModelStore{
		artifacts: artifacts,
		trainer:   trainer,
		clock:     clock,
		maxAge:    maxAge,
		log:       log,
		metrics:   metrics,
		locks:     make(map[string]*sync.Mutex),
	}
}

// GetOrTrain returns a usable model and scaler for the product. Stored
// artifacts younger than maxAge win; anything else triggers a retrain
// on the supplied data. Persistence failures after a retrain are logged
// and swallowed, the fresh in-memory model is still returned.
func (s *ArtifactModelStore) GetOrTrain(ctx context.Context, productID string, features [][]float64, target []float64) (service.Regressor, service.Scaler, service.ModelMeta, error) {
	lock := s.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	if model, scaler, meta, ok := s.loadFresh(ctx, productID); ok {
		s.metrics.RecordEvent("model_reused")
		return model, scaler, meta, nil
	}

	scaler, err := FitScaler(features)
	if err != nil {
		return nil, nil, service.ModelMeta{}, err
	}
	model, confidence, err := s.trainer.Train(scaler.TransformMatrix(features), target)
	if err != nil {
		return nil, nil, service.ModelMeta{}, err
	}
	s.metrics.RecordEvent("model_trained")

	s.persist(ctx, productID, model, scaler, confidence)

	meta := service.ModelMeta{
		TrainedAt:  s.clock.Now(),
		Confidence: confidence,
		Retrained:  true,
	}
	return model, scaler, meta, nil
}

// loadFresh tries the stored artifact pair. Any miss, decode failure or
// stale timestamp means the caller retrains.
func (s *ArtifactModelStore) loadFresh(ctx context.Context, productID string) (service.Regressor, service.Scaler, service.ModelMeta, bool) {
	blob, trainedAt, err := s.artifacts.Load(ctx, productID, artifactKindModel)
	if err != nil {
		if !errors.Is(err, repository.ErrArtifactNotFound) {
			s.log.Warn("stored model unreadable, retraining",
				logger.String("product_id", productID),
				logger.Error(err))
		}
		return nil, nil, service.ModelMeta{}, false
	}
	if s.clock.Now().Sub(trainedAt) >= s.maxAge {
		return nil, nil, service.ModelMeta{}, false
	}

	model, confidence, err := decodeModel(blob)
	if err != nil {
		s.log.Warn("stored model corrupt, retraining",
			logger.String("product_id", productID),
			logger.Error(err))
		return nil, nil, service.ModelMeta{}, false
	}

	scalerBlob, _, err := s.artifacts.Load(ctx, productID, artifactKindScaler)
	if err != nil {
		s.log.Warn("stored scaler missing, retraining",
			logger.String("product_id", productID),
			logger.Error(err))
		return nil, nil, service.ModelMeta{}, false
	}
	scaler, err := decodeScaler(scalerBlob)
	if err != nil {
		s.log.Warn("stored scaler corrupt, retraining",
			logger.String("product_id", productID),
			logger.Error(err))
		return nil, nil, service.ModelMeta{}, false
	}

	meta := service.ModelMeta{
		TrainedAt:  trainedAt,
		Confidence: confidence,
		Retrained:  false,
	}
	return model, scaler, meta, true
}

func (s *ArtifactModelStore) persist(ctx context.Context, productID string, model service.Regressor, scaler *StandardScaler, confidence float64) {
	modelBlob, err := encodeModel(model, confidence)
	if err != nil {
		s.log.Warn("model not persisted",
			logger.String("product_id", productID),
			logger.Error(err))
		return
	}
	if err := s.artifacts.Save(ctx, productID, artifactKindModel, modelBlob); err != nil {
		s.log.Warn("model not persisted",
			logger.String("product_id", productID),
			logger.Error(err))
		return
	}

	scalerBlob, err := encodeScaler(scaler)
	if err != nil {
		s.log.Warn("scaler not persisted",
			logger.String("product_id", productID),
			logger.Error(err))
		return
	}
	if err := s.artifacts.Save(ctx, productID, artifactKindScaler, scalerBlob); err != nil {
		s.log.Warn("scaler not persisted",
			logger.String("product_id", productID),
			logger.Error(err))
	}
}

func (s *ArtifactModelStore) productLock(productID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[productID] = lock
	}
	return lock
}
