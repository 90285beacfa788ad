package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"reorder-service/config"
	"reorder-service/internal/broker"
	"reorder-service/internal/features"
	"reorder-service/internal/models"
	"reorder-service/internal/redisclient"
	"reorder-service/internal/store"
	"reorder-service/internal/trainer"
	"reorder-service/internal/util"

	"go.uber.org/zap"
)

// ErrUnknownPeriod means the requested target period is not a month name.
var ErrUnknownPeriod = errors.New("unknown target period name")

// ErrUntrainedModel means no model artifact exists yet.
var ErrUntrainedModel = trainer.ErrNoArtifact

// ForecastService owns model training and recommendation generation. It only
// reads the store and the artifact during recommendation, so any number of
// requests may run concurrently against one artifact snapshot.
type ForecastService struct {
	store    *store.Store
	trainer  *trainer.Trainer
	modelDir string
	fcfg     config.ForecastConfig
	events   *broker.EventPublisher
	cache    *redisclient.Client
	logger   *zap.Logger
}

// NewForecastService creates a new forecast service. events and cache may be
// nil.
func NewForecastService(
	st *store.Store,
	tr *trainer.Trainer,
	modelDir string,
	fcfg config.ForecastConfig,
	events *broker.EventPublisher,
	cache *redisclient.Client,
) *ForecastService {
	return &ForecastService{
		store:    st,
		trainer:  tr,
		modelDir: modelDir,
		fcfg:     fcfg,
		events:   events,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// Train runs one training pass over all stored history and replaces the
// model artifact.
func (s *ForecastService) Train(ctx context.Context) (*trainer.Result, error) {
	result, err := s.trainer.Train(ctx)
	if err != nil {
		return nil, err
	}

	s.events.PublishModelTrained(ctx, result.RunID, result.Samples, result.Features, result.MAE, result.R2)
	if s.cache != nil {
		if err := s.cache.BumpDataVersion(ctx); err != nil {
			s.logger.Warn("Failed to bump cache data version", zap.Error(err))
		}
	}
	return result, nil
}

// RecommendRequest is a recommendation request from the inventory
// application.
type RecommendRequest struct {
	TargetPeriod string         `json:"target_period" binding:"required"`
	CurrentStock map[string]int `json:"current_stock"`
	SafetyBuffer *float64       `json:"safety_buffer,omitempty"`
}

// RecommendResponse is the ranked recommendation batch.
type RecommendResponse struct {
	TargetPeriod    string                  `json:"target_period"`
	SafetyBuffer    float64                 `json:"safety_buffer"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// Recommend predicts next-period demand for every medication known to the
// store and sizes a buffered order against the caller's stock snapshot.
func (s *ForecastService) Recommend(ctx context.Context, req *RecommendRequest) (*RecommendResponse, error) {
	ctx, span := util.StartSpan(ctx, "ForecastService.Recommend")
	defer span.End()

	periodNum, err := models.ParseMonth(req.TargetPeriod)
	if err != nil {
		util.RecommendationRequestsTotal.WithLabelValues("unknown_period").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnknownPeriod, err)
	}
	targetPeriod := models.CanonicalMonth(req.TargetPeriod)

	safetyBuffer := s.fcfg.SafetyBuffer
	if req.SafetyBuffer != nil {
		safetyBuffer = *req.SafetyBuffer
	}

	digest := requestDigest(targetPeriod, safetyBuffer, req.CurrentStock)
	if cached := s.cachedResponse(ctx, digest); cached != nil {
		util.RecommendationRequestsTotal.WithLabelValues("ok").Inc()
		return cached, nil
	}

	artifact, err := trainer.LoadArtifact(s.modelDir)
	if err != nil {
		if errors.Is(err, trainer.ErrNoArtifact) {
			util.RecommendationRequestsTotal.WithLabelValues("untrained").Inc()
		}
		return nil, err
	}

	medications, err := s.store.Medications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate medications: %w", err)
	}
	if len(medications) == 0 {
		return nil, trainer.ErrEmptyHistory
	}

	now := time.Now()
	recommendations := make([]models.Recommendation, 0, len(medications))

	for _, med := range medications {
		row, err := s.inferenceRow(ctx, med, periodNum, now.Year())
		if err != nil {
			return nil, err
		}

		predicted := artifact.Model.Predict(features.AlignRow(row.Named(), artifact.Columns))
		if predicted < 0 {
			predicted = 0
		}

		stock := req.CurrentStock[med]
		buffered := predicted * (1 + safetyBuffer)
		orderQty := int(math.Ceil(buffered - float64(stock)))
		if orderQty < 0 {
			orderQty = 0
		}

		warnings := []string{}
		if w := s.expiryWarning(ctx, med, now); w != "" {
			warnings = append(warnings, w)
		}
		if float64(stock) > buffered*(1+s.fcfg.OverstockMargin) {
			warnings = append(warnings,
				fmt.Sprintf("overstock_risk (stock %d exceeds buffered demand %.0f)", stock, buffered))
		}

		recommendations = append(recommendations, models.Recommendation{
			Medication:       med,
			PredictedDemand:  math.Round(predicted*10) / 10,
			RecommendedOrder: orderQty,
			CurrentStock:     stock,
			SafetyBuffer:     safetyBuffer,
			Warnings:         warnings,
		})
	}

	// Stable sort keeps medication enumeration order on ties.
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].RecommendedOrder > recommendations[j].RecommendedOrder
	})

	resp := &RecommendResponse{
		TargetPeriod:    targetPeriod,
		SafetyBuffer:    safetyBuffer,
		Recommendations: recommendations,
	}

	util.RecommendationRequestsTotal.WithLabelValues("ok").Inc()
	util.RecommendationsGeneratedTotal.Add(float64(len(recommendations)))
	s.events.PublishRecommendationsGenerated(ctx, targetPeriod, len(recommendations))
	s.storeResponse(ctx, digest, resp)

	return resp, nil
}

// inferenceRow rebuilds the training-time lag/rolling derivation from the
// medication's most recent history, substituting the target period number.
// A medication with no history falls back to the configured daily-consumption
// estimate; this is logged and never fatal.
func (s *ForecastService) inferenceRow(ctx context.Context, medication string, periodNum, year int) (features.RowValues, error) {
	history, err := s.store.RecentRecords(ctx, medication, 3)
	if err != nil {
		return features.RowValues{}, fmt.Errorf("failed to load history for %s: %w", medication, err)
	}

	row := features.RowValues{
		Medication:   medication,
		PeriodNumber: float64(periodNum),
	}

	if len(history) == 0 {
		estimate := s.fcfg.FallbackDailyUsage * float64(models.DaysInMonth(periodNum, year))
		row.Lag1Used = estimate
		row.Lag1Ordered = estimate
		row.RollingMean3Used = estimate
		row.AvgDailyConsumption = s.fcfg.FallbackDailyUsage

		s.logger.Warn("No history for medication, using fallback estimates",
			zap.String("medication", medication))
		util.MissingHistoryFallbacksTotal.Inc()
		return row, nil
	}

	latest := history[0]
	row.Lag1Used = float64(latest.QuantityUsed)
	row.Lag1Ordered = float64(latest.Quantity)
	row.AvgDailyConsumption = latest.AvgDailyConsumption

	var sum float64
	for _, rec := range history {
		sum += float64(rec.QuantityUsed)
	}
	row.RollingMean3Used = sum / float64(len(history))

	return row, nil
}

func (s *ForecastService) expiryWarning(ctx context.Context, medication string, now time.Time) string {
	expiration, err := s.store.LatestExpiration(ctx, medication)
	if err != nil || expiration == "" {
		return ""
	}
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return ""
	}

	daysLeft := int(exp.Sub(now).Hours() / 24)
	if daysLeft > 0 && daysLeft <= s.fcfg.ExpiryWarningDays {
		return fmt.Sprintf("expiry_risk (batch expires %s, ~%dd left)", expiration, daysLeft)
	}
	return ""
}

// requestDigest canonicalizes a request for cache lookup. Map keys marshal in
// sorted order, so equivalent stock snapshots share a digest.
func requestDigest(period string, buffer float64, stock map[string]int) string {
	payload, _ := json.Marshal(struct {
		Period string         `json:"period"`
		Buffer float64        `json:"buffer"`
		Stock  map[string]int `json:"stock"`
	}{period, buffer, stock})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *ForecastService) cachedResponse(ctx context.Context, digest string) *RecommendResponse {
	if s.cache == nil {
		return nil
	}
	body, err := s.cache.GetRecommendations(ctx, digest)
	if err != nil {
		s.logger.Warn("Recommendation cache lookup failed", zap.Error(err))
		return nil
	}
	if body == nil {
		util.RecommendationCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	var resp RecommendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}
	util.RecommendationCacheHitsTotal.WithLabelValues("hit").Inc()
	return &resp
}

func (s *ForecastService) storeResponse(ctx context.Context, digest string, resp *RecommendResponse) {
	if s.cache == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ttl := time.Duration(s.fcfg.RecommendationTTLSec) * time.Second
	if err := s.cache.SetRecommendations(ctx, digest, body, ttl); err != nil {
		s.logger.Warn("Failed to cache recommendations", zap.Error(err))
	}
}
