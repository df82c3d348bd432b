// Package services implements the server-side account and record logic
// behind the gRPC handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/hub"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/records"
	"github.com/google/uuid"
)

// ErrForbidden is returned when a user record is pushed under another id.
var ErrForbidden = errors.New("forbidden")

type ProfileService struct {
	accounts accounts.Repository
	records  records.Repository
	hub      *hub.Hub
	metrics  *metrics.Metrics
	log      logging.Logger
	now      func() time.Time
}

func NewProfileService(a accounts.Repository, r records.Repository, h *hub.Hub, m *metrics.Metrics, l logging.Logger) *ProfileService {
	return &ProfileService{
		accounts: a,
		records:  r,
		hub:      h,
		metrics:  m,
		log:      l.With("module", "profile_service"),
		now:      time.Now,
	}
}

// WithClock replaces the clock used to stamp last_mod.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// Join creates an account for auth. A second Join with the same token
// returns common.ErrorAlreadyExists.
func (s *ProfileService) Join(ctx context.Context, auth string) (*models.Account, error) {
	if auth == "" {
		return nil, common.ErrorUnauthorized
	}

	acc, err := s.accounts.Create(ctx, &models.Account{ID: uuid.NewString(), Auth: auth})
	if err != nil {
		return nil, err
	}

	s.metrics.Joins.Inc()
	s.log.Info(ctx, "account created", "id", acc.ID)
	return acc, nil
}

// Authenticate resolves an auth token to its account.
func (s *ProfileService) Authenticate(ctx context.Context, auth string) (*models.Account, error) {
	if auth == "" {
		s.metrics.AuthFailures.Inc()
		return nil, common.ErrorUnauthorized
	}

	acc, err := s.accounts.GetByAuth(ctx, auth)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthFailures.Inc()
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return acc, nil
}

// UserRecord returns the account's stored user record, or a bare record
// carrying only the id when none was pushed yet.
func (s *ProfileService) UserRecord(ctx context.Context, acc *models.Account) (models.Record, error) {
	rec, err := s.records.Get(ctx, acc.ID, common.UserRecordType, acc.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Record{UserID: acc.ID, Type: common.UserRecordType, ID: acc.ID}, nil
		}
		return models.Record{}, err
	}
	return *rec, nil
}

// Push stores rec for acc with a fresh last_mod and broadcasts it to every
// subscription of the account. The user record is keyed by the account id.
func (s *ProfileService) Push(ctx context.Context, acc *models.Account, rec models.Record) (models.Record, error) {
	if rec.Type == "" {
		return models.Record{}, common.ErrorInvalidRecord
	}
	if rec.Type == common.UserRecordType {
		if rec.ID == "" {
			rec.ID = acc.ID
		}
		if rec.ID != acc.ID {
			return models.Record{}, ErrForbidden
		}
	}
	if rec.ID == "" {
		return models.Record{}, common.ErrorInvalidRecord
	}

	rec.UserID = acc.ID
	rec.LastMod = s.now().UnixMilli()
	rec.Deleted = false

	if err := s.records.Upsert(ctx, rec); err != nil {
		return models.Record{}, fmt.Errorf("push: %w", err)
	}

	s.metrics.Pushes.WithLabelValues(rec.Type).Inc()
	s.broadcast(ctx, rec)
	return rec, nil
}

// Delete removes a record and broadcasts a tombstone for it.
func (s *ProfileService) Delete(ctx context.Context, acc *models.Account, recordType, id string) error {
	if recordType == "" || id == "" {
		return common.ErrorInvalidRecord
	}
	if err := s.records.Delete(ctx, acc.ID, recordType, id); err != nil {
		return err
	}

	s.metrics.Deletes.WithLabelValues(recordType).Inc()
	s.broadcast(ctx, models.Record{
		UserID:  acc.ID,
		Type:    recordType,
		ID:      id,
		LastMod: s.now().UnixMilli(),
		Deleted: true,
	})
	return nil
}

// Subscribe opens a broadcast subscription for acc. When since > 0 the
// records changed after since are returned for replay.
func (s *ProfileService) Subscribe(ctx context.Context, acc *models.Account, since int64) (*hub.Subscription, []models.Record, error) {
	var backlog []models.Record
	if since > 0 {
		var err error
		if backlog, err = s.records.ListSince(ctx, acc.ID, since); err != nil {
			return nil, nil, fmt.Errorf("subscribe: %w", err)
		}
	}

	sub := s.hub.Subscribe(acc.ID)
	s.metrics.Subscribers.Inc()
	s.log.Debug(ctx, "subscribed", "id", acc.ID, "open", s.hub.Count(acc.ID))
	return sub, backlog, nil
}

// Unsubscribe closes sub. Repeated calls leave the subscriber gauge alone.
func (s *ProfileService) Unsubscribe(sub *hub.Subscription) {
	if sub.Close() {
		s.metrics.Subscribers.Dec()
	}
}

func (s *ProfileService) broadcast(ctx context.Context, rec models.Record) {
	delivered, dropped := s.hub.Publish(rec)
	s.metrics.Broadcasts.Add(float64(delivered))
	if dropped > 0 {
		s.metrics.BroadcastDrops.Add(float64(dropped))
		s.log.Warn(ctx, "broadcast dropped", "user", rec.UserID, "type", rec.Type, "id", rec.ID, "dropped", dropped)
	}
}
