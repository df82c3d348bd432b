package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/ignore"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
)

// Pusher sends local records to the API. Every record is put on the Remote
// ignore list before the call, so the broadcast of our own write is dropped
// when it comes back; a failed call takes the entry off again.
type Pusher struct {
	client client.Client
	ignore *ignore.List
	ttl    time.Duration
}

func NewPusher(c client.Client, l *ignore.List, ttl time.Duration) *Pusher {
	return &Pusher{client: c, ignore: l, ttl: ttl}
}

func (p *Pusher) Push(ctx context.Context, rec models.SyncRecord) (*models.SyncRecord, error) {
	p.ignore.Add(ignore.Remote, p.ttl, rec.ID, rec.CID)

	res, err := p.client.PushRecord(ctx, rec)
	if err != nil {
		p.ignore.Remove(ignore.Remote, rec.ID, rec.CID)
		return nil, err
	}
	return res, nil
}

func (p *Pusher) Delete(ctx context.Context, recordType, id string) error {
	p.ignore.Add(ignore.Remote, p.ttl, id)

	if err := p.client.DeleteRecord(ctx, recordType, id); err != nil {
		p.ignore.Remove(ignore.Remote, id)
		return err
	}
	return nil
}
