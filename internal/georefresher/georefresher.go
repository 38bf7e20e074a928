// Package georefresher re-resolves contact coordinates in the
// background. When a contact is saved with defaulted coordinates
// (geocoder down or out of answers), a refresh job is queued here;
// batches are retried on a ticker and storage is updated whenever the
// provider recovers.
package georefresher

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/agenda/internal/enrichment"
	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

// Job identifies one contact whose coordinates should be re-resolved
// from the given free-text address.
type Job struct {
	UserID    string
	ContactID string
	Address   string
}

type resolver interface {
	ResolveCoordinates(ctx context.Context, address string) enrichment.Resolution
}

type contactsUpdater interface {
	GetContacts(ctx context.Context, userID string) ([]models.Contact, error)
	UpdateContact(ctx context.Context, userID string, contact *models.Contact) error
}

// GeoRefresher is a single background worker over a buffered job
// queue. Stop it by cancelling the context passed to Run.
type GeoRefresher struct {
	queue                    chan *Job
	db                       contactsUpdater
	pipeline                 resolver
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	db contactsUpdater,
	pipeline resolver,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *GeoRefresher {
	return &GeoRefresher{
		queue:                    make(chan *Job, channelCapacity),
		db:                       db,
		pipeline:                 pipeline,
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

// ListenErrors forwards worker errors to the callback on a separate
// goroutine.
func (r *GeoRefresher) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

// EnqueueJob queues a refresh without blocking; when the queue is full
// the job is dropped — the contact keeps its default coordinates,
// which is the documented degrade policy anyway.
func (r *GeoRefresher) EnqueueJob(job *Job) {
	select {
	case r.queue <- job:
	default:
		logger.Log.Warnw("coordinate refresh queue full, dropping job",
			"contactID", job.ContactID)
	}
}

func (r *GeoRefresher) processJob(ctx context.Context, job *Job) error {
	resolution := r.pipeline.ResolveCoordinates(ctx, job.Address)
	if resolution.Defaulted {
		// Provider still down; the job is spent, a later save may requeue it.
		return nil
	}

	contacts, err := r.db.GetContacts(ctx, job.UserID)
	if err != nil {
		return err
	}
	for i := range contacts {
		if contacts[i].ID == job.ContactID {
			contacts[i].Location = resolution.Location

			return r.db.UpdateContact(ctx, job.UserID, &contacts[i])
		}
	}

	// Contact deleted in the meantime; nothing to refresh.
	return nil
}

// Run starts the worker goroutine. Queued jobs are gathered and
// processed in batches once per tick until the context is cancelled.
func (r *GeoRefresher) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var jobs []*Job

		for {
			select {
			case <-ctx.Done():
				return
			case job := <-r.queue:
				jobs = append(jobs, job)
			case <-ticker.C:
				if len(jobs) == 0 {
					continue
				}
				refreshed := 0
				for _, job := range jobs {
					if err := r.processJob(ctx, job); err != nil {
						r.errorChannel <- err
						continue
					}
					refreshed++
				}
				logger.Log.Infof("processed refresh of %d contact coordinates", refreshed)
				jobs = nil
			}
		}
	}()
}
