package ingest

import (
	"context"
	"time"

	"hud/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	fetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hud_ingest_fetches_total",
		Help: "Number of source refreshes by outcome",
	}, []string{"kind", "outcome"})

	itemsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hud_ingest_items_stored_total",
		Help: "Number of new items written by the ingest worker",
	})
)

// Store is the database surface the worker needs.
type Store interface {
	GetSource(ctx context.Context, id string) (models.Source, error)
	UpdateSourceStatus(ctx context.Context, id, status string) error
	MarkSourcePolled(ctx context.Context, id string, at time.Time) error
	UpsertItems(ctx context.Context, items []models.Item) (int, error)
	ListStaleSources(ctx context.Context, cutoff time.Time) ([]models.Source, error)
	FinishJob(ctx context.Context, jobID, status, errMsg string) error
}

// Broadcaster pushes new-item events to connected clients.
type Broadcaster interface {
	BroadcastItem(event models.NewItemEvent)
}

// Worker consumes refresh jobs and periodically scans for stale sources.
// Failures are logged and never retried within a cycle; a failing scan backs
// off exponentially before the next attempt.
type Worker struct {
	store       Store
	fetcher     *Fetcher
	trigger     *Trigger
	jobs        chan models.RefreshJob
	scanEvery   time.Duration
	staleAfter  time.Duration
	broadcaster Broadcaster
}

func NewWorker(store Store, fetcher *Fetcher, trigger *Trigger, jobs chan models.RefreshJob, scanEvery, staleAfter time.Duration) *Worker {
	return &Worker{
		store:      store,
		fetcher:    fetcher,
		trigger:    trigger,
		jobs:       jobs,
		scanEvery:  scanEvery,
		staleAfter: staleAfter,
	}
}

// SetBroadcaster attaches an optional new-item broadcaster.
func (w *Worker) SetBroadcaster(b Broadcaster) {
	w.broadcaster = b
}

// Jobs exposes the queue for producers.
func (w *Worker) Jobs() chan models.RefreshJob {
	return w.jobs
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"scanEvery":  w.scanEvery,
		"staleAfter": w.staleAfter,
	}).Info("Ingest worker started")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = w.scanEvery
	bo.MaxElapsedTime = 0 // Never stop retrying

	timer := time.NewTimer(0) // Scan immediately on startup
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Ingest worker stopped")
			return

		case <-timer.C:
			if err := w.scan(ctx); err != nil {
				wait := bo.NextBackOff()
				log.WithFields(log.Fields{
					"error": err,
					"retry": wait,
				}).Error("Stale source scan failed")
				timer.Reset(wait)
				continue
			}
			bo.Reset()
			timer.Reset(w.scanEvery)

		case job := <-w.jobs:
			w.handle(ctx, job)
		}
	}
}

// scan enqueues refresh jobs for every stale RSS source.
func (w *Worker) scan(ctx context.Context) error {
	sources, err := w.store.ListStaleSources(ctx, time.Now().Add(-w.staleAfter))
	if err != nil {
		return err
	}

	for _, src := range sources {
		select {
		case w.jobs <- models.RefreshJob{SourceID: src.ID, Kind: src.Kind, Reason: "scan"}:
		default:
			log.WithFields(log.Fields{
				"source": src.ID,
			}).Warn("Refresh queue full during scan")
			return nil
		}
	}

	if len(sources) > 0 {
		log.WithFields(log.Fields{
			"count": len(sources),
		}).Info("Enqueued stale sources")
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, job models.RefreshJob) {
	src, err := w.store.GetSource(ctx, job.SourceID)
	if err != nil {
		log.WithFields(log.Fields{
			"source": job.SourceID,
			"error":  err,
		}).Warn("Refresh job for unknown source")
		w.finishJob(ctx, job, "failed", "source not found")
		return
	}

	if src.Kind != models.KindRSS {
		w.forward(ctx, job, src)
		return
	}

	if err := w.store.UpdateSourceStatus(ctx, src.ID, models.StatusFetching); err != nil {
		log.WithFields(log.Fields{"source": src.ID, "error": err}).Error("Could not mark source fetching")
	}

	items, err := w.fetcher.Fetch(ctx, src)
	if err != nil {
		fetchResults.WithLabelValues(src.Kind, "error").Inc()
		log.WithFields(log.Fields{
			"source": src.ID,
			"url":    src.URL,
			"error":  err,
		}).Error("Feed fetch failed")
		if err := w.store.UpdateSourceStatus(ctx, src.ID, models.StatusError); err != nil {
			log.WithFields(log.Fields{"source": src.ID, "error": err}).Error("Could not mark source errored")
		}
		w.finishJob(ctx, job, "failed", err.Error())
		return
	}

	created, err := w.store.UpsertItems(ctx, items)
	if err != nil {
		fetchResults.WithLabelValues(src.Kind, "error").Inc()
		log.WithFields(log.Fields{
			"source": src.ID,
			"error":  err,
		}).Error("Could not store fetched items")
		if err := w.store.UpdateSourceStatus(ctx, src.ID, models.StatusError); err != nil {
			log.WithFields(log.Fields{"source": src.ID, "error": err}).Error("Could not mark source errored")
		}
		w.finishJob(ctx, job, "failed", err.Error())
		return
	}

	if err := w.store.MarkSourcePolled(ctx, src.ID, time.Now()); err != nil {
		log.WithFields(log.Fields{"source": src.ID, "error": err}).Error("Could not mark source polled")
	}

	fetchResults.WithLabelValues(src.Kind, "ok").Inc()
	itemsStored.Add(float64(created))
	log.WithFields(log.Fields{
		"source":  src.ID,
		"fetched": len(items),
		"new":     created,
	}).Info("Refreshed source")

	if w.broadcaster != nil && created > 0 {
		for _, item := range items {
			w.broadcaster.BroadcastItem(models.NewItemEvent{
				SourceID:    src.ID,
				SourceName:  src.DisplayName,
				Title:       item.Title,
				URL:         item.URL,
				PublishedAt: item.PublishedAt,
			})
		}
	}

	w.finishJob(ctx, job, "done", "")
}

// forward hands a non-RSS source to the external fetch function.
func (w *Worker) forward(ctx context.Context, job models.RefreshJob, src models.Source) {
	if !w.trigger.Configured() {
		log.WithFields(log.Fields{
			"source": src.ID,
			"kind":   src.Kind,
		}).Warn("No external fetcher configured, dropping job")
		w.finishJob(ctx, job, "failed", "no external fetcher configured")
		return
	}

	if err := w.trigger.Fire(ctx, src.ID, src.Kind); err != nil {
		fetchResults.WithLabelValues(src.Kind, "error").Inc()
		log.WithFields(log.Fields{
			"source": src.ID,
			"error":  err,
		}).Warn("External fetch trigger failed")
		w.finishJob(ctx, job, "failed", err.Error())
		return
	}

	fetchResults.WithLabelValues(src.Kind, "ok").Inc()
	w.finishJob(ctx, job, "done", "")
}

func (w *Worker) finishJob(ctx context.Context, job models.RefreshJob, status, errMsg string) {
	if job.JobID == "" {
		return
	}
	if err := w.store.FinishJob(ctx, job.JobID, status, errMsg); err != nil {
		log.WithFields(log.Fields{
			"job":   job.JobID,
			"error": err,
		}).Warn("Could not record job outcome")
	}
}
