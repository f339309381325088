package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dockmatch/internal/ingest"
)

// IngestWorkerConfig holds settings for the drop-folder poll worker.
type IngestWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// IngestWorker polls the drop folder for extracted records and feeds them
// into the ingest service.
type IngestWorker struct {
	source ingest.Source
	svc    IngestService
	cfg    IngestWorkerConfig
	log    *logrus.Entry
}

// NewIngestWorker creates a new IngestWorker.
func NewIngestWorker(source ingest.Source, svc IngestService, cfg IngestWorkerConfig, logger *logrus.Logger) *IngestWorker {
	return &IngestWorker{
		source: source,
		svc:    svc,
		cfg:    cfg,
		log:    logger.WithField("component", "ingest_worker"),
	}
}

// Start runs the polling loop until ctx is canceled.
func (w *IngestWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.WithFields(logrus.Fields{
		"poll":       w.cfg.PollInterval,
		"batch_size": w.cfg.BatchSize,
	}).Info("ingest worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("ingest worker shutting down")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain handles one poll cycle. Each envelope is stored and archived
// independently so a bad record never blocks the rest of the batch.
func (w *IngestWorker) drain(ctx context.Context) {
	envelopes, err := w.source.Poll(ctx, w.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.WithError(err).Error("drop folder poll failed")
		return
	}

	for _, env := range envelopes {
		if ctx.Err() != nil {
			return
		}
		if err := w.handle(ctx, env); err != nil {
			w.log.WithError(err).WithField("key", env.Key).Error("ingest failed")
			if err := w.source.Archive(ctx, env.Key, true); err != nil {
				w.log.WithError(err).WithField("key", env.Key).Error("archive to failed/ failed")
			}
			continue
		}
		if err := w.source.Archive(ctx, env.Key, false); err != nil {
			w.log.WithError(err).WithField("key", env.Key).Error("archive to processed/ failed")
		}
	}
}

func (w *IngestWorker) handle(ctx context.Context, env ingest.Envelope) error {
	switch {
	case env.Invoice != nil:
		_, err := w.svc.StoreInvoice(ctx, env.Invoice)
		return err
	default:
		_, err := w.svc.StoreDeliveryNote(ctx, env.Note)
		return err
	}
}
