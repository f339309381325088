package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

// Envelope is one decoded drop-folder object from the extraction pipeline.
// Exactly one of Invoice/Note is set, per Kind.
type Envelope struct {
	Key     string
	Kind    domain.RecordKind
	Invoice *domain.InvoiceRecord
	Note    *domain.DeliveryNoteRecord
}

// Source lists and decodes extracted records awaiting ingest, and archives
// them once handled.
type Source interface {
	Poll(ctx context.Context, max int) ([]Envelope, error)
	Archive(ctx context.Context, key string, failed bool) error
}

// envelope is the wire shape dropped by the extraction collaborator.
type envelope struct {
	Kind   domain.RecordKind `json:"kind"`
	Record json.RawMessage   `json:"record"`
}

type dropFolder struct {
	storage         port.ObjectStorage
	bucket          string
	incomingPrefix  string
	processedPrefix string
	failedPrefix    string
}

// NewDropFolder creates a Source over an S3 drop folder: the extraction
// pipeline writes JSON envelopes under incomingPrefix, handled objects move
// to processedPrefix or failedPrefix.
func NewDropFolder(storage port.ObjectStorage, bucket, incomingPrefix, processedPrefix, failedPrefix string) Source {
	return &dropFolder{
		storage:         storage,
		bucket:          bucket,
		incomingPrefix:  incomingPrefix,
		processedPrefix: processedPrefix,
		failedPrefix:    failedPrefix,
	}
}

func (d *dropFolder) Poll(ctx context.Context, max int) ([]Envelope, error) {
	keys, err := d.storage.List(ctx, d.bucket, d.incomingPrefix, max)
	if err != nil {
		return nil, fmt.Errorf("ingest.Poll list: %w", err)
	}

	envelopes := make([]Envelope, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		body, err := d.storage.Download(ctx, d.bucket, key)
		if err != nil {
			return nil, fmt.Errorf("ingest.Poll download %s: %w", key, err)
		}
		env, err := decode(key, body)
		if err != nil {
			// A malformed envelope is the object's problem, not the batch's:
			// archive it as failed and keep going.
			if archiveErr := d.Archive(ctx, key, true); archiveErr != nil {
				return nil, fmt.Errorf("ingest.Poll archiving malformed %s: %w", key, archiveErr)
			}
			continue
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}

func (d *dropFolder) Archive(ctx context.Context, key string, failed bool) error {
	prefix := d.processedPrefix
	if failed {
		prefix = d.failedPrefix
	}
	dest := prefix + path.Base(key)
	if err := d.storage.Move(ctx, d.bucket, key, dest); err != nil {
		return fmt.Errorf("ingest.Archive %s: %w", key, err)
	}
	return nil
}

func decode(key string, body []byte) (Envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope %s: %w", key, err)
	}
	switch env.Kind {
	case domain.RecordKindInvoice:
		var inv domain.InvoiceRecord
		if err := json.Unmarshal(env.Record, &inv); err != nil {
			return Envelope{}, fmt.Errorf("decoding invoice record %s: %w", key, err)
		}
		return Envelope{Key: key, Kind: env.Kind, Invoice: &inv}, nil
	case domain.RecordKindDeliveryNote:
		var note domain.DeliveryNoteRecord
		if err := json.Unmarshal(env.Record, &note); err != nil {
			return Envelope{}, fmt.Errorf("decoding delivery note record %s: %w", key, err)
		}
		return Envelope{Key: key, Kind: env.Kind, Note: &note}, nil
	default:
		return Envelope{}, fmt.Errorf("envelope %s has unknown kind %q", key, env.Kind)
	}
}
