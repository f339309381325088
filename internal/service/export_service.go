package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/export"
	"dockmatch/internal/port"
)

// ExportService renders venue reconciliation reports. CSV streams to the
// caller; xlsx workbooks are archived on object storage and returned as a
// presigned URL.
type ExportService interface {
	WriteCSV(ctx context.Context, venueID uuid.UUID, w io.Writer) error
	ExportXLSX(ctx context.Context, venueID uuid.UUID) (string, error)
}

// ExportStorageConfig holds the archive location for generated reports.
type ExportStorageConfig struct {
	Bucket        string
	ReportPrefix  string
	PresignExpiry int64
	SheetName     string
}

type exportService struct {
	recon    ReconService
	invoices port.InvoiceRepository
	storage  port.ObjectStorage
	cfg      ExportStorageConfig
	log      *logrus.Entry
}

// NewExportService creates an ExportService.
func NewExportService(
	recon ReconService,
	invoices port.InvoiceRepository,
	storage port.ObjectStorage,
	cfg ExportStorageConfig,
	logger *logrus.Logger,
) ExportService {
	return &exportService{
		recon:    recon,
		invoices: invoices,
		storage:  storage,
		cfg:      cfg,
		log:      logger.WithField("component", "export"),
	}
}

func (s *exportService) rows(ctx context.Context, venueID uuid.UUID) ([]export.Row, error) {
	summary, err := s.recon.Summary(ctx, venueID)
	if err != nil {
		return nil, err
	}

	rows := make([]export.Row, 0, len(summary.Pairs))
	for _, pair := range summary.Pairs {
		inv, err := s.invoices.GetByID(ctx, pair.InvoiceID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, export.Row{Pair: pair, Invoice: inv})
	}
	return rows, nil
}

func (s *exportService) WriteCSV(ctx context.Context, venueID uuid.UUID, w io.Writer) error {
	rows, err := s.rows(ctx, venueID)
	if err != nil {
		return err
	}
	cw, err := export.NewCSVWriter(w)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.WriteRow(row); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func (s *exportService) ExportXLSX(ctx context.Context, venueID uuid.UUID) (string, error) {
	summary, err := s.recon.Summary(ctx, venueID)
	if err != nil {
		return "", err
	}
	rows, err := s.rows(ctx, venueID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, s.cfg.SheetName, summary, rows); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s/reconciliation-%s.xlsx",
		s.cfg.ReportPrefix, venueID, time.Now().UTC().Format("20060102-150405"))
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        &buf,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Size:        int64(buf.Len()),
	})
	if err != nil {
		return "", err
	}

	url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"venue_id": venueID, "key": key, "rows": len(rows)}).
		Info("xlsx report exported")
	return url, nil
}
