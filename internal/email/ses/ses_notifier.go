package ses

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	opsAddress  string
}

// NewSESNotifier creates a new SES-backed Notifier delivering reconciliation
// alerts to the venue ops address.
func NewSESNotifier(region, fromAddress, fromName, opsAddress string) (port.Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		opsAddress:  opsAddress,
	}, nil
}

func (s *sesNotifier) SendConflictAlert(ctx context.Context, pair *domain.MatchingPair) error {
	subject := fmt.Sprintf("Reconciliation conflict on invoice %s", pair.InvoiceID)

	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s has candidates that scored too close to separate automatically.\n\n", pair.InvoiceID)
	for i, c := range pair.Candidates {
		fmt.Fprintf(&b, "%d. note %s  confidence %.2f\n", i+1, c.DeliveryNoteID, c.Confidence)
		if i == 4 {
			break
		}
	}
	b.WriteString("\nPlease confirm or reject the pairing in the dashboard.\n")

	return s.send(ctx, subject, b.String())
}

func (s *sesNotifier) SendBatchDigest(ctx context.Context, summary *domain.MatchingSummary) error {
	subject := fmt.Sprintf("Reconciliation digest for venue %s", summary.VenueID)

	body := fmt.Sprintf(
		"Reconciliation run complete.\n\nInvoices: %d\nMatched: %d\nPartial: %d\nUnmatched: %d\nConflict: %d\nAverage confidence: %.2f\n",
		summary.Totals.TotalInvoices, summary.Totals.Matched, summary.Totals.Partial,
		summary.Totals.Unmatched, summary.Totals.Conflict, summary.Totals.AvgConfidence,
	)
	return s.send(ctx, subject, body)
}

func (s *sesNotifier) send(ctx context.Context, subject, textBody string) error {
	if s.opsAddress == "" {
		return nil
	}
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.opsAddress},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending SES notification: %w", err)
	}
	return nil
}
