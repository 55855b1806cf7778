package notifier

import (
	"context"

	"sjsage522/jobfeedworker/internal/crawler"
	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"
)

// Outcome is the result of one delivery attempt
type Outcome int

const (
	Delivered Outcome = iota
	Failed
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "failed"
}

// Notifier formats job records and hands them to a transport
type Notifier struct {
	transport      Transport
	feedName       string
	maxDescription int
	log            *logger.Logger
}

// NewNotifier creates a notifier
func NewNotifier(transport Transport, feedName string, maxDescription int, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		transport:      transport,
		feedName:       feedName,
		maxDescription: maxDescription,
		log:            log,
	}
}

// Notify delivers one record. A failure is logged and returned as a delivery
// error; it concerns this record only.
func (n *Notifier) Notify(ctx context.Context, rec crawler.JobRecord) (Outcome, error) {
	text := FormatMessage(n.feedName, rec, n.maxDescription)

	if err := n.transport.Send(ctx, text); err != nil {
		n.log.Error().
			Err(err).
			Str("link", rec.Link).
			Str("title", rec.Title).
			Msg("Failed to send job notification")
		return Failed, apperrors.NewDelivery(rec.Link, "send failed", err)
	}

	n.log.Info().
		Str("link", rec.Link).
		Str("title", rec.Title).
		Msg("Job notification sent")
	return Delivered, nil
}
