package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/jobqueue"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/mail"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/objectstore"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// QueueNotifier turns issued receipts into receipt_delivery jobs
type QueueNotifier struct {
	queue *jobqueue.Queue
}

func NewQueueNotifier(queue *jobqueue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) Notify(ctx context.Context, r *models.Receipt) error {
	_ = ctx
	payload := jobqueue.ReceiptDeliveryPayload{ReceiptID: r.ID, PaymentID: r.PaymentID}
	_, err := n.queue.EnqueueJob(jobqueue.JobTypeReceiptDelivery, payload.ToMap())
	return err
}

// Deliverer renders, stores and emails receipts
type Deliverer struct {
	issuer *Issuer
	repos  *repository.Repositories
	mailer mail.Sender
	store  objectstore.Store
}

// NewDeliverer builds the receipt_delivery job handler. mailer and store may be nil.
func NewDeliverer(issuer *Issuer, repos *repository.Repositories, mailer mail.Sender, store objectstore.Store) *Deliverer {
	return &Deliverer{issuer: issuer, repos: repos, mailer: mailer, store: store}
}

// HandleJob is registered on the queue for JobTypeReceiptDelivery
func (d *Deliverer) HandleJob(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.ReceiptDeliveryPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid receipt delivery payload: %w", err)
	}
	return d.Deliver(ctx, payload.ReceiptID)
}

// Deliver is idempotent: a receipt whose email went out is left alone.
func (d *Deliverer) Deliver(ctx context.Context, receiptID uint) error {
	r, err := d.repos.Receipt.GetByID(receiptID)
	if err != nil {
		return fmt.Errorf("load receipt %d: %w", receiptID, err)
	}
	if r.EmailSent {
		return nil
	}

	data, err := d.issuer.DataFor(r)
	if err != nil {
		return err
	}
	pdf, err := Render(*data)
	if err != nil {
		return err
	}

	if d.store != nil && r.DocumentURL == nil {
		key := fmt.Sprintf("receipts/%s.pdf", r.ReceiptNumber)
		url, perr := d.store.Put(ctx, key, pdf, "application/pdf")
		if perr != nil {
			return fmt.Errorf("store receipt %s: %w", r.ReceiptNumber, perr)
		}
		if err := d.repos.Receipt.SetDocumentURL(r.ID, url); err != nil {
			return err
		}
	}

	if d.mailer == nil {
		log.Warnf("[Receipts] Mail is not configured, %s was not emailed", r.ReceiptNumber)
		return nil
	}

	var flatID uint
	if r.Payment != nil {
		flatID = r.Payment.FlatID
	}
	occupant, err := d.repos.User.GetByFlatID(flatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Receipts] Flat %s is vacant, %s was not emailed", data.FlatNumber, r.ReceiptNumber)
		return nil
	}
	if err != nil {
		return err
	}

	label := models.MonthLabel(data.Month, data.Year)
	html, err := mail.Render("receipt", mail.ReceiptEmail{
		SocietyName:   data.SocietyName,
		OwnerName:     occupant.Name,
		ReceiptNumber: r.ReceiptNumber,
		FlatNumber:    data.FlatNumber,
		Month:         label,
		Amount:        data.Amount.StringFixed(2),
		PaidAt:        data.PaidAt.Format("02/01/2006"),
		TransactionID: data.TransactionID,
	})
	if err != nil {
		return fmt.Errorf("render receipt email: %w", err)
	}

	err = d.mailer.Send(ctx, mail.Message{
		To:      occupant.Email,
		Subject: fmt.Sprintf("Payment Receipt - %s - Flat %s", label, data.FlatNumber),
		HTML:    html,
		Attachments: []mail.Attachment{
			{Filename: Filename(*data), ContentType: "application/pdf", Data: pdf},
		},
	})
	if err != nil {
		return fmt.Errorf("email receipt %s: %w", r.ReceiptNumber, err)
	}
	if err := d.repos.Receipt.MarkEmailSent(r.ID); err != nil {
		return err
	}
	log.Infof("[Receipts] Emailed %s to %s", r.ReceiptNumber, occupant.Email)
	return nil
}

// RedeliveryTask requeues receipts still unsent after settle and younger than maxAge.
func RedeliveryTask(repos *repository.Repositories, notifier Notifier, interval, settle, maxAge time.Duration) jobqueue.PeriodicTask {
	return jobqueue.PeriodicTask{
		Name:     "receipt-redelivery",
		Interval: interval,
		Run: func(ctx context.Context) error {
			now := time.Now()
			receipts, err := repos.Receipt.ListUndelivered(now.Add(-maxAge), now.Add(-settle), 100)
			if err != nil {
				return err
			}
			for idx := range receipts {
				if err := notifier.Notify(ctx, &receipts[idx]); err != nil {
					return err
				}
			}
			if len(receipts) > 0 {
				log.Infof("[Receipts] Requeued %d undelivered receipts", len(receipts))
			}
			return nil
		},
	}
}
