package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pangkas-pos/pangkas/internal/jobs"
	"github.com/pangkas-pos/pangkas/internal/payroll"
	"github.com/pangkas-pos/pangkas/internal/staff"
)

// SlipNotifyJob delivers salary slip notifications to barbers.
type SlipNotifyJob struct {
	barbers *staff.Repository
	mailer  EmailSender
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewSlipNotifyJob constructs the notification job. metrics may be nil.
func NewSlipNotifyJob(barbers *staff.Repository, mailer EmailSender, metrics *jobmetrics.Metrics, logger *slog.Logger) *SlipNotifyJob {
	return &SlipNotifyJob{barbers: barbers, mailer: mailer, metrics: metrics, logger: logger}
}

// HandleCreated processes TaskSlipCreated tasks.
func (j *SlipNotifyJob) HandleCreated(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskSlipCreated)
	return tracker.End(j.notify(ctx, t, "Slip Gaji Tersedia", slipCreatedBody))
}

// HandlePaid processes TaskSlipPaid tasks.
func (j *SlipNotifyJob) HandlePaid(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskSlipPaid)
	return tracker.End(j.notify(ctx, t, "Pembayaran Gaji", slipPaidBody))
}

func (j *SlipNotifyJob) notify(ctx context.Context, t *asynq.Task, subjectPrefix string, body func(name string, p SlipNotificationPayload) string) error {
	var payload SlipNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	barber, err := j.barbers.Get(ctx, payload.BarberID)
	if err != nil {
		// barber mungkin sudah dihapus, jangan retry
		j.logger.Warn("slip notification dropped",
			slog.Int64("slip_id", payload.SlipID),
			slog.Any("error", err))
		return asynq.SkipRetry
	}
	if barber.Email == "" {
		j.logger.Info("slip notification skipped, no email",
			slog.Int64("barber_id", barber.ID))
		return nil
	}

	subject := fmt.Sprintf("%s - %s", subjectPrefix, payload.PeriodName)
	if err := j.mailer.Send(ctx, barber.Email, subject, body(barber.Name, payload)); err != nil {
		return err
	}
	j.logger.Info("slip notification sent",
		slog.Int64("slip_id", payload.SlipID),
		slog.String("to", barber.Email))
	return nil
}

func slipCreatedBody(name string, p SlipNotificationPayload) string {
	return fmt.Sprintf(
		"Halo %s,\n\nSlip gaji Anda untuk periode %s sudah tersedia.\nGaji bersih: %s.\n\nSilakan cek aplikasi untuk detailnya.",
		name, p.PeriodName, payroll.FormatRupiah(p.NetSalary))
}

func slipPaidBody(name string, p SlipNotificationPayload) string {
	return fmt.Sprintf(
		"Halo %s,\n\nGaji Anda untuk periode %s sebesar %s telah dibayarkan.\n\nTerima kasih.",
		name, p.PeriodName, payroll.FormatRupiah(p.NetSalary))
}
