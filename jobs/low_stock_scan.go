package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	jobmetrics "github.com/pangkas-pos/pangkas/internal/jobs"
)

// StockLister lists products at or below their reorder level.
type StockLister interface {
	LowStock(ctx context.Context) ([]catalog.Product, error)
}

// LowStockScanJob runs the scheduled reorder check and mails the shop admin
// when products need restocking.
type LowStockScanJob struct {
	stock      StockLister
	mailer     EmailSender
	adminEmail string
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
}

// NewLowStockScanJob constructs the scan job. metrics may be nil.
func NewLowStockScanJob(stock StockLister, mailer EmailSender, adminEmail string, metrics *jobmetrics.Metrics, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{stock: stock, mailer: mailer, adminEmail: adminEmail, metrics: metrics, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track(TaskLowStockScan)
	return tracker.End(j.scan(ctx))
}

func (j *LowStockScanJob) scan(ctx context.Context) error {
	products, err := j.stock.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("jobs: low stock scan: %w", err)
	}
	if len(products) == 0 {
		j.logger.Info("low stock scan clean")
		return nil
	}

	j.logger.Warn("low stock detected", slog.Int("products", len(products)))
	if j.adminEmail == "" {
		return nil
	}
	return j.mailer.Send(ctx, j.adminEmail, "Stok Menipis", lowStockBody(products))
}

func lowStockBody(products []catalog.Product) string {
	var b strings.Builder
	b.WriteString("Produk berikut sudah mencapai batas stok minimum:\n\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: stok %d (minimum %d)\n", p.Name, p.Stock, p.MinStock)
	}
	b.WriteString("\nSegera lakukan pemesanan ulang.")
	return b.String()
}
