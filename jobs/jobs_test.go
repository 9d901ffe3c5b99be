package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/catalog"
)

func TestSlipTaskTypes(t *testing.T) {
	payload := SlipNotificationPayload{SlipID: 7, BarberID: 1, PeriodName: "Agustus 2026", NetSalary: 5500000}

	created, err := NewSlipCreatedTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskSlipCreated, created.Type())

	paid, err := NewSlipPaidTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskSlipPaid, paid.Type())
}

func TestSlipBodies(t *testing.T) {
	payload := SlipNotificationPayload{PeriodName: "Agustus 2026", NetSalary: 3500000}

	body := slipCreatedBody("Agus", payload)
	require.Contains(t, body, "Agus")
	require.Contains(t, body, "Agustus 2026")
	require.Contains(t, body, "3.500.000")

	require.Contains(t, slipPaidBody("Agus", payload), "dibayarkan")
}

func TestLowStockBody(t *testing.T) {
	body := lowStockBody([]catalog.Product{
		{Name: "Pomade", Stock: 2, MinStock: 5},
		{Name: "Hair Tonic", Stock: 0, MinStock: 3},
	})
	require.Contains(t, body, "Pomade: stok 2 (minimum 5)")
	require.Contains(t, body, "Hair Tonic: stok 0 (minimum 3)")
}
