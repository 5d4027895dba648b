package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"school_transport_echo/internal/models"
)

func seedLedger(t *testing.T) *PaymentService {
	t.Helper()
	ctx := context.Background()
	svc, _ := newTestService(t, PaymentServiceConfig{})
	_, err := svc.UpsertFee(ctx, NewFee{RouteID: "r1", Amount: decPtr("5000")})
	require.NoError(t, err)
	_, err = svc.UpsertFee(ctx, NewFee{RouteID: "r2", Amount: decPtr("3000")})
	require.NoError(t, err)

	inputs := []NewPayment{
		newPayment("s1", "r1", "2000"),
		newPayment("s1", "r1", "2000"),
		newPayment("s1", "r2", "3000"),
		newPayment("s2", "r1", "5000"),
	}
	inputs[2].Method = models.PaymentMethodCash
	old := newPayment("s2", "r2", "1000")
	old.Year = 2023
	inputs = append(inputs, old)

	for _, in := range inputs {
		_, err := svc.RecordPayment(ctx, in)
		require.NoError(t, err)
	}
	return svc
}

func TestTransportStats(t *testing.T) {
	ctx := context.Background()
	stats := NewStatsService(seedLedger(t))

	got, err := stats.Transport(ctx, 2024, models.Term1)
	require.NoError(t, err)
	assert.Equal(t, 4, got.PaymentCount)
	assert.Equal(t, "12000", got.TotalCollected.String())
	assert.Equal(t, "9000", got.ByMethod["Mpesa"].String())
	assert.Equal(t, "3000", got.ByMethod["Cash"].String())
	assert.True(t, got.ByMethod["Bank Transfer"].IsZero())
	assert.Equal(t, 2, got.Students)
	assert.Equal(t, "1000", got.Outstanding.String())
	assert.Equal(t, 2, got.PaidGroups)
	assert.Equal(t, 1, got.PartialGroups)

	all, err := stats.Transport(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 5, all.PaymentCount)
	assert.Equal(t, "3000", all.Outstanding.String())
}

func TestWritePaymentsXLSX(t *testing.T) {
	ctx := context.Background()
	svc := seedLedger(t)
	summary, err := svc.Summary(ctx, models.PaymentFilter{}, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePaymentsXLSX(&buf, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	// header + 5 payments + 3 student totals
	require.Len(t, rows, 9)
	assert.Equal(t, exportHeaders, rows[0])
	// students appear in first-seen order of the newest-first listing
	assert.Equal(t, "2024", rows[1][0])
	assert.Equal(t, "Baraka Mwangi", rows[1][2])
	assert.Equal(t, "Westlands", rows[1][3])
	assert.Equal(t, "Total", rows[2][3])
	assert.Equal(t, "0", rows[2][9])
	assert.Equal(t, "Amani Otieno", rows[3][2])
	assert.Equal(t, "Total", rows[6][3])
	assert.Equal(t, "1000", rows[6][9])
	assert.Equal(t, "2023", rows[7][0])
	assert.Equal(t, "Total", rows[8][3])
}
