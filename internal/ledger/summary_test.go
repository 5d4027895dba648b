package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_transport_echo/internal/models"
)

func payment(id, student, route string, term models.Term, year int, amount int64) models.TransportPayment {
	return models.TransportPayment{
		ID:        id,
		StudentID: student,
		RouteID:   route,
		Term:      term,
		Year:      year,
		Amount:    d(amount),
		Method:    models.PaymentMethodCash,
	}
}

func TestSummarizeByGroupOrdering(t *testing.T) {
	payments := []models.TransportPayment{
		payment("p1", "s1", "r1", models.Term2, 2023, 100),
		payment("p2", "s2", "r1", models.Term1, 2024, 100),
		payment("p3", "s1", "r1", models.Term3, 2024, 100),
		payment("p4", "s1", "r1", models.Term1, 2024, 100),
		payment("p5", "s3", "r1", models.Term1, 2024, 100),
	}

	got := SummarizeByGroup(payments, models.FeeSchedule{"r1": d(500)})

	require.Len(t, got, 2)
	assert.Equal(t, 2024, got[0].Year)
	assert.Equal(t, 2023, got[1].Year)

	require.Len(t, got[0].Terms, 2)
	assert.Equal(t, models.Term1, got[0].Terms[0].Term)
	assert.Equal(t, models.Term3, got[0].Terms[1].Term)

	students := got[0].Terms[0].Students
	require.Len(t, students, 3)
	assert.Equal(t, "s2", students[0].StudentID)
	assert.Equal(t, "s1", students[1].StudentID)
	assert.Equal(t, "s3", students[2].StudentID)
}

func TestSummarizeByGroupBalances(t *testing.T) {
	fees := models.FeeSchedule{"r1": d(5000), "r2": d(3000)}

	t.Run("payments accumulate per route", func(t *testing.T) {
		payments := []models.TransportPayment{
			payment("p2", "s1", "r1", models.Term1, 2024, 2000),
			payment("p1", "s1", "r1", models.Term1, 2024, 2000),
		}
		sg := SummarizeByGroup(payments, fees)[0].Terms[0].Students[0]

		require.Len(t, sg.Rows, 2)
		assert.Equal(t, "p2", sg.Rows[0].Payment.ID)
		for _, row := range sg.Rows {
			assert.Equal(t, "1000", row.Balance.String())
			assert.Equal(t, "4000", row.RoutePaid.String())
			assert.Equal(t, models.PaymentStatusPartial, row.Status)
		}
		assert.Equal(t, "1000", sg.TotalBalance.String())
	})

	t.Run("total balance counts each route once", func(t *testing.T) {
		payments := []models.TransportPayment{
			payment("p1", "s1", "r1", models.Term1, 2024, 1000),
			payment("p2", "s1", "r1", models.Term1, 2024, 1000),
			payment("p3", "s1", "r1", models.Term1, 2024, 1000),
			payment("p4", "s1", "r2", models.Term1, 2024, 3500),
		}
		sg := SummarizeByGroup(payments, fees)[0].Terms[0].Students[0]

		require.Len(t, sg.Routes, 2)
		assert.Equal(t, "r1", sg.Routes[0].RouteID)
		assert.Equal(t, "2000", sg.Routes[0].Balance.Balance.String())
		assert.Equal(t, models.PaymentStatusPaid, sg.Routes[1].Status)
		assert.Equal(t, "2000", sg.TotalBalance.String())
	})

	t.Run("route without fee is paid", func(t *testing.T) {
		payments := []models.TransportPayment{payment("p1", "s1", "r9", models.Term1, 2024, 10)}
		sg := SummarizeByGroup(payments, fees)[0].Terms[0].Students[0]

		assert.True(t, sg.TotalBalance.IsZero())
		assert.Equal(t, models.PaymentStatusPaid, sg.Rows[0].Status)
	})

	t.Run("stored snapshot is ignored", func(t *testing.T) {
		p := payment("p1", "s1", "r1", models.Term1, 2024, 3000)
		p.Balance = d(0)
		p.Status = models.PaymentStatusPaid

		sg := SummarizeByGroup([]models.TransportPayment{p}, models.FeeSchedule{"r1": d(4000)})[0].Terms[0].Students[0]
		assert.Equal(t, "1000", sg.Rows[0].Balance.String())
		assert.Equal(t, models.PaymentStatusPartial, sg.Rows[0].Status)
		assert.Equal(t, "0", sg.Rows[0].Payment.Balance.String())
	})

	t.Run("terms and years are separate groups", func(t *testing.T) {
		payments := []models.TransportPayment{
			payment("p1", "s1", "r1", models.Term1, 2024, 5000),
			payment("p2", "s1", "r1", models.Term2, 2024, 1000),
			payment("p3", "s1", "r1", models.Term1, 2023, 1000),
		}
		got := Groups(SummarizeByGroup(payments, fees))

		require.Len(t, got, 3)
		assert.Equal(t, models.PaymentKey{StudentID: "s1", RouteID: "r1", Term: models.Term1, Year: 2024}, got[0].Key)
		assert.Equal(t, models.PaymentStatusPaid, got[0].Status)
		assert.Equal(t, "4000", got[1].Balance.Balance.String())
		assert.Equal(t, 2023, got[2].Key.Year)
	})
}

func TestSummarizeByGroupEmpty(t *testing.T) {
	assert.Empty(t, SummarizeByGroup(nil, nil))
}

func TestReplaySnapshots(t *testing.T) {
	base := time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)
	at := func(p models.TransportPayment, offset time.Duration, balance int64, status models.PaymentStatus) models.TransportPayment {
		p.CreatedAt = base.Add(offset)
		p.Balance = d(balance)
		p.Status = status
		return p
	}

	// snapshots taken under a 3000 fee, listed newest first
	payments := []models.TransportPayment{
		at(payment("p3", "s1", "r1", models.Term1, 2024, 1000), 2*time.Hour, 0, models.PaymentStatusPaid),
		at(payment("p2", "s1", "r1", models.Term1, 2024, 1000), time.Hour, 1000, models.PaymentStatusPartial),
		at(payment("p1", "s1", "r1", models.Term1, 2024, 1000), 0, 2000, models.PaymentStatusPartial),
		at(payment("p4", "s2", "r1", models.Term1, 2024, 500), 0, 3500, models.PaymentStatusPartial),
	}

	t.Run("unchanged fee yields no updates", func(t *testing.T) {
		fees := models.FeeSchedule{"r1": d(3000)}
		payments := payments[:3]
		assert.Empty(t, ReplaySnapshots(payments, fees))
	})

	t.Run("raised fee rewrites every stale snapshot", func(t *testing.T) {
		updates := ReplaySnapshots(payments, models.FeeSchedule{"r1": d(4000)})

		require.Len(t, updates, 3)
		byID := make(map[string]SnapshotUpdate)
		for _, u := range updates {
			byID[u.PaymentID] = u
		}
		assert.Equal(t, "3000", byID["p1"].Balance.String())
		assert.Equal(t, "2000", byID["p2"].Balance.String())
		assert.Equal(t, "1000", byID["p3"].Balance.String())
		assert.Equal(t, models.PaymentStatusPartial, byID["p3"].Status)
		_, ok := byID["p4"]
		assert.False(t, ok)
	})
}
