package affiliate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clarazen/backend/internal/models"
)

func createPendingCommission(t *testing.T, db *gorm.DB, aff *models.Affiliate, amount float64, availableAt time.Time) *models.Commission {
	c := models.Commission{
		AffiliateID:    aff.ID,
		SubscriptionID: uuid.New(),
		UserID:         uuid.New(),
		Type:           models.CommissionTypeRecurring,
		Level:          1,
		Amount:         amount,
		Rate:           50.00,
		Status:         models.CommissionStatusPending,
		AvailableAt:    availableAt,
	}
	require.NoError(t, db.Create(&c).Error)
	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
		UpdateColumns(map[string]interface{}{
			"total_earnings":   gorm.Expr("total_earnings + ?", amount),
			"pending_earnings": gorm.Expr("pending_earnings + ?", amount),
		}).Error)
	return &c
}

func TestReleaseCommissions(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	now := time.Now()
	due := createPendingCommission(t, db, aff, 50.00, now.Add(-time.Hour))
	alsoDue := createPendingCommission(t, db, aff, 25.00, now.Add(-time.Minute))
	notYet := createPendingCommission(t, db, aff, 40.00, now.Add(24*time.Hour))

	released, err := svc.ReleaseCommissions(now)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	var reloaded models.Commission
	require.NoError(t, db.First(&reloaded, "id = ?", due.ID).Error)
	assert.Equal(t, models.CommissionStatusAvailable, reloaded.Status)
	reloaded = models.Commission{}
	require.NoError(t, db.First(&reloaded, "id = ?", alsoDue.ID).Error)
	assert.Equal(t, models.CommissionStatusAvailable, reloaded.Status)

	// The unexpired hold stays pending
	reloaded = models.Commission{}
	require.NoError(t, db.First(&reloaded, "id = ?", notYet.ID).Error)
	assert.Equal(t, models.CommissionStatusPending, reloaded.Status)

	// Balances move in lockstep with the status flips
	var balance models.Affiliate
	require.NoError(t, db.First(&balance, "id = ?", aff.ID).Error)
	assert.InDelta(t, 40.00, balance.PendingEarnings, 0.001)
	assert.InDelta(t, 75.00, balance.AvailableEarnings, 0.001)
	assert.InDelta(t, 115.00, balance.TotalEarnings, 0.001)
}

func TestReleaseCommissionsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	now := time.Now()
	createPendingCommission(t, db, aff, 50.00, now.Add(-time.Hour))

	released, err := svc.ReleaseCommissions(now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	// A second immediate sweep finds nothing and moves nothing
	released, err = svc.ReleaseCommissions(now)
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	var balance models.Affiliate
	require.NoError(t, db.First(&balance, "id = ?", aff.ID).Error)
	assert.InDelta(t, 0.00, balance.PendingEarnings, 0.001)
	assert.InDelta(t, 50.00, balance.AvailableEarnings, 0.001)
}

func TestReleaseCommissionsMultipleAffiliates(t *testing.T) {
	svc, db := newTestService(t)
	first := createTestAffiliate(t, svc, db, "first@example.com")
	second := createTestAffiliate(t, svc, db, "second@example.com")

	now := time.Now()
	createPendingCommission(t, db, first, 50.00, now.Add(-time.Hour))
	createPendingCommission(t, db, first, 20.00, now.Add(-time.Hour))
	createPendingCommission(t, db, second, 10.00, now.Add(-time.Hour))

	released, err := svc.ReleaseCommissions(now)
	require.NoError(t, err)
	assert.Equal(t, 3, released)

	var balance models.Affiliate
	require.NoError(t, db.First(&balance, "id = ?", first.ID).Error)
	assert.InDelta(t, 70.00, balance.AvailableEarnings, 0.001)
	balance = models.Affiliate{}
	require.NoError(t, db.First(&balance, "id = ?", second.ID).Error)
	assert.InDelta(t, 10.00, balance.AvailableEarnings, 0.001)
}

func TestConversionThenReleaseEndToEnd(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	buyer := createReferredUser(t, db, aff, "buyer@example.com")

	require.NoError(t, svc.ProcessConversion(buyer.ID, uuid.New(), 100.00))

	// Before the hold expires nothing is withdrawable
	released, err := svc.ReleaseCommissions(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	// After the hold the commission becomes available balance
	released, err = svc.ReleaseCommissions(time.Now().AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	var balance models.Affiliate
	require.NoError(t, db.First(&balance, "id = ?", aff.ID).Error)
	assert.InDelta(t, 50.00, balance.AvailableEarnings, 0.001)

	// And the balance is withdrawable
	w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 50.00})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRequested, w.Status)
}
