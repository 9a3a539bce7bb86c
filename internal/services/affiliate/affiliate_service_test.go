package affiliate

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/models"
)

// setupTestDB creates an in-memory database with the affiliate schema
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.Commission{},
		&models.Withdrawal{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() config.AffiliateConfig {
	return config.AffiliateConfig{
		MinWithdrawal:      50.00,
		DefaultRate:        50.00,
		SubAffiliateRate:   10.00,
		HoldDays:           7,
		ReleaseIntervalMin: 5,
	}
}

func newTestService(t *testing.T) (*AffiliateService, *gorm.DB) {
	db := setupTestDB(t)
	return NewAffiliateService(db, testConfig(), nil), db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	user := models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestAffiliate(t *testing.T, svc *AffiliateService, db *gorm.DB, email string) *models.Affiliate {
	user := createTestUser(t, db, email)
	aff, err := svc.CreateAffiliate(user.ID, CreateAffiliateInput{
		DocumentType:   "cpf",
		DocumentNumber: fmt.Sprintf("doc-%s", email),
		PixKeyType:     "email",
		PixKey:         email,
		PixAccountName: "Test User",
	})
	require.NoError(t, err)
	return aff
}

func TestCreateAffiliate(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "ana@example.com")

	aff, err := svc.CreateAffiliate(user.ID, CreateAffiliateInput{
		DocumentType:   "cpf",
		DocumentNumber: "123.456.789-00",
		PixKeyType:     "email",
		PixKey:         "ana@example.com",
	})
	require.NoError(t, err)

	assert.Len(t, aff.Code, 8)
	assert.Equal(t, models.CommissionTypeRecurring, aff.CommissionType)
	assert.Equal(t, 50.00, aff.CommissionRate)
	assert.Equal(t, models.AffiliateStatusActive, aff.Status)
	assert.Nil(t, aff.ParentAffiliateID)

	// Enrolling flips the user's role
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleAffiliate, reloaded.Role)
}

func TestCreateAffiliateAlreadyEnrolled(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "ana@example.com")

	_, err := svc.CreateAffiliate(user.ID, CreateAffiliateInput{DocumentNumber: "doc-1"})
	require.NoError(t, err)

	_, err = svc.CreateAffiliate(user.ID, CreateAffiliateInput{DocumentNumber: "doc-2"})
	assert.ErrorIs(t, err, ErrAlreadyAffiliate)
}

func TestCreateAffiliateDuplicateDocument(t *testing.T) {
	svc, db := newTestService(t)
	first := createTestUser(t, db, "first@example.com")
	second := createTestUser(t, db, "second@example.com")

	_, err := svc.CreateAffiliate(first.ID, CreateAffiliateInput{DocumentNumber: "same-doc"})
	require.NoError(t, err)

	_, err = svc.CreateAffiliate(second.ID, CreateAffiliateInput{DocumentNumber: "same-doc"})
	assert.ErrorIs(t, err, ErrDuplicateDocument)
}

func TestCreateAffiliateWithParentCode(t *testing.T) {
	svc, db := newTestService(t)
	parent := createTestAffiliate(t, svc, db, "parent@example.com")
	child := createTestUser(t, db, "child@example.com")

	aff, err := svc.CreateAffiliate(child.ID, CreateAffiliateInput{
		DocumentNumber:      "child-doc",
		ParentAffiliateCode: parent.Code,
	})
	require.NoError(t, err)
	require.NotNil(t, aff.ParentAffiliateID)
	assert.Equal(t, parent.ID, *aff.ParentAffiliateID)
}

func TestCreateAffiliateInvalidParentCode(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "ana@example.com")

	_, err := svc.CreateAffiliate(user.ID, CreateAffiliateInput{
		DocumentNumber:      "doc-1",
		ParentAffiliateCode: "NOSUCH00",
	})
	assert.ErrorIs(t, err, ErrInvalidParentCode)
}

func TestTrackClick(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	click, err := svc.TrackClick(TrackClickInput{
		Code:      aff.Code,
		IPAddress: "203.0.113.10",
		UserAgent: "test-agent",
		UTMSource: "instagram",
	})
	require.NoError(t, err)
	assert.Equal(t, aff.ID, click.AffiliateID)
	assert.False(t, click.Converted)

	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(1), reloaded.TotalClicks)
}

func TestTrackClickUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.TrackClick(TrackClickInput{Code: "NOSUCH00", IPAddress: "203.0.113.10"})
	assert.ErrorIs(t, err, ErrUnknownAffiliateCode)
}

func TestTrackClickDedupWithinWindow(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	first, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)

	// Same IP inside the window returns the stored click unchanged
	second, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var clickCount int64
	require.NoError(t, db.Model(&models.AffiliateClick{}).Where("affiliate_id = ?", aff.ID).Count(&clickCount).Error)
	assert.Equal(t, int64(1), clickCount)

	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(1), reloaded.TotalClicks)
}

func TestTrackClickAfterWindowExpires(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	first, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)

	// Age the stored click past the dedup window
	backdated := time.Now().Add(-ClickDedupWindow - time.Minute)
	require.NoError(t, db.Model(&models.AffiliateClick{}).Where("id = ?", first.ID).
		UpdateColumn("created_at", backdated).Error)

	second, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(2), reloaded.TotalClicks)
}

func TestTrackClickDifferentIPsNotDeduped(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	_, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)
	_, err = svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.11"})
	require.NoError(t, err)

	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(2), reloaded.TotalClicks)
}

func TestTrackClickInactiveAffiliate(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
		Update("status", models.AffiliateStatusSuspended).Error)

	_, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	assert.ErrorIs(t, err, ErrUnknownAffiliateCode)
}

func setBalance(t *testing.T, db *gorm.DB, affiliateID uuid.UUID, available float64) {
	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", affiliateID).
		UpdateColumn("available_earnings", available).Error)
}

func TestRequestWithdrawal(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	setBalance(t, db, aff.ID, 120.00)

	w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{
		Amount:     75.00,
		PixKeyType: "email",
		PixKey:     "ana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRequested, w.Status)
	assert.Nil(t, w.ProcessedAt)

	// The amount leaves the balance at request time
	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.InDelta(t, 45.00, reloaded.AvailableEarnings, 0.001)
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	// Rejected even when the balance covers it
	setBalance(t, db, aff.ID, 1000.00)

	_, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 49.99})
	assert.ErrorIs(t, err, ErrBelowMinimum)

	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.InDelta(t, 1000.00, reloaded.AvailableEarnings, 0.001)
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	setBalance(t, db, aff.ID, 60.00)

	_, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 60.01})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var count int64
	require.NoError(t, db.Model(&models.Withdrawal{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestApproveWithdrawal(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	admin := createTestUser(t, db, "admin@example.com")
	setBalance(t, db, aff.ID, 100.00)

	w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 100.00})
	require.NoError(t, err)

	approved, err := svc.ApproveWithdrawal(w.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedByID)
	assert.Equal(t, admin.ID, *approved.ProcessedByID)
	assert.NotNil(t, approved.ProcessedAt)

	// Approval must not touch the balance again
	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.InDelta(t, 0.00, reloaded.AvailableEarnings, 0.001)
}

func TestRejectWithdrawalRefundsBalance(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	admin := createTestUser(t, db, "admin@example.com")
	setBalance(t, db, aff.ID, 100.00)

	w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 80.00})
	require.NoError(t, err)

	rejected, err := svc.RejectWithdrawal(w.ID, admin.ID, "pix key does not match document")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, rejected.Status)
	assert.Equal(t, "pix key does not match document", rejected.AdminNotes)

	// Request then reject round-trips the balance
	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.InDelta(t, 100.00, reloaded.AvailableEarnings, 0.001)
}

func TestProcessedWithdrawalCannotBeReprocessed(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	admin := createTestUser(t, db, "admin@example.com")
	setBalance(t, db, aff.ID, 100.00)

	w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 100.00})
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(w.ID, admin.ID)
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(w.ID, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.RejectWithdrawal(w.ID, admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	// Rejecting an approved withdrawal must not credit anything back
	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.InDelta(t, 0.00, reloaded.AvailableEarnings, 0.001)
}

// setupFileTestDB opens a file-backed database so concurrent transactions
// contend for real locks instead of sharing one in-memory connection.
// Immediate transactions make gorm's Transaction calls serialize.
func setupFileTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate",
		filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.Commission{},
		&models.Withdrawal{},
	)
	require.NoError(t, err)

	return db
}

func TestConcurrentRejectRefundsOnce(t *testing.T) {
	db := setupFileTestDB(t)
	svc := NewAffiliateService(db, testConfig(), nil)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	admin := createTestUser(t, db, "admin@example.com")

	for i := 0; i < 25; i++ {
		setBalance(t, db, aff.ID, 100.00)
		w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 60.00})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := range errs {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, errs[j] = svc.RejectWithdrawal(w.ID, admin.ID, "")
			}(j)
		}
		wg.Wait()

		// Exactly one decision wins; the loser sees the final status
		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
			} else {
				require.ErrorIs(t, err, ErrInvalidState)
			}
		}
		require.Equal(t, 1, successes)

		var reloaded models.Affiliate
		require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
		require.InDelta(t, 100.00, reloaded.AvailableEarnings, 0.001,
			"refund applied more than once on attempt %d", i)
	}
}

func TestConcurrentApproveAndReject(t *testing.T) {
	db := setupFileTestDB(t)
	svc := NewAffiliateService(db, testConfig(), nil)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	admin := createTestUser(t, db, "admin@example.com")

	for i := 0; i < 25; i++ {
		setBalance(t, db, aff.ID, 100.00)
		w, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 60.00})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var approveErr, rejectErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = svc.ApproveWithdrawal(w.ID, admin.ID)
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = svc.RejectWithdrawal(w.ID, admin.ID, "")
		}()
		wg.Wait()

		require.True(t, (approveErr == nil) != (rejectErr == nil),
			"exactly one decision must win: approve=%v reject=%v", approveErr, rejectErr)

		// Approved keeps the debit; rejected restores it. Never both.
		var reloaded models.Affiliate
		require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
		if approveErr == nil {
			require.InDelta(t, 40.00, reloaded.AvailableEarnings, 0.001)
		} else {
			require.InDelta(t, 100.00, reloaded.AvailableEarnings, 0.001)
		}
	}
}

func TestGetStats(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")

	_, err := svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.10"})
	require.NoError(t, err)
	_, err = svc.TrackClick(TrackClickInput{Code: aff.Code, IPAddress: "203.0.113.11"})
	require.NoError(t, err)

	stats, err := svc.GetStats(context.Background(), aff.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ClicksThisMonth)
	assert.Equal(t, int64(0), stats.ConversionsThisMonth)
	assert.Equal(t, 0.0, stats.ConversionRate)
}

func TestGetWithdrawalHistoryPagination(t *testing.T) {
	svc, db := newTestService(t)
	aff := createTestAffiliate(t, svc, db, "ana@example.com")
	setBalance(t, db, aff.ID, 500.00)

	for i := 0; i < 3; i++ {
		_, err := svc.RequestWithdrawal(aff.ID, WithdrawalInput{Amount: 50.00})
		require.NoError(t, err)
	}

	withdrawals, total, err := svc.GetWithdrawalHistory(aff.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, withdrawals, 2)
}
