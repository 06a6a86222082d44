package auction

import (
	"testing"
	"time"

	"github.com/dkovalev/auction-service/internal/models"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func bidAt(supplierID string, amount int64, at time.Time) models.Bid {
	return models.Bid{
		ID:         supplierID + "-" + at.Format("150405"),
		TenderID:   "t-1",
		SupplierID: supplierID,
		Amount:     decimal.NewFromInt(amount),
		CreatedAt:  at,
	}
}

func TestDetermineWinnerPicksLowestAmount(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		bidAt("s-1", 90000, base),
		bidAt("s-2", 85000, base.Add(time.Minute)),
		bidAt("s-3", 88000, base.Add(2*time.Minute)),
	}

	winner := DetermineWinner(bids)
	assert.NotNil(t, winner)
	check.Equal(t, "s-2", winner.SupplierID)
	check.True(t, winner.Amount.Equal(decimal.NewFromInt(85000)))
}

func TestDetermineWinnerTieBreaksByEarlierBid(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		bidAt("s-1", 90000, base),
		bidAt("s-2", 85000, base.Add(time.Minute)),
		bidAt("s-3", 85000, base.Add(2*time.Minute)),
	}

	winner := DetermineWinner(bids)
	assert.NotNil(t, winner)
	check.Equal(t, "s-2", winner.SupplierID)
}

func TestDetermineWinnerNoBids(t *testing.T) {
	check.Nil(t, DetermineWinner(nil))
	check.Nil(t, DetermineWinner([]models.Bid{}))
}

func TestComputeOutcomeRankingUsesBestBidPerSupplier(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		bidAt("s-1", 95000, base),
		bidAt("s-2", 90000, base.Add(time.Minute)),
		bidAt("s-1", 85000, base.Add(2*time.Minute)),
		bidAt("s-3", 93000, base.Add(3*time.Minute)),
	}

	outcome := ComputeOutcome(bids)
	assert.NotNil(t, outcome.Winner)
	check.Equal(t, "s-1", outcome.Winner.SupplierID)

	assert.Equal(t, 3, len(outcome.Ranking))
	check.Equal(t, 1, outcome.Ranking[0].Rank)
	check.Equal(t, "s-1", outcome.Ranking[0].SupplierID)
	check.Equal(t, "s-2", outcome.Ranking[1].SupplierID)
	check.Equal(t, "s-3", outcome.Ranking[2].SupplierID)
}

func TestComputeOutcomeLedgerIsChronological(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		bidAt("s-2", 90000, base.Add(time.Minute)),
		bidAt("s-1", 95000, base),
		bidAt("s-3", 85000, base.Add(2*time.Minute)),
	}

	outcome := ComputeOutcome(bids)
	assert.Equal(t, 3, len(outcome.Ledger))
	check.Equal(t, "s-1", outcome.Ledger[0].SupplierID)
	check.Equal(t, "s-2", outcome.Ledger[1].SupplierID)
	check.Equal(t, "s-3", outcome.Ledger[2].SupplierID)
}

func TestComputeOutcomeEmpty(t *testing.T) {
	outcome := ComputeOutcome(nil)
	check.Nil(t, outcome.Winner)
	check.Equal(t, 0, len(outcome.Ranking))
	check.Equal(t, 0, len(outcome.Ledger))
}

func TestParticipantOrdinalsFollowJoinOrder(t *testing.T) {
	base := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	participants := []models.TenderParticipant{
		{SupplierID: "s-3", JoinedAt: base.Add(2 * time.Minute)},
		{SupplierID: "s-1", JoinedAt: base},
		{SupplierID: "s-2", JoinedAt: base.Add(time.Minute)},
	}

	ordinals := ParticipantOrdinals(participants)
	check.Equal(t, 1, ordinals["s-1"])
	check.Equal(t, 2, ordinals["s-2"])
	check.Equal(t, 3, ordinals["s-3"])
}
