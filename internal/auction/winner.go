package auction

import (
	"sort"

	"github.com/dkovalev/auction-service/internal/models"
)

// RankedBid - лучшая (минимальная) заявка одного поставщика в итоговом ранжировании.
type RankedBid struct {
	Rank       int
	SupplierID string
	Bid        models.Bid
}

// Outcome содержит результат завершенных торгов.
type Outcome struct {
	// Winner - заявка с минимальной суммой; nil, если заявок не было.
	Winner *models.Bid
	// Ranking - лучшие заявки поставщиков, отсортированные по возрастанию суммы.
	Ranking []RankedBid
	// Ledger - полная хронология заявок (аудиторский след).
	Ledger []models.Bid
}

// DetermineWinner выбирает победителя: минимальная сумма, при равенстве
// побеждает более ранняя заявка.
func DetermineWinner(bids []models.Bid) *models.Bid {
	var winner *models.Bid
	for i := range bids {
		b := &bids[i]
		if winner == nil {
			winner = b
			continue
		}
		if b.Amount.LessThan(winner.Amount) ||
			(b.Amount.Equal(winner.Amount) && b.CreatedAt.Before(winner.CreatedAt)) {
			winner = b
		}
	}
	return winner
}

// ComputeOutcome строит итог торгов: победитель, ранжирование по лучшей цене
// каждого поставщика и хронологический реестр заявок.
func ComputeOutcome(bids []models.Bid) *Outcome {
	ledger := make([]models.Bid, len(bids))
	copy(ledger, bids)
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].CreatedAt.Before(ledger[j].CreatedAt)
	})

	// Лучшая заявка каждого поставщика.
	best := make(map[string]models.Bid)
	for _, b := range ledger {
		cur, ok := best[b.SupplierID]
		if !ok || b.Amount.LessThan(cur.Amount) {
			best[b.SupplierID] = b
		}
	}

	ranking := make([]RankedBid, 0, len(best))
	for supplierID, b := range best {
		ranking = append(ranking, RankedBid{SupplierID: supplierID, Bid: b})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if !ranking[i].Bid.Amount.Equal(ranking[j].Bid.Amount) {
			return ranking[i].Bid.Amount.LessThan(ranking[j].Bid.Amount)
		}
		return ranking[i].Bid.CreatedAt.Before(ranking[j].Bid.CreatedAt)
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}

	return &Outcome{
		Winner:  DetermineWinner(ledger),
		Ranking: ranking,
		Ledger:  ledger,
	}
}

// ParticipantOrdinals возвращает анонимные номера участников по порядку вступления.
func ParticipantOrdinals(participants []models.TenderParticipant) map[string]int {
	ordered := make([]models.TenderParticipant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})
	ordinals := make(map[string]int, len(ordered))
	for i, p := range ordered {
		ordinals[p.SupplierID] = i + 1
	}
	return ordinals
}
