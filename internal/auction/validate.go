package auction

import (
	"fmt"

	"github.com/dkovalev/auction-service/internal/models"

	"github.com/shopspring/decimal"
)

// Падение цены больше этой доли от стартовой требует повторного подтверждения суммы.
var largeDropRatio = decimal.NewFromFloat(0.10)

// ValidateBid проверяет заявку-кандидата против состояния тендера и правил
// ценообразования. Функция чистая: побочные эффекты (запись заявки, обновление
// текущей цены) выполняет вызывающая транзакция.
//
// confirmed=true означает, что поставщик повторно подтвердил ровно эту сумму
// в пределах окна подтверждения; тогда защита от крупного падения не срабатывает.
func ValidateBid(tender *models.Tender, amount decimal.Decimal, confirmed bool) error {
	if !tender.Status.IsBiddable() {
		return models.NewRejection(models.CodeTenderNotBiddable,
			fmt.Sprintf("tender is not accepting bids (status %s)", tender.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.NewRejection(models.CodeInvalidAmount, "bid amount must be positive")
	}
	if amount.GreaterThanOrEqual(tender.CurrentPrice) {
		return models.NewRejection(models.CodeNotBelowCurrentPrice,
			fmt.Sprintf("bid must be strictly below current price %s", tender.CurrentPrice))
	}
	if tender.CurrentPrice.Sub(amount).LessThan(tender.MinBidDecrease) {
		return models.NewRejection(models.CodeDecreaseTooSmall,
			fmt.Sprintf("minimum price decrease is %s", tender.MinBidDecrease))
	}
	if !confirmed && IsLargeDrop(tender, amount) {
		return models.NewRejection(models.CodeConfirmationRequired,
			"price drop exceeds 10% of the start price, resubmit the same amount to confirm")
	}
	return nil
}

// IsLargeDrop сообщает, превышает ли падение от стартовой цены защитный порог.
func IsLargeDrop(tender *models.Tender, amount decimal.Decimal) bool {
	if tender.StartPrice.LessThanOrEqual(decimal.Zero) {
		return false
	}
	drop := tender.StartPrice.Sub(amount).Div(tender.StartPrice)
	return drop.GreaterThan(largeDropRatio)
}
