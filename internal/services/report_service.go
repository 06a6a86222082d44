package services

import (
	"fmt"
	"strings"

	"github.com/dkovalev/auction-service/internal/auction"
	"github.com/dkovalev/auction-service/internal/models"
)

// ReportService - сервис для генерации отчетов и текстов уведомлений по торгам.
type ReportService struct{}

// NewReportService создает новый экземпляр ReportService.
func NewReportService() *ReportService {
	return &ReportService{}
}

// WinnerMessage - текст уведомления победителю.
func (s *ReportService) WinnerMessage(tender *models.Tender, winner *models.Bid) string {
	return fmt.Sprintf(
		"🏆 Поздравляем! Вы выиграли тендер!\n\n"+
			"📋 %s\n"+
			"💰 Ваша цена: %s ₽\n"+
			"📅 Время подачи: %s\n\n"+
			"Организатор свяжется с вами для обсуждения деталей.",
		tender.Title, winner.Amount, winner.CreatedAt.Format("15:04:05"))
}

// ClosureMessage - анонимный текст для участников при завершении торгов.
// Победитель называется порядковым номером, не названием организации.
func (s *ReportService) ClosureMessage(tender *models.Tender, winnerOrdinal int, winner *models.Bid) string {
	return fmt.Sprintf(
		"🔴 Аукцион завершен!\n\n"+
			"📋 %s\n"+
			"🏆 Победитель: Участник %d\n"+
			"💰 Цена: %s ₽\n\n"+
			"Спасибо за участие!",
		tender.Title, winnerOrdinal, winner.Amount)
}

// NoBidsMessage - текст организатору, если заявок не было.
func (s *ReportService) NoBidsMessage(tender *models.Tender) string {
	return fmt.Sprintf(
		"🔴 Аукцион завершен без заявок!\n\n"+
			"📋 %s\n"+
			"📊 Статус: Заявок не было подано\n\n"+
			"Тендер можно перезапустить или отменить.",
		tender.Title)
}

// CancelledMessage - текст участникам при отмене тендера.
func (s *ReportService) CancelledMessage(tender *models.Tender) string {
	return fmt.Sprintf("❌ Тендер '%s' отменен организатором.", tender.Title)
}

// AccessGrantedMessage - текст поставщику при открытии доступа.
func (s *ReportService) AccessGrantedMessage(tender *models.Tender) string {
	return fmt.Sprintf(
		"🔐 Вам открыт доступ к тендеру '%s'.\n"+
			"💰 Стартовая цена: %s ₽\n"+
			"📅 Начало торгов: %s",
		tender.Title, tender.StartPrice, tender.StartAt.Format("02.01.2006 15:04"))
}

// BidPlacedMessage - анонимный текст остальным участникам о новой заявке.
func (s *ReportService) BidPlacedMessage(tender *models.Tender, bid *models.Bid, ordinal int) string {
	return fmt.Sprintf(
		"🔥 Новая заявка в тендере '%s'!\n\n"+
			"👤 Участник %d\n"+
			"💰 Цена: %s ₽\n"+
			"📅 Время: %s\n\n"+
			"Текущая цена: %s ₽",
		tender.Title, ordinal, bid.Amount, bid.CreatedAt.Format("15:04:05"), bid.Amount)
}

// BidAcceptedMessage - подтверждение подавшему заявку.
func (s *ReportService) BidAcceptedMessage(tender *models.Tender, bid *models.Bid) string {
	return fmt.Sprintf(
		"✅ Ваша ставка принята!\n"+
			"📋 %s\n"+
			"💰 Цена: %s ₽\n"+
			"⏰ Аукцион закроется через 2 минуты, если новых ставок не будет.",
		tender.Title, bid.Amount)
}

// OrganizerSummary строит итоговый отчет организатору: ранжирование лучших
// цен, хронологический реестр заявок и деанонимизированный победитель.
func (s *ReportService) OrganizerSummary(tender *models.Tender, outcome *auction.Outcome, ordinals map[string]int, profiles map[string]*models.User) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 ОТЧЕТ ПО АУКЦИОНУ\n\n")
	fmt.Fprintf(&b, "📋 Название: %s\n", tender.Title)
	fmt.Fprintf(&b, "💰 Стартовая цена: %s ₽\n", tender.StartPrice)
	fmt.Fprintf(&b, "📅 Дата начала: %s\n", tender.StartAt.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "🏆 Количество участников: %d\n", len(ordinals))
	fmt.Fprintf(&b, "📈 Количество заявок: %d\n\n", len(outcome.Ledger))

	if outcome.Winner == nil {
		b.WriteString("📊 Заявок не было подано.")
		return b.String()
	}

	b.WriteString("🥇 ЛУЧШИЕ ЦЕНЫ УЧАСТНИКОВ:\n\n")
	for _, ranked := range outcome.Ranking {
		fmt.Fprintf(&b, "%d. %s\n   💰 Цена: %s ₽\n",
			ranked.Rank, s.participantName(ranked.SupplierID, ordinals, profiles), ranked.Bid.Amount)
	}

	b.WriteString("\n📈 ХОД ТОРГОВ:\n\n")
	for i, bid := range outcome.Ledger {
		fmt.Fprintf(&b, "%d. Участник %d\n   💰 Цена: %s ₽\n   📅 Время: %s\n",
			i+1, ordinals[bid.SupplierID], bid.Amount, bid.CreatedAt.Format("15:04:05"))
	}

	winner := profiles[outcome.Winner.SupplierID]
	winnerName := "Неизвестно"
	if winner != nil {
		winnerName = winner.OrgName
	}
	savings := tender.StartPrice.Sub(outcome.Winner.Amount)
	fmt.Fprintf(&b, "\n🏆 ПОБЕДИТЕЛЬ:\n👤 Организация: %s\n💰 Цена: %s ₽\n📉 Экономия: %s ₽",
		winnerName, outcome.Winner.Amount, savings)

	return b.String()
}

// AnonymousReport строит отчет без расшифровки участников (для выдачи наружу).
func (s *ReportService) AnonymousReport(tender *models.Tender, outcome *auction.Outcome, ordinals map[string]int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 ОТЧЕТ ПО АУКЦИОНУ\n\n")
	fmt.Fprintf(&b, "📋 Название: %s\n", tender.Title)
	fmt.Fprintf(&b, "💰 Стартовая цена: %s ₽\n", tender.StartPrice)
	fmt.Fprintf(&b, "📊 Статус: %s\n", tender.Status)
	fmt.Fprintf(&b, "🏆 Количество участников: %d\n", len(ordinals))
	fmt.Fprintf(&b, "📈 Количество заявок: %d\n\n", len(outcome.Ledger))

	if outcome.Winner == nil {
		b.WriteString("📊 Заявок не было подано.")
		return b.String()
	}

	b.WriteString("📈 ХОД ТОРГОВ:\n\n")
	for i, bid := range outcome.Ledger {
		fmt.Fprintf(&b, "%d. Участник %d\n   💰 Цена: %s ₽\n   📅 Время: %s\n",
			i+1, ordinals[bid.SupplierID], bid.Amount, bid.CreatedAt.Format("15:04:05"))
	}

	fmt.Fprintf(&b, "\n🏆 Победитель: Участник %d (%s ₽)",
		ordinals[outcome.Winner.SupplierID], outcome.Winner.Amount)

	return b.String()
}

func (s *ReportService) participantName(supplierID string, ordinals map[string]int, profiles map[string]*models.User) string {
	name := fmt.Sprintf("Участник %d", ordinals[supplierID])
	if profile, ok := profiles[supplierID]; ok && profile != nil {
		name = fmt.Sprintf("%s (%s)", name, profile.OrgName)
	}
	return name
}
