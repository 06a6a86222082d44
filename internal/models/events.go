package models

type NotificationKind string // Тип исходящего уведомления

const (
	NotifyBidAccepted        NotificationKind = "bid_accepted"         // Подтверждение подавшему заявку
	NotifyBidPlaced          NotificationKind = "bid_placed"           // Анонимное уведомление остальных участников
	NotifyAuctionWon         NotificationKind = "auction_won"          // Победителю
	NotifyAuctionClosed      NotificationKind = "auction_closed"       // Участникам при завершении
	NotifyAuctionSummary     NotificationKind = "auction_summary"      // Организатору: итоговый отчет
	NotifyAuctionNoBids      NotificationKind = "auction_no_bids"      // Организатору: торги без заявок
	NotifyAuctionStartSoon   NotificationKind = "auction_start_soon"   // Напоминание за 10 минут до начала
	NotifyAuctionStarted     NotificationKind = "auction_started"      // Уведомление о начале торгов
	NotifyAccessGranted      NotificationKind = "access_granted"       // Поставщику открыт доступ к тендеру
	NotifyTenderCancelled    NotificationKind = "tender_cancelled"     // Участникам при отмене тендера
)

// Notification - исходящее событие для внешнего транспорта (бот, почта и т.п.).
// Ядро возвращает список событий из транзакции; доставка выполняется после коммита.
type Notification struct {
	UserID string
	Kind   NotificationKind
	Text   string
}
