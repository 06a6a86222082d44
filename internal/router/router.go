package router

import (
	"net/http"

	"github.com/dkovalev/auction-service/internal/handlers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func InitRoutes(
	tenderHandler *handlers.TenderHandler,
	bidHandler *handlers.BidHandler,
	userHandler *handlers.UserHandler,
	pingHandler *handlers.PingHandler,
	registry *prometheus.Registry,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", pingHandler.CheckServer)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/tenders/new", tenderHandler.CreateTender)
	mux.HandleFunc("/api/tenders/my", tenderHandler.GetUserTenders)
	mux.HandleFunc("/api/tenders/list", tenderHandler.ListByStatus)
	mux.HandleFunc("GET /api/tenders/{tenderId}", tenderHandler.GetTender)
	mux.HandleFunc("/api/tenders/{tenderId}/approve", tenderHandler.ApproveTender)
	mux.HandleFunc("/api/tenders/{tenderId}/cancel", tenderHandler.CancelTender)
	mux.HandleFunc("POST /api/tenders/{tenderId}/access", tenderHandler.GrantAccess)
	mux.HandleFunc("DELETE /api/tenders/{tenderId}/access", tenderHandler.RevokeAccess)
	mux.HandleFunc("/api/tenders/{tenderId}/report", tenderHandler.GetReport)
	mux.HandleFunc("/api/tenders/{tenderId}/join", bidHandler.JoinTender)
	mux.HandleFunc("/api/tenders/{tenderId}/bids", bidHandler.GetTenderBids)

	mux.HandleFunc("/api/bids/new", bidHandler.PlaceBid)
	mux.HandleFunc("/api/bids/my", bidHandler.GetMyBids)

	mux.HandleFunc("/api/users/new", userHandler.CreateUser)
	mux.HandleFunc("/api/users/list", userHandler.ListUsers)
	mux.HandleFunc("/api/users/profile", userHandler.CompleteProfile)
	mux.HandleFunc("GET /api/users/{username}", userHandler.GetUser)
	mux.HandleFunc("PUT /api/users/{userId}/ban", userHandler.SetBanned)

	mux.HandleFunc("/api/admin/sweep", tenderHandler.RunSweep)

	return mux
}
