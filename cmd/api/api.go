package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"github.com/mbanwusi/TradePulse-server/service/analysis"
	"github.com/mbanwusi/TradePulse-server/service/auth"
	"github.com/mbanwusi/TradePulse-server/service/dashboard"
	"github.com/mbanwusi/TradePulse-server/service/signals"
	"github.com/mbanwusi/TradePulse-server/service/subscription"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	log     *logger.Logger
}

func NewApiServer(address string, db *gorm.DB, log *logger.Logger) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		log:     log,
	}
}

// Router builds the full route table. Exposed separately from Run so tests
// can serve it directly.
func (s *APIServer) Router() http.Handler {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	authHandler := auth.NewHandler(s.db, s.log)
	authHandler.RegisterRoutes(subrouter)

	signalHandler := signals.NewSignalHandler(s.db, s.log)
	signalHandler.RegisterRoutes(subrouter)

	analysisHandler := analysis.NewAnalysisHandler(s.db, s.log)
	analysisHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db, s.log)
	dashboardHandler.RegisterRoutes(subrouter)

	subscriptionHandler := subscription.NewSubscriptionHandler(s.db, s.log)
	subscriptionHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
	)

	return handlers.RecoveryHandler()(cors(router))
}

func (s *APIServer) Run() error {
	s.log.Info("server running", zap.String("address", s.address))
	return http.ListenAndServe(s.address, s.Router())
}
