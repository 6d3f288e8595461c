package api

import (
	"context"
	"net/http"
	"time"

	"asset_ledger/internal/domain"
	"asset_ledger/internal/infra"
	"asset_ledger/internal/service"
	"asset_ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// CallerHeader carries the caller identity. Authenticating it is the job of
// whatever fronts this server.
const CallerHeader = "X-Caller"

// Ledger is the mutating surface the server drives.
type Ledger interface {
	List(ctx context.Context, caller domain.Identity, ref domain.AssetRef, price, feePaid decimal.Decimal) (domain.ItemID, error)
	Buy(ctx context.Context, caller domain.Identity, id domain.ItemID, amountPaid decimal.Decimal) error
	Reprice(ctx context.Context, caller domain.Identity, id domain.ItemID, newPrice, feePaid decimal.Decimal) error
	Cancel(ctx context.Context, caller domain.Identity, id domain.ItemID) error
	ListingFee() decimal.Decimal
	Accounts() (custodian, operator domain.Identity)
}

// Journal reads the persisted notification journal.
type Journal interface {
	Journal(ctx context.Context, after uint64, limit int) ([]storage.JournalEntry, error)
}

// Server represents the HTTP API server
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	ledger     Ledger
	catalog    *service.Catalog
	journal    Journal
	metrics    *infra.Metrics
}

// NewServer creates a new API server. feed and journal may be nil.
func NewServer(addr string, ledger Ledger, catalog *service.Catalog, feed http.Handler, journal Journal, metrics *infra.Metrics) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		ledger:  ledger,
		catalog: catalog,
		journal: journal,
		metrics: metrics,
	}
	s.registerRoutes(feed)
	return s
}

// Handler returns the root handler (for tests and embedding).
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes(feed http.Handler) {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /fee", s.handleFee)

	// Query views
	s.mux.HandleFunc("GET /items/unsold", s.handleUnsold)
	s.mux.HandleFunc("GET /items/owned/{identity}", s.handleOwned)
	s.mux.HandleFunc("GET /items/listed/{identity}", s.handleListedBy)
	s.mux.HandleFunc("GET /items/{id}", s.handleItem)

	// Operations
	s.mux.HandleFunc("POST /items", s.handleList)
	s.mux.HandleFunc("POST /items/{id}/buy", s.handleBuy)
	s.mux.HandleFunc("POST /items/{id}/price", s.handleReprice)
	s.mux.HandleFunc("POST /items/{id}/cancel", s.handleCancel)

	if s.journal != nil {
		s.mux.HandleFunc("GET /journal", s.handleJournal)
	}
	if feed != nil {
		s.mux.Handle("GET /events", feed)
	}
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
