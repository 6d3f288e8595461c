package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"asset_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

type listRequest struct {
	Collection string          `json:"collection"`
	Token      string          `json:"token"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
}

type buyRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type repriceRequest struct {
	Price decimal.Decimal `json:"price"`
	Fee   decimal.Decimal `json:"fee"`
}

type journalEntry struct {
	Seq       uint64          `json:"seq"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	ItemID    domain.ItemID   `json:"item_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const maxJournalPage = 500

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.metrics.Snapshot())
}

type feeResponse struct {
	ListingFee decimal.Decimal `json:"listing_fee"`
	Custodian  domain.Identity `json:"custodian"`
	Operator   domain.Identity `json:"operator"`
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	custodian, operator := s.ledger.Accounts()
	jsonResponse(w, http.StatusOK, feeResponse{
		ListingFee: s.ledger.ListingFee(),
		Custodian:  custodian,
		Operator:   operator,
	})
}

func (s *Server) handleUnsold(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.catalog.FetchUnsold())
}

func (s *Server) handleOwned(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.catalog.FetchOwned(domain.Identity(r.PathValue("identity"))))
}

func (s *Server) handleListedBy(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.catalog.FetchListedBy(domain.Identity(r.PathValue("identity"))))
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	item, err := s.catalog.FetchItem(id)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	ref := domain.AssetRef{Collection: req.Collection, Token: req.Token}
	id, err := s.ledger.List(r.Context(), caller, ref, req.Price, req.Fee)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]domain.ItemID{"item_id": id})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Buy(r.Context(), caller, id, req.Amount); err != nil {
		ledgerError(w, err)
		return
	}
	s.respondItem(w, id)
}

func (s *Server) handleReprice(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var req repriceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Reprice(r.Context(), caller, id, req.Price, req.Fee); err != nil {
		ledgerError(w, err)
		return
	}
	s.respondItem(w, id)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.Cancel(r.Context(), caller, id); err != nil {
		ledgerError(w, err)
		return
	}
	s.respondItem(w, id)
}

func (s *Server) respondItem(w http.ResponseWriter, id domain.ItemID) {
	item, err := s.catalog.FetchItem(id)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func callerOf(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller := domain.Identity(r.Header.Get(CallerHeader))
	if caller.IsNone() {
		jsonError(w, http.StatusUnauthorized, "missing "+CallerHeader+" header")
		return domain.NoOwner, false
	}
	return caller, true
}

func itemID(w http.ResponseWriter, r *http.Request) (domain.ItemID, bool) {
	id, err := domain.ParseItemID(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}

// handleJournal pages through the journal: ?after=<seq>&limit=<n>.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid after")
			return
		}
		after = n
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxJournalPage)
	}

	entries, err := s.journal.Journal(r.Context(), after, limit)
	if err != nil {
		ledgerError(w, err)
		return
	}
	out := make([]journalEntry, len(entries))
	for i, e := range entries {
		out[i] = journalEntry{
			Seq:       e.Seq,
			EventID:   e.EventID,
			Type:      string(e.Type),
			ItemID:    e.ItemID,
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAt,
		}
	}
	jsonResponse(w, http.StatusOK, out)
}
