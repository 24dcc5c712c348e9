package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/fixedpoint"
	"github.com/ArcticSubmarine/smart-contracts/internal/ledger"
	"github.com/ArcticSubmarine/smart-contracts/internal/observability"
	"github.com/ArcticSubmarine/smart-contracts/internal/policy"
	"github.com/ArcticSubmarine/smart-contracts/internal/refregistry"
	"github.com/ArcticSubmarine/smart-contracts/internal/swap"
)

// apiServer exposes the ledger and pool over JSON HTTP. A single mutex
// serializes every mutating call; the ledger and pool are sequential state
// machines and hold no locks of their own.
type apiServer struct {
	mu sync.Mutex

	tokenA *ledger.Token
	tokenB *ledger.Token
	pool   *swap.Pool

	journal  *events.MemoryJournal
	hub      *events.Hub
	registry *refregistry.Memory
	clock    *ledger.ManualClock
	metrics  *observability.Metrics

	// setEligibility writes a tier entry to whichever eligibility store the
	// service was started with.
	setEligibility func(ctx context.Context, account common.Address, tier uint8, limit *uint256.Int) error

	log *logrus.Entry
}

// token resolves a token selector ("a"/"b" or the symbol) to a ledger.
func (s *apiServer) token(selector string) *ledger.Token {
	switch selector {
	case "a", "A", s.tokenA.Symbol():
		return s.tokenA
	case "b", "B", s.tokenB.Symbol():
		return s.tokenB
	}
	return nil
}

// routes registers every endpoint on mux.
func (s *apiServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/ws", s.hub)

	mux.HandleFunc("/api/transfer", s.timed("transfer", s.handleTransfer))
	mux.HandleFunc("/api/transfer-from", s.timed("transfer_from", s.handleTransferFrom))
	mux.HandleFunc("/api/transfer-by-reference", s.timed("transfer_by_reference", s.handleTransferByReference))
	mux.HandleFunc("/api/approve", s.timed("approve", s.handleApprove))
	mux.HandleFunc("/api/delegate", s.timed("delegate", s.handleDelegate))
	mux.HandleFunc("/api/swap", s.timed("swap", s.handleSwap))
	mux.HandleFunc("/api/policy", s.timed("policy", s.handleSetPolicy))

	mux.HandleFunc("/api/pool", s.timed("pool_status", s.handlePoolStatus))
	mux.HandleFunc("/api/pool/restock", s.timed("pool_restock", s.handleRestock))
	mux.HandleFunc("/api/pool/close", s.timed("pool_close", s.handlePoolClose))

	mux.HandleFunc("/api/balance", s.timed("balance", s.handleBalance))
	mux.HandleFunc("/api/allowance", s.timed("allowance", s.handleAllowance))
	mux.HandleFunc("/api/votes", s.timed("votes", s.handleVotes))
	mux.HandleFunc("/api/prior-votes", s.timed("prior_votes", s.handlePriorVotes))
	mux.HandleFunc("/api/checkpoints", s.timed("checkpoints", s.handleCheckpoints))
	mux.HandleFunc("/api/invested", s.timed("invested", s.handleInvested))
	mux.HandleFunc("/api/events", s.timed("events", s.handleEvents))
	mux.HandleFunc("/api/block", s.timed("block", s.handleBlock))

	mux.HandleFunc("/api/references", s.timed("references", s.handleReferences))
	mux.HandleFunc("/api/eligibility", s.timed("eligibility", s.handleEligibility))
}

// timed wraps a handler with the request duration histogram.
func (s *apiServer) timed(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// --- request/response bodies ---

type transferRequest struct {
	Token  string `json:"token"`
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferFromRequest struct {
	Token   string `json:"token"`
	Spender string `json:"spender"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

type transferByReferenceRequest struct {
	Token     string `json:"token"`
	Caller    string `json:"caller"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
}

type approveRequest struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type delegateRequest struct {
	Token     string `json:"token"`
	Delegator string `json:"delegator"`
	Delegatee string `json:"delegatee"`
}

type swapRequest struct {
	Direction string `json:"direction"`
	Caller    string `json:"caller"`
	Account   string `json:"account,omitempty"`
	Amount    string `json:"amount"`
}

type policyRequest struct {
	Token  string   `json:"token"`
	Caller string   `json:"caller"`
	Mode   string   `json:"mode"` // open, self_only, owner_mediated
	Owner  string   `json:"owner,omitempty"`
	Exempt []string `json:"exempt,omitempty"`
}

type restockRequest struct {
	Caller string `json:"caller"`
	Side   string `json:"side"`
	Amount string `json:"amount"`
}

type closeRequest struct {
	Caller string `json:"caller"`
}

type referenceRequest struct {
	Reference string `json:"reference"`
	Address   string `json:"address"`
}

type eligibilityRequest struct {
	Account string `json:"account"`
	Tier    uint8  `json:"tier"`
	Limit   string `json:"limit,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- mutation handlers ---

func (s *apiServer) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid destination address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	err = t.Transfer(caller, to, amount)
	s.mu.Unlock()

	if err != nil {
		s.metrics.TransferFailures.WithLabelValues(t.Symbol(), failureReason(err)).Inc()
		writeLedgerError(w, err)
		return
	}
	s.metrics.TransfersTotal.WithLabelValues(t.Symbol()).Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	var req transferFromRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	spender, ok1 := parseAddress(req.Spender)
	from, ok2 := parseAddress(req.From)
	to, ok3 := parseAddress(req.To)
	if !ok1 || !ok2 || !ok3 {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	err = t.TransferFrom(spender, from, to, amount)
	s.mu.Unlock()

	if err != nil {
		s.metrics.TransferFailures.WithLabelValues(t.Symbol(), failureReason(err)).Inc()
		writeLedgerError(w, err)
		return
	}
	s.metrics.TransfersTotal.WithLabelValues(t.Symbol()).Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleTransferByReference(w http.ResponseWriter, r *http.Request) {
	var req transferByReferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	performed, err := t.TransferByReference(caller, req.Reference, amount)
	s.mu.Unlock()

	if err != nil {
		s.metrics.TransferFailures.WithLabelValues(t.Symbol(), failureReason(err)).Inc()
		writeLedgerError(w, err)
		return
	}
	if performed {
		s.metrics.TransfersTotal.WithLabelValues(t.Symbol()).Inc()
	}
	writeJSON(w, http.StatusOK, struct {
		Performed bool `json:"performed"`
	}{Performed: performed})
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	owner, ok1 := parseAddress(req.Owner)
	spender, ok2 := parseAddress(req.Spender)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	err = t.Approve(owner, spender, amount)
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	s.metrics.ApprovalsTotal.Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req delegateRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	delegator, ok := parseAddress(req.Delegator)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delegator address")
		return
	}
	// The zero address is a legal delegatee: it withdraws the delegation.
	delegatee := common.HexToAddress(req.Delegatee)

	s.mu.Lock()
	err := t.Delegate(delegator, delegatee)
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	s.metrics.DelegationsTotal.Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if !s.decode(w, r, &req) {
		return
	}
	dir := domain.SwapDirection(req.Direction)
	if !dir.Valid() {
		writeError(w, http.StatusBadRequest, "invalid direction")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	account := caller
	if req.Account != "" {
		account, ok = parseAddress(req.Account)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid account address")
			return
		}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	err = s.pool.Swap(r.Context(), dir, caller, account, amount)
	if err == nil {
		s.updatePoolGauges()
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.SwapFailures.WithLabelValues(string(dir), failureReason(err)).Inc()
		writeLedgerError(w, err)
		return
	}
	s.metrics.SwapsTotal.WithLabelValues(string(dir)).Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !s.decode(w, r, &req) {
		return
	}
	t := s.token(req.Token)
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	var pol policy.Policy
	switch req.Mode {
	case "open":
		pol = policy.Open{}
	case "self_only":
		exempt := make([]common.Address, 0, len(req.Exempt))
		for _, hex := range req.Exempt {
			addr, ok := parseAddress(hex)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid exempt address")
				return
			}
			exempt = append(exempt, addr)
		}
		pol = policy.NewSelfOnly(exempt...)
	case "owner_mediated":
		owner, ok := parseAddress(req.Owner)
		if !ok {
			writeError(w, http.StatusBadRequest, "owner_mediated requires an owner address")
			return
		}
		pol = policy.NewOwnerMediated(owner)
	default:
		writeError(w, http.StatusBadRequest, "unknown policy mode")
		return
	}

	s.mu.Lock()
	err := t.SetPolicy(caller, pol)
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	side := domain.SwapDirection(req.Side)
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "invalid side")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	s.mu.Lock()
	err = s.pool.Restock(caller, side, amount)
	if err == nil {
		s.updatePoolGauges()
	}
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handlePoolClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	s.mu.Lock()
	err := s.pool.Close(caller)
	if err == nil {
		s.updatePoolGauges()
	}
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleReferences(w http.ResponseWriter, r *http.Request) {
	var req referenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	addr, ok := parseAddress(req.Address)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if err := s.registry.Register(req.Reference, addr); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *apiServer) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.handleEligibilityCheck(w, r)
		return
	}
	var req eligibilityRequest
	if !s.decode(w, r, &req) {
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	var limit *uint256.Int
	if req.Limit != "" {
		var err error
		limit, err = parseAmount(req.Limit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if err := s.setEligibility(r.Context(), account, req.Tier, limit); err != nil {
		s.log.WithError(err).Error("eligibility write failed")
		writeError(w, http.StatusInternalServerError, "eligibility write failed")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleEligibilityCheck runs the pool's full eligibility validation for an
// account: tier, provision threshold, and the remaining tier headroom.
func (s *apiServer) handleEligibilityCheck(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	s.mu.Lock()
	limit, err := s.pool.ValidateEligibility(r.Context(), account)
	invested := s.pool.Invested(account)
	s.mu.Unlock()

	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Eligible  bool   `json:"eligible"`
		Limit     string `json:"limit"`
		Unlimited bool   `json:"unlimited"`
		Invested  string `json:"invested"`
	}{
		Eligible:  true,
		Limit:     limit.Dec(),
		Unlimited: limit.IsZero(),
		Invested:  invested.Dec(),
	})
}

// --- query handlers ---

func (s *apiServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	t := s.token(r.URL.Query().Get("token"))
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	s.mu.Lock()
	balance := t.BalanceOf(account)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Balance string `json:"balance"`
	}{Balance: balance.Dec()})
}

func (s *apiServer) handleAllowance(w http.ResponseWriter, r *http.Request) {
	t := s.token(r.URL.Query().Get("token"))
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	owner, ok1 := parseAddress(r.URL.Query().Get("owner"))
	spender, ok2 := parseAddress(r.URL.Query().Get("spender"))
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	s.mu.Lock()
	allowance := t.Allowance(owner, spender)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Allowance string `json:"allowance"`
		Unlimited bool   `json:"unlimited"`
	}{Allowance: allowance.Dec(), Unlimited: fixedpoint.IsMaxUnit96(allowance)})
}

func (s *apiServer) handleVotes(w http.ResponseWriter, r *http.Request) {
	t := s.token(r.URL.Query().Get("token"))
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	s.mu.Lock()
	votes := t.GetCurrentVotes(account)
	s.mu.Unlock()

	s.metrics.VoteQueriesTotal.WithLabelValues("current").Inc()
	writeJSON(w, http.StatusOK, struct {
		Votes string `json:"votes"`
	}{Votes: votes.Dec()})
}

func (s *apiServer) handlePriorVotes(w http.ResponseWriter, r *http.Request) {
	t := s.token(r.URL.Query().Get("token"))
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	block, err := strconv.ParseUint(r.URL.Query().Get("block"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block number")
		return
	}

	s.mu.Lock()
	votes, err := t.GetPriorVotes(account, uint32(block))
	s.mu.Unlock()

	s.metrics.VoteQueriesTotal.WithLabelValues("prior").Inc()
	if err != nil {
		if errors.Is(err, ledger.ErrNotYetDetermined) {
			s.metrics.VoteQueryFailures.Inc()
		}
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Votes string `json:"votes"`
		Block uint64 `json:"block"`
	}{Votes: votes.Dec(), Block: block})
}

func (s *apiServer) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	t := s.token(r.URL.Query().Get("token"))
	if t == nil {
		writeError(w, http.StatusBadRequest, "unknown token")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	s.mu.Lock()
	n := t.NumCheckpoints(account)
	delegatee := t.DelegateOf(account)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Checkpoints uint32 `json:"checkpoints"`
		Delegatee   string `json:"delegatee"`
	}{Checkpoints: n, Delegatee: delegatee.Hex()})
}

func (s *apiServer) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	open := s.pool.Open()
	remainingA := s.pool.RemainingA()
	remainingB := s.pool.RemainingB()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Open       bool   `json:"open"`
		Account    string `json:"account"`
		RemainingA string `json:"remaining_a"`
		RemainingB string `json:"remaining_b"`
	}{
		Open:       open,
		Account:    s.pool.Account().Hex(),
		RemainingA: remainingA.Dec(),
		RemainingB: remainingB.Dec(),
	})
}

func (s *apiServer) handleInvested(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	s.mu.Lock()
	invested := s.pool.Invested(account)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Invested string `json:"invested"`
	}{Invested: invested.Dec()})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recent := s.journal.Recent(limit)
	out := make([]map[string]interface{}, 0, len(recent))
	for _, ev := range recent {
		out = append(out, map[string]interface{}{
			"kind": ev.Kind(),
			"data": ev,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Events []map[string]interface{} `json:"events"`
	}{Events: out})
}

func (s *apiServer) handleBlock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Block uint64 `json:"block"`
	}{Block: s.clock.CurrentBlock()})
}

// --- helpers ---

// updatePoolGauges refreshes the inventory gauges. Callers hold s.mu.
func (s *apiServer) updatePoolGauges() {
	s.metrics.PoolRemaining.WithLabelValues("a").Set(gaugeValue(s.pool.RemainingA()))
	s.metrics.PoolRemaining.WithLabelValues("b").Set(gaugeValue(s.pool.RemainingB()))
	if s.pool.Open() {
		s.metrics.PoolOpen.Set(1)
	} else {
		s.metrics.PoolOpen.Set(0)
	}
}

// gaugeValue converts an amount for the gauge; precision loss past float64
// is acceptable for monitoring.
func gaugeValue(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func parseAddress(hex string) (common.Address, bool) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, false
	}
	addr := common.HexToAddress(hex)
	if addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

func parseAmount(raw string) (*uint256.Int, error) {
	return uint256.FromDecimal(raw)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeLedgerError maps domain sentinel errors to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, ledger.ErrInvariantViolation),
		errors.Is(err, swap.ErrSettlementFailed):
		status = http.StatusInternalServerError
	case errors.Is(err, fixedpoint.ErrOutOfRange),
		errors.Is(err, ledger.ErrZeroAddress),
		errors.Is(err, swap.ErrZeroAmount),
		errors.Is(err, swap.ErrInvalidDirection),
		errors.Is(err, refregistry.ErrInvalidReference):
		status = http.StatusBadRequest
	case errors.Is(err, policy.ErrUnauthorized),
		errors.Is(err, ledger.ErrNotAdmin),
		errors.Is(err, swap.ErrNotOwner),
		errors.Is(err, swap.ErrNotEligible):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotYetDetermined):
		status = http.StatusConflict
	case errors.Is(err, swap.ErrPoolClosed),
		errors.Is(err, refregistry.ErrReferenceExists):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

// failureReason names a rejection for the failure counters.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, ledger.ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, fixedpoint.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, policy.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, swap.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, swap.ErrInsufficientProvision):
		return "insufficient_provision"
	case errors.Is(err, swap.ErrExceedsTierLimit):
		return "exceeds_tier_limit"
	case errors.Is(err, swap.ErrInsufficientPoolInventory):
		return "insufficient_inventory"
	case errors.Is(err, swap.ErrPoolClosed):
		return "pool_closed"
	case errors.Is(err, swap.ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ledger.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "other"
	}
}
