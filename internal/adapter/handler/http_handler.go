package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/core/service"
	"github.com/rinkworks/venuepos/internal/port"
)

// HTTPHandler is the station-facing surface. Carts live server-side, one
// per operator session, keyed by the X-Session-ID header.
type HTTPHandler struct {
	catalog    *service.CatalogCache
	checkout   *service.CheckoutService
	loyalty    port.LoyaltyStore
	reconciler *service.Reconciler
	logger     *zap.Logger

	mu    sync.Mutex
	carts map[string]*service.Cart
}

func NewHTTPHandler(
	catalog *service.CatalogCache,
	checkout *service.CheckoutService,
	loyalty port.LoyaltyStore,
	reconciler *service.Reconciler,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		catalog:    catalog,
		checkout:   checkout,
		loyalty:    loyalty,
		reconciler: reconciler,
		logger:     logger,
		carts:      make(map[string]*service.Cart),
	}
}

func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)
		r.Post("/catalog/invalidate", h.InvalidateCatalog)
		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.EndSession)
		r.Post("/cart/items", h.AddCartItem)
		r.Put("/cart/items/{itemID}", h.SetCartItemQuantity)
		r.Delete("/cart/items/{itemID}", h.RemoveCartItem)
		r.Post("/quote", h.Quote)
		r.Post("/checkout", h.Checkout)
		r.Get("/loyalty/{customerID}", h.GetLoyaltyAccount)
		r.Get("/reconciliation", h.GetOrphanSales)
	})
	return r
}

func (h *HTTPHandler) sessionCart(r *http.Request) (*service.Cart, bool) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	cart, ok := h.carts[sessionID]
	if !ok {
		cart = service.NewCart()
		h.carts[sessionID] = cart
	}
	return cart, true
}

type catalogItemResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	RefID     string          `json:"ref_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Available int             `json:"available"`
	Category  string          `json:"category"`
}

type catalogResponse struct {
	Items []catalogItemResponse `json:"items"`
	AsOf  string                `json:"as_of"`
}

func (h *HTTPHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	items, asOf, err := h.catalog.Load(r.Context(), force)
	if err != nil {
		h.logger.Error("catalog load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	resp := catalogResponse{AsOf: asOf.Format("2006-01-02T15:04:05Z07:00")}
	for _, item := range items {
		resp.Items = append(resp.Items, catalogItemResponse{
			ID:        item.ID,
			Kind:      string(item.Kind),
			RefID:     item.RefID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Available: item.Available,
			Category:  item.Category,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateCatalog drops every cache level. Admin tooling calls this
// after stock-affecting edits so the next read is forced fresh.
func (h *HTTPHandler) InvalidateCatalog(w http.ResponseWriter, r *http.Request) {
	h.catalog.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

type cartLineResponse struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Lines    []cartLineResponse `json:"lines"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func cartView(cart *service.Cart) cartResponse {
	resp := cartResponse{Subtotal: cart.Subtotal()}
	for _, line := range cart.Lines() {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return resp
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}
	writeJSON(w, http.StatusOK, cartView(cart))
}

// EndSession destroys the session's cart. Stations call it when an
// operator signs off; without it the registry would grow for the life of
// the process. The next request with the same session id starts a fresh
// cart with a new commit token.
func (h *HTTPHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}
	h.mu.Lock()
	delete(h.carts, sessionID)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ItemID string `json:"item_id"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, _, err := h.catalog.Load(r.Context(), false)
	if err != nil {
		h.logger.Error("catalog load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	var found *domain.CatalogItem
	for i := range items {
		if items[i].ID == req.ItemID {
			found = &items[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "unknown catalog item")
		return
	}

	cart.AddOrIncrement(*found)
	writeJSON(w, http.StatusOK, cartView(cart))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *HTTPHandler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart.SetQuantity(chi.URLParam(r, "itemID"), req.Quantity)
	writeJSON(w, http.StatusOK, cartView(cart))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}

	cart.Remove(chi.URLParam(r, "itemID"))
	writeJSON(w, http.StatusOK, cartView(cart))
}

type quoteRequest struct {
	CustomerID        string          `json:"customer_id"`
	ManualDiscountPct decimal.Decimal `json:"manual_discount_pct"`
}

type quoteResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	LoyaltyPct     decimal.Decimal `json:"loyalty_discount_pct"`
	ManualPct      decimal.Decimal `json:"manual_discount_pct"`
	CombinedPct    decimal.Decimal `json:"combined_discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
}

func (h *HTTPHandler) quote(ctx context.Context, cart *service.Cart, customerID string, manualPct decimal.Decimal) (domain.DiscountResult, error) {
	var account *domain.LoyaltyAccount
	if customerID != "" {
		var err error
		account, err = h.loyalty.GetLoyaltyAccount(ctx, customerID)
		if err != nil {
			return domain.DiscountResult{}, err
		}
	}
	rules, err := h.loyalty.ListLoyaltyRules(ctx)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	return service.ComputeDiscount(cart.Lines(), account, manualPct, rules), nil
}

func (h *HTTPHandler) Quote(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.quote(r.Context(), cart, req.CustomerID, req.ManualDiscountPct)
	if err != nil {
		h.logger.Error("quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Subtotal:       result.Subtotal,
		LoyaltyPct:     result.LoyaltyPct,
		ManualPct:      result.ManualPct,
		CombinedPct:    result.CombinedPct,
		DiscountAmount: result.DiscountAmount,
		FinalTotal:     result.FinalTotal,
	})
}

type checkoutRequest struct {
	CustomerID        string          `json:"customer_id"`
	OperatorID        string          `json:"operator_id"`
	ManualDiscountPct decimal.Decimal `json:"manual_discount_pct"`
}

type checkoutResponse struct {
	SaleID         string          `json:"sale_id"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	PointsCredited int64           `json:"points_credited"`
	Warnings       []string        `json:"warnings,omitempty"`
	PartialCommit  string          `json:"partial_commit,omitempty"`
	LoyaltyError   string          `json:"loyalty_error,omitempty"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.sessionCart(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	disc, err := h.quote(r.Context(), cart, req.CustomerID, req.ManualDiscountPct)
	if err != nil {
		h.logger.Error("discount resolution failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	result, err := h.checkout.Commit(r.Context(), cart, req.CustomerID, req.OperatorID, disc)
	if err != nil {
		var validation *service.ValidationError
		if errors.As(err, &validation) {
			status := http.StatusBadRequest
			if errors.Is(err, service.ErrDuplicateCommit) {
				status = http.StatusConflict
			}
			writeError(w, status, validation.Error())
			return
		}
		h.logger.Error("commit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sale was not created, retry is safe")
		return
	}

	resp := checkoutResponse{
		SaleID:         result.Sale.ID,
		Status:         string(result.Status),
		Subtotal:       result.Sale.Subtotal,
		Discount:       result.Sale.Discount,
		FinalTotal:     result.Sale.FinalTotal,
		PointsCredited: result.PointsCredited,
	}
	for _, warning := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warning.String())
	}
	if result.Partial != nil {
		resp.PartialCommit = result.Partial.Error()
	}
	if result.Loyalty != nil {
		resp.LoyaltyError = result.Loyalty.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type loyaltyResponse struct {
	CustomerID string          `json:"customer_id"`
	Points     int64           `json:"points"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Category   string          `json:"category"`
}

func (h *HTTPHandler) GetLoyaltyAccount(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	account, err := h.loyalty.GetLoyaltyAccount(r.Context(), customerID)
	if err != nil {
		h.logger.Error("loyalty lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "unknown customer")
		return
	}
	writeJSON(w, http.StatusOK, loyaltyResponse{
		CustomerID: account.CustomerID,
		Points:     account.Points,
		TotalSpent: account.TotalSpent,
		Category:   account.Category,
	})
}

type orphanSaleResponse struct {
	SaleID     string          `json:"sale_id"`
	CustomerID string          `json:"customer_id"`
	FinalTotal decimal.Decimal `json:"final_total"`
	CreatedAt  string          `json:"created_at"`
}

func (h *HTTPHandler) GetOrphanSales(w http.ResponseWriter, r *http.Request) {
	orphans := h.reconciler.Orphans()
	out := make([]orphanSaleResponse, 0, len(orphans))
	for _, sale := range orphans {
		out = append(out, orphanSaleResponse{
			SaleID:     sale.ID,
			CustomerID: sale.CustomerID,
			FinalTotal: sale.FinalTotal,
			CreatedAt:  sale.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
