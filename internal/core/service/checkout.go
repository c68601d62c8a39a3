package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/port"
)

type CommitStatus string

const (
	StatusCommitted             CommitStatus = "committed"
	StatusCommittedWithWarnings CommitStatus = "committed_with_warnings"
)

// CommitResult reports the outcome of a committed sale. A commit that
// aborted before the sale header existed produces no result, only an
// error.
type CommitResult struct {
	Sale           domain.Sale
	Lines          []domain.SaleLine
	Status         CommitStatus
	Warnings       []LineWarning
	Partial        *PartialCommitError
	Loyalty        *LoyaltyUpdateError
	PointsCredited int64
}

// CheckoutService runs the multi-entity commit pipeline. The backing
// store offers no atomic multi-row transaction, so each step defines its
// own failure semantics; nothing is ever rolled back after the sale
// header is durable.
type CheckoutService struct {
	sales      port.SaleStore
	inventory  port.InventoryStore
	loyalty    port.LoyaltyStore
	catalog    *CatalogCache
	idem       port.IdempotencyStore
	logger     *zap.Logger
	now        func() time.Time
	eventQueue chan port.SaleEvent
}

func NewCheckoutService(
	sales port.SaleStore,
	inventory port.InventoryStore,
	loyalty port.LoyaltyStore,
	catalog *CatalogCache,
	idem port.IdempotencyStore,
	logger *zap.Logger,
	queueSize int,
) *CheckoutService {
	return &CheckoutService{
		sales:      sales,
		inventory:  inventory,
		loyalty:    loyalty,
		catalog:    catalog,
		idem:       idem,
		logger:     logger,
		now:        time.Now,
		eventQueue: make(chan port.SaleEvent, queueSize),
	}
}

// EventQueue exposes committed-sale events for the publisher workers.
func (s *CheckoutService) EventQueue() <-chan port.SaleEvent {
	return s.eventQueue
}

func (s *CheckoutService) Close() {
	close(s.eventQueue)
}

// Commit turns the cart into a durable sale.
//
// Step order is fixed: sale header, sale lines, per-line inventory side
// effects, loyalty credit, cache invalidation + cart clear. Failures
// before the header abort with no side effects; failures after it are
// accumulated on the result, never thrown, because there is no
// compensating transaction to run.
func (s *CheckoutService) Commit(ctx context.Context, cart *Cart, customerID, operatorID string, disc domain.DiscountResult) (*CommitResult, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, &ValidationError{Err: ErrEmptyCart}
	}
	if customerID == "" {
		return nil, &ValidationError{Err: ErrNoCustomer}
	}
	if operatorID == "" {
		return nil, &ValidationError{Err: ErrNoOperator}
	}

	if s.idem != nil {
		ok, err := s.idem.SetIdempotency(ctx, "commit:"+cart.Token())
		if err != nil {
			return nil, &PersistenceError{Op: "idempotency check", Err: err}
		}
		if !ok {
			return nil, &ValidationError{Err: ErrDuplicateCommit}
		}
	}

	cartLines := cart.Lines()

	// Step 1: sale header. The only step whose failure aborts.
	sale := domain.Sale{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		OperatorID: operatorID,
		Subtotal:   disc.Subtotal,
		Discount:   disc.DiscountAmount,
		FinalTotal: disc.FinalTotal,
		CreatedAt:  s.now(),
	}
	if err := s.sales.CreateSale(ctx, sale); err != nil {
		// Nothing durable exists; free the token so the operator can
		// retry the same cart.
		if s.idem != nil {
			if relErr := s.idem.ReleaseIdempotency(ctx, "commit:"+cart.Token()); relErr != nil {
				s.logger.Warn("failed to release commit token",
					zap.String("token", cart.Token()),
					zap.Error(relErr))
			}
		}
		return nil, &PersistenceError{Op: "create sale", Err: err}
	}

	// Past this point the commit is not cancellable: a durable sale
	// exists and every remaining step must run to completion or be
	// reported as a warning.
	ctx = context.WithoutCancel(ctx)

	res := &CommitResult{Sale: sale, Status: StatusCommitted}
	defer func() {
		// Step 5: always, once the header exists.
		s.catalog.Invalidate(ctx)
		cart.Clear()
	}()

	// Step 2: sale lines, resolved to the underlying entity. Event
	// ticket lines reference the event, not the synthetic item.
	lines := make([]domain.SaleLine, len(cartLines))
	for i, cl := range cartLines {
		lines[i] = domain.SaleLine{
			SaleID:    sale.ID,
			Kind:      cl.Kind,
			RefID:     cl.RefID,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
			Subtotal:  cl.Subtotal,
		}
	}
	if err := s.sales.CreateSaleLines(ctx, sale.ID, lines); err != nil {
		// Orphan sale. Inventory and loyalty are deliberately not
		// touched: reconciliation owns this sale now.
		res.Status = StatusCommittedWithWarnings
		res.Partial = &PartialCommitError{SaleID: sale.ID, Err: err}
		s.logger.Error("sale committed without lines",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
		return res, nil
	}
	res.Lines = lines

	// Step 3: per-line side effects, independent and concurrent. Each
	// one is a single conditional store operation, so concurrent
	// sessions racing on the same item cannot lose updates.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []LineWarning
	)
	for _, cl := range cartLines {
		wg.Add(1)
		go func(cl domain.CartLine) {
			defer wg.Done()
			if err := s.applySideEffect(ctx, cl); err != nil {
				mu.Lock()
				warnings = append(warnings, LineWarning{
					ItemID:   cl.ItemID,
					Kind:     cl.Kind,
					RefID:    cl.RefID,
					Quantity: cl.Quantity,
					Err:      err,
				})
				mu.Unlock()
			}
		}(cl)
	}
	wg.Wait()
	res.Warnings = warnings

	// Step 4: loyalty credit, one additive write. Non-fatal: the sale
	// stands even if the points do not land.
	points := disc.FinalTotal.IntPart()
	if err := s.loyalty.AddLoyalty(ctx, customerID, points, disc.FinalTotal); err != nil {
		res.Loyalty = &LoyaltyUpdateError{CustomerID: customerID, Err: err}
		s.logger.Error("loyalty update failed",
			zap.String("sale_id", sale.ID),
			zap.String("customer_id", customerID),
			zap.Error(err))
	} else {
		res.PointsCredited = points
	}

	if len(res.Warnings) > 0 || res.Loyalty != nil {
		res.Status = StatusCommittedWithWarnings
		for _, w := range res.Warnings {
			s.logger.Warn("side effect failed",
				zap.String("sale_id", sale.ID),
				zap.String("item_id", w.ItemID),
				zap.Int("quantity", w.Quantity),
				zap.Error(w.Err))
		}
	}

	s.enqueueEvent(sale, lines, len(res.Warnings))

	return res, nil
}

func (s *CheckoutService) applySideEffect(ctx context.Context, line domain.CartLine) error {
	switch line.Kind {
	case domain.KindEventTicket:
		ok, err := s.inventory.IncrementTicketsSold(ctx, line.RefID, line.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientCapacity
		}
	default:
		ok, err := s.inventory.DecrementStock(ctx, line.RefID, line.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStockExhausted
		}
	}
	return nil
}

// enqueueEvent hands the committed sale to the publisher workers. The
// operator never waits on the broker: a full queue drops the event with a
// log line.
func (s *CheckoutService) enqueueEvent(sale domain.Sale, lines []domain.SaleLine, warnings int) {
	event := port.SaleEvent{
		SaleID:      sale.ID,
		CustomerID:  sale.CustomerID,
		OperatorID:  sale.OperatorID,
		Subtotal:    sale.Subtotal,
		Discount:    sale.Discount,
		FinalTotal:  sale.FinalTotal,
		Lines:       lines,
		Warnings:    warnings,
		CommittedAt: sale.CreatedAt,
	}
	select {
	case s.eventQueue <- event:
	default:
		s.logger.Warn("event queue full, dropping sale event",
			zap.String("sale_id", sale.ID))
	}
}
