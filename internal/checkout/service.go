package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agustinromero/storefront-backend/internal/cart"
	"github.com/agustinromero/storefront-backend/internal/catalog"
	"github.com/agustinromero/storefront-backend/internal/orders"
	"github.com/agustinromero/storefront-backend/internal/pricing"
	"github.com/agustinromero/storefront-backend/pkg/db"
	"github.com/agustinromero/storefront-backend/pkg/db/models"
	"github.com/agustinromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/agustinromero/storefront-backend/pkg/logger"
	"github.com/agustinromero/storefront-backend/pkg/metrics"
	"github.com/agustinromero/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome labels reported on checkout metrics.
const (
	OutcomeCommitted         = "committed"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeAlreadyCommitted  = "already_committed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeValidation        = "validation"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// FinalizeInput is the validated checkout payload.
type FinalizeInput struct {
	Address    types.Address
	PaymentRef string
}

// Service turns an active cart into an immutable order.
type Service interface {
	Finalize(ctx context.Context, userID uuid.UUID, input FinalizeInput) (*orders.OrderDTO, error)
}

type service struct {
	dbClient    *db.Client
	cartRepo    cart.Repository
	catalogRepo catalog.Repository
	ordersRepo  orders.Repository
	pricer      pricing.Engine
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	retries     int
}

// NewService constructs a checkout service instance. Metrics may be nil.
func NewService(
	dbClient *db.Client,
	cartRepo cart.Repository,
	catalogRepo catalog.Repository,
	ordersRepo orders.Repository,
	pricer pricing.Engine,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	retries int,
) (Service, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if retries < 0 {
		retries = 0
	}
	return &service{
		dbClient:    dbClient,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		ordersRepo:  ordersRepo,
		pricer:      pricer,
		metrics:     checkoutMetrics,
		logg:        logg,
		retries:     retries,
	}, nil
}

// Finalize validates the whole cart, then commits stock decrements, the order
// snapshot, and the cart state flip inside one transaction. A failure at any
// point leaves stock and ledger untouched. Re-running Finalize on a committed
// cart reports the order produced by the first run.
func (s *service) Finalize(ctx context.Context, userID uuid.UUID, input FinalizeInput) (*orders.OrderDTO, error) {
	start := time.Now()
	ctx = s.logg.WithUserID(ctx, userID.String())

	order, err := s.finalize(ctx, userID, input)
	s.record(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "checkout committed")
	return order, nil
}

func (s *service) finalize(ctx context.Context, userID uuid.UUID, input FinalizeInput) (*orders.OrderDTO, error) {
	input.Address.Normalize()
	if !input.Address.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	if strings.TrimSpace(input.PaymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_ref is required")
	}

	userCart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// advisory pass before taking any locks; the transaction re-checks
	if err := s.validateLines(ctx, s.catalogRepo, userCart.Items); err != nil {
		return nil, err
	}

	var committed *models.Order
	for attempt := 0; ; attempt++ {
		committed, err = s.commit(ctx, userCart.ID, input)
		if err == nil {
			break
		}
		if db.IsSerializationFailure(err) && attempt < s.retries {
			s.logg.Warn(ctx, "checkout commit retry after serialization failure")
			continue
		}
		if db.IsSerializationFailure(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout contention, retry later")
		}
		return nil, err
	}

	return orders.NewOrderDTO(committed), nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	userCart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.ensureCommittable(userCart); err != nil {
		return nil, err
	}
	return userCart, nil
}

func (s *service) ensureCommittable(userCart *models.Cart) error {
	if userCart.Status == enums.CartStatusCommitted {
		orderID := ""
		if userCart.CommittedOrderID != nil {
			orderID = userCart.CommittedOrderID.String()
		}
		return pkgerrors.AlreadyCommitted(orderID)
	}
	if len(userCart.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return nil
}

// validateLines checks every cart line against the catalog and reports the
// first offender in line order.
func (s *service) validateLines(ctx context.Context, repo catalog.Repository, items []models.CartItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		if item.Quantity > product.Stock {
			return pkgerrors.InsufficientStock(item.ProductID.String(), item.Quantity, product.Stock)
		}
	}
	return nil
}

// commit performs the transactional phase: conditional stock decrements in
// product-id order, the order snapshot, and the cart flip to committed.
func (s *service) commit(ctx context.Context, cartID uuid.UUID, input FinalizeInput) (*models.Order, error) {
	var committed *models.Order

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		userCart, err := cartRepo.FindByID(ctx, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		// a concurrent checkout may have won the race since the advisory pass
		if err := s.ensureCommittable(userCart); err != nil {
			return err
		}

		items := make([]models.CartItem, len(userCart.Items))
		copy(items, userCart.Items)
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID.String() < items[j].ProductID.String()
		})

		for _, item := range items {
			if err := s.decrementStock(ctx, catalogRepo, item); err != nil {
				return err
			}
		}

		order, err := s.buildOrder(ctx, catalogRepo, userCart, input)
		if err != nil {
			return err
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		if err := cartRepo.ClearItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}
		userCart.Status = enums.CartStatusCommitted
		userCart.CommittedOrderID = &order.ID
		if _, err := cartRepo.Save(ctx, userCart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: commit cart")
		}

		committed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *service) decrementStock(ctx context.Context, repo catalog.Repository, item models.CartItem) error {
	err := repo.AdjustStock(ctx, item.ProductID, -item.Quantity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, catalog.ErrStockConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
	}

	product, findErr := repo.FindByID(ctx, item.ProductID)
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load product")
	}
	return pkgerrors.InsufficientStock(item.ProductID.String(), item.Quantity, product.Stock)
}

// buildOrder snapshots product name, category and unit price per line and
// prices the cart. Note the stock decrements have already run in this
// transaction, so availability is settled by now.
func (s *service) buildOrder(ctx context.Context, repo catalog.Repository, userCart *models.Cart, input FinalizeInput) (*models.Order, error) {
	ids := make([]uuid.UUID, 0, len(userCart.Items))
	for _, item := range userCart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	lines := make([]models.OrderLine, 0, len(userCart.Items))
	priced := make([]pricing.Line, 0, len(userCart.Items))
	for _, item := range userCart.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		lines = append(lines, models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Category:    product.Category,
			UnitPrice:   product.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   s.pricer.LineTotal(product.UnitPrice, item.Quantity),
		})
		priced = append(priced, pricing.Line{
			Category:  product.Category,
			UnitPrice: product.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	totals := s.pricer.ComputeTotals(priced)
	return &models.Order{
		UserID:     userCart.UserID,
		Address:    input.Address,
		PaymentRef: strings.TrimSpace(input.PaymentRef),
		Subtotal:   totals.Subtotal,
		TaxTotal:   totals.TaxTotal,
		Shipping:   totals.Shipping,
		Total:      totals.Total,
		Lines:      lines,
	}, nil
}

func (s *service) record(elapsed time.Duration, err error) {
	outcome := outcomeFor(err)
	s.metrics.ObserveDuration(outcome, elapsed)
	if err == nil {
		s.metrics.IncSuccess(outcome)
		return
	}
	s.metrics.IncFailure(outcome)
}

func outcomeFor(err error) string {
	if err == nil {
		return OutcomeCommitted
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		return OutcomeError
	}
	switch appErr.Code() {
	case pkgerrors.CodeEmptyCart:
		return OutcomeEmptyCart
	case pkgerrors.CodeAlreadyCommitted:
		return OutcomeAlreadyCommitted
	case pkgerrors.CodeInsufficientStock:
		return OutcomeInsufficientStock
	case pkgerrors.CodeValidation:
		return OutcomeValidation
	case pkgerrors.CodeConflict:
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
