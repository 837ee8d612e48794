package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/mailer"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/order"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/payment"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/supplier"
)

// CartSource is the stored-cart surface the checkout flow needs. Guests
// bypass it entirely; their lines arrive with the request.
type CartSource interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	PersistClampedQuantities(ctx context.Context, userID string, changed []domain.ChangedLine) error
	ClearCart(ctx context.Context, userID string) error
}

type Inventory interface {
	Resolve(ctx context.Context, userID string, lines []domain.CartLine) (*domain.CartView, error)
	CheckAndClamp(view *domain.CartView) (*domain.CartView, []domain.ChangedLine)
	Commit(ctx context.Context, view *domain.CartView) error
}

type Pricer interface {
	Price(ctx context.Context, cart *domain.CartView, userID string) (*domain.PriceBreakdown, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	SetSupplierOrder(ctx context.Context, id uuid.UUID, supplierOrderID string) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)

	CreateCheckoutSession(ctx context.Context, session *order.CheckoutSession) error
	GetSessionByIdempotencyKey(ctx context.Context, key string) (*uuid.UUID, *domain.CheckoutStatus, error)
	GetSession(ctx context.Context, id uuid.UUID) (*order.CheckoutSession, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error
	SetSessionProviderOrder(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, providerOrderID string) error
	SetSessionPayment(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, transactionID string) error
	CompleteSession(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, orderID *uuid.UUID) error
}

type SupplierGateway interface {
	PlaceOrder(ctx context.Context, po *supplier.PurchaseOrder) (string, error)
}

// Request starts a checkout. For registered users the cart comes from
// storage and GuestLines must be empty; for guests UserID is empty and the
// lines travel in the request body.
type Request struct {
	UserID             string
	GuestLines         []domain.CartLine
	Email              string
	ShippingAddress    domain.Address
	BillingAddress     domain.Address
	PaymentMethodNonce string
	IdempotencyKey     string
}

type Result struct {
	SessionID   uuid.UUID              `json:"session_id"`
	Status      domain.CheckoutStatus  `json:"status"`
	ApprovalURL string                 `json:"approval_url,omitempty"`
	OrderID     *uuid.UUID             `json:"order_id,omitempty"`
	Breakdown   *domain.PriceBreakdown `json:"breakdown,omitempty"`
	Changed     []domain.ChangedLine   `json:"changed_lines,omitempty"`
}

// CheckResult is the outcome of a dry-run stock check: the cart as it
// would be purchased, priced, with every clamp reported.
type CheckResult struct {
	Cart      *domain.CartView       `json:"cart"`
	Breakdown *domain.PriceBreakdown `json:"breakdown"`
	Changed   []domain.ChangedLine   `json:"changed_lines,omitempty"`
}

// sessionSnapshot freezes the priced cart at initiation so a later capture
// call replays the exact amounts the provider approved.
type sessionSnapshot struct {
	View      *domain.CartView       `json:"view"`
	Breakdown *domain.PriceBreakdown `json:"breakdown"`
}

type checkoutData struct {
	Email           string         `json:"email"`
	ShippingAddress domain.Address `json:"shipping_address"`
	BillingAddress  domain.Address `json:"billing_address"`
}

// Service drives a checkout from priced cart to placed supplier order.
//
// The order of operations is deliberate: payment captures first, then the
// local order is written, then the supplier is asked to fulfil. Every
// failure after capture pages the operator with the transaction id so the
// charge can be refunded by hand; a supplier failure additionally deletes
// the local order. A mail failure after a successful placement never rolls
// anything back; the order stands and only the operator hears about it.
type Service struct {
	carts     CartSource
	inventory Inventory
	pricer    Pricer
	orders    OrderStore
	gateway   payment.Gateway
	supplier  SupplierGateway
	mail      mailer.Mailer

	currency      string
	operatorEmail string
}

func NewService(
	carts CartSource,
	inventory Inventory,
	pricer Pricer,
	orders OrderStore,
	gateway payment.Gateway,
	supplierGw SupplierGateway,
	mail mailer.Mailer,
	currency, operatorEmail string,
) *Service {
	return &Service{
		carts:         carts,
		inventory:     inventory,
		pricer:        pricer,
		orders:        orders,
		gateway:       gateway,
		supplier:      supplierGw,
		mail:          mail,
		currency:      currency,
		operatorEmail: operatorEmail,
	}
}

// Check resolves, clamps and prices a cart without touching payment or
// stock. Clamped quantities are written back to registered users' carts.
func (s *Service) Check(ctx context.Context, userID string, guestLines []domain.CartLine) (*CheckResult, error) {
	view, changed, err := s.resolveAndClamp(ctx, userID, guestLines)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.pricer.Price(ctx, view, userID)
	if err != nil {
		return nil, err
	}

	return &CheckResult{Cart: view, Breakdown: breakdown, Changed: changed}, nil
}

// Start begins a checkout. With a one-phase provider the whole flow runs to
// completion here; with a two-phase provider the caller gets an approval
// URL back and finishes via Capture.
func (s *Service) Start(ctx context.Context, req *Request) (*Result, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	if req.IdempotencyKey != "" {
		if res, err := s.replayByKey(ctx, req.IdempotencyKey); err == nil {
			return res, nil
		} else if !errors.Is(err, order.ErrIdempotencyKeyNotFound) {
			return nil, err
		}
	}

	view, changed, err := s.resolveAndClamp(ctx, req.UserID, req.GuestLines)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.pricer.Price(ctx, view, req.UserID)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, req, view, breakdown)
	if errors.Is(err, order.ErrDuplicateSession) {
		// lost a race against a concurrent retry with the same key
		return s.replayByKey(ctx, req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	tx, err := s.gateway.CreateTransaction(ctx, &payment.TransactionRequest{
		Reference: session.ID.String(),
		Currency:  s.currency,
		Breakdown: breakdown,
		Customer: payment.Customer{
			Email:    req.Email,
			Billing:  req.BillingAddress,
			Shipping: req.ShippingAddress,
		},
		PaymentMethodNonce: req.PaymentMethodNonce,
	})
	if err != nil {
		s.failSession(ctx, session.ID)
		return nil, err
	}

	if tx.Captured == nil {
		// two-phase provider: park the session until the buyer approves
		if err := s.orders.SetSessionProviderOrder(ctx, session.ID, domain.CheckoutStatusPaymentPending, tx.ProviderOrderID); err != nil {
			return nil, err
		}
		return &Result{
			SessionID:   session.ID,
			Status:      domain.CheckoutStatusPaymentPending,
			ApprovalURL: tx.ApprovalURL,
			Breakdown:   breakdown,
			Changed:     changed,
		}, nil
	}

	if err := s.orders.SetSessionPayment(ctx, session.ID, domain.CheckoutStatusPaymentCompleted, tx.Captured.ExternalTransactionID); err != nil {
		return nil, err
	}

	res, err := s.finalize(ctx, session.ID, req.UserID, view, breakdown,
		checkoutData{Email: req.Email, ShippingAddress: req.ShippingAddress, BillingAddress: req.BillingAddress},
		tx.Captured)
	if err != nil {
		return nil, err
	}
	res.Changed = changed
	return res, nil
}

// Capture finishes a two-phase checkout after the buyer approved the
// payment with the provider. Calling it on an already completed session
// replays the stored outcome instead of charging twice.
func (s *Service) Capture(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	session, err := s.orders.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, order.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: checkout session", domain.ErrNotFound)
		}
		return nil, err
	}

	if session.Status == domain.CheckoutStatusCompleted {
		return &Result{SessionID: session.ID, Status: session.Status, OrderID: session.OrderID}, nil
	}
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusPaymentCompleted) {
		return nil, fmt.Errorf("%w: session in status %s cannot be captured", domain.ErrValidation, session.Status)
	}

	captured, err := s.gateway.CaptureTransaction(ctx, session.ProviderOrderID)
	if err != nil {
		s.failSession(ctx, session.ID)
		return nil, err
	}

	if err := s.orders.SetSessionPayment(ctx, session.ID, domain.CheckoutStatusPaymentCompleted, captured.ExternalTransactionID); err != nil {
		return nil, err
	}

	var snapshot sessionSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	var data checkoutData
	if err := json.Unmarshal(session.CheckoutData, &data); err != nil {
		return nil, fmt.Errorf("unmarshal checkout data: %w", err)
	}

	return s.finalize(ctx, session.ID, session.UserID, snapshot.View, snapshot.Breakdown, data, captured)
}

// GetOrder returns an order, enforcing that a registered user only sees
// their own.
func (s *Service) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: order", domain.ErrNotFound)
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrPermission
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

func (s *Service) resolveAndClamp(ctx context.Context, userID string, guestLines []domain.CartLine) (*domain.CartView, []domain.ChangedLine, error) {
	lines := guestLines
	if userID != "" {
		stored, err := s.carts.GetCart(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		lines = stored.Lines
	}

	view, err := s.inventory.Resolve(ctx, userID, lines)
	if err != nil {
		return nil, nil, err
	}

	clamped, changed := s.inventory.CheckAndClamp(view)

	if len(changed) > 0 && userID != "" {
		if err := s.carts.PersistClampedQuantities(ctx, userID, changed); err != nil {
			log.Printf("persist clamped quantities for user %s: %v", userID, err)
		}
	}

	return clamped, changed, nil
}

func (s *Service) createSession(ctx context.Context, req *Request, view *domain.CartView, breakdown *domain.PriceBreakdown) (*order.CheckoutSession, error) {
	snapshot, err := json.Marshal(sessionSnapshot{View: view, Breakdown: breakdown})
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	data, err := json.Marshal(checkoutData{
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout data: %w", err)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	session := &order.CheckoutSession{
		ID:             uuid.New(),
		UserID:         req.UserID,
		IdempotencyKey: key,
		CartSnapshot:   snapshot,
		CheckoutData:   data,
		Status:         domain.CheckoutStatusInitiated,
	}
	if err := s.orders.CreateCheckoutSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// finalize runs after payment capture: write the order, commit stock, place
// the supplier order, close the session, notify the buyer.
func (s *Service) finalize(
	ctx context.Context,
	sessionID uuid.UUID,
	userID string,
	view *domain.CartView,
	breakdown *domain.PriceBreakdown,
	data checkoutData,
	captured *domain.PaymentResult,
) (*Result, error) {
	o := buildOrder(userID, data, breakdown, captured)
	if err := s.orders.CreateOrder(ctx, o); err != nil {
		// money is captured but no order row exists; same compensation
		// as a supplier failure minus the delete
		s.failSession(ctx, sessionID)
		s.alertCheckoutFailure(ctx, o, captured, fmt.Errorf("create order: %w", err))
		return nil, err
	}

	// Stock failures never abort a paid order; the supplier sync poller
	// reconciles the counters, the operator just gets told.
	if err := s.inventory.Commit(ctx, view); err != nil {
		log.Printf("stock commit for order %s: %v", o.ID, err)
		s.alertOperator(ctx, map[string]interface{}{
			"order_id":       o.ID.String(),
			"transaction_id": captured.ExternalTransactionID,
			"error":          err.Error(),
		})
	}

	supplierOrderID, err := s.supplier.PlaceOrder(ctx, &supplier.PurchaseOrder{
		InternalReference: o.ID.String(),
		Email:             data.Email,
		ShippingAddress:   data.ShippingAddress,
		Products:          supplierProducts(view),
	})
	if err != nil {
		s.compensateSupplierFailure(ctx, sessionID, o, captured, err)
		return nil, err
	}

	if err := s.orders.SetSupplierOrder(ctx, o.ID, supplierOrderID); err != nil {
		return nil, err
	}
	if err := s.orders.CompleteSession(ctx, sessionID, domain.CheckoutStatusCompleted, &o.ID); err != nil {
		return nil, err
	}

	if userID != "" {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			log.Printf("clear cart for user %s: %v", userID, err)
		}
	}

	s.sendConfirmation(ctx, o, supplierOrderID)

	return &Result{
		SessionID: sessionID,
		Status:    domain.CheckoutStatusCompleted,
		OrderID:   &o.ID,
		Breakdown: breakdown,
	}, nil
}

// compensateSupplierFailure handles the captured-but-unfulfillable case:
// the local order is deleted and the operator is paged with the provider
// transaction id so the charge can be refunded manually.
func (s *Service) compensateSupplierFailure(ctx context.Context, sessionID uuid.UUID, o *domain.Order, captured *domain.PaymentResult, cause error) {
	if err := s.orders.DeleteOrder(ctx, o.ID); err != nil {
		log.Printf("delete order %s after supplier failure: %v", o.ID, err)
	}
	s.failSession(ctx, sessionID)
	s.alertCheckoutFailure(ctx, o, captured, cause)
}

// alertCheckoutFailure pages the operator about money captured without a
// fulfilled order; the transaction id is what the manual refund needs.
func (s *Service) alertCheckoutFailure(ctx context.Context, o *domain.Order, captured *domain.PaymentResult, cause error) {
	alert := mailer.Message{
		Template: mailer.TemplateCheckoutError,
		To:       s.operatorEmail,
		Data: map[string]interface{}{
			"order_id":       o.ID.String(),
			"transaction_id": captured.ExternalTransactionID,
			"provider":       string(captured.Provider),
			"amount":         o.TotalAmount.StringFixed(2),
			"email":          o.Email,
			"error":          cause.Error(),
		},
	}
	if err := s.mail.Send(ctx, alert); err != nil {
		log.Printf("send checkout-failure alert for order %s: %v", o.ID, err)
	}
}

func (s *Service) alertOperator(ctx context.Context, data map[string]interface{}) {
	msg := mailer.Message{
		Template: mailer.TemplateOperatorAlert,
		To:       s.operatorEmail,
		Data:     data,
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.Printf("send operator alert: %v", err)
	}
}

// sendConfirmation mails the buyer. A failure here leaves the placed order
// untouched; only the operator is told.
func (s *Service) sendConfirmation(ctx context.Context, o *domain.Order, supplierOrderID string) {
	msg := mailer.Message{
		Template: mailer.TemplateOrderConfirmation,
		To:       o.Email,
		Data: map[string]interface{}{
			"order_id":          o.ID.String(),
			"supplier_order_id": supplierOrderID,
			"total":             o.TotalAmount.StringFixed(2),
		},
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.Printf("send confirmation for order %s: %v", o.ID, err)
		s.alertOperator(ctx, map[string]interface{}{
			"order_id": o.ID.String(),
			"email":    o.Email,
			"error":    err.Error(),
		})
	}
}

func (s *Service) failSession(ctx context.Context, sessionID uuid.UUID) {
	if err := s.orders.UpdateSessionStatus(ctx, sessionID, domain.CheckoutStatusFailed); err != nil {
		log.Printf("mark session %s failed: %v", sessionID, err)
	}
}

func (s *Service) replayByKey(ctx context.Context, key string) (*Result, error) {
	id, _, err := s.orders.GetSessionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	session, err := s.orders.GetSession(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &Result{
		SessionID: session.ID,
		Status:    session.Status,
		OrderID:   session.OrderID,
	}, nil
}

func buildOrder(userID string, data checkoutData, breakdown *domain.PriceBreakdown, captured *domain.PaymentResult) *domain.Order {
	o := &domain.Order{
		ID:                   uuid.New(),
		UserID:               userID,
		Email:                data.Email,
		ShippingAddress:      data.ShippingAddress,
		Subtotal:             breakdown.Subtotal,
		VAT:                  breakdown.VAT,
		Discount:             breakdown.Discount,
		TotalAmount:          breakdown.Total,
		PaymentProvider:      captured.Provider,
		PaymentTransactionID: captured.ExternalTransactionID,
		Status:               domain.OrderStatusPending,
	}
	for _, line := range breakdown.Lines {
		o.Items = append(o.Items, domain.OrderItem{
			InventoryID: line.InventoryID,
			PackID:      line.PackID,
			SKU:         line.SKU,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VAT:         line.VAT,
			Total:       line.Total,
		})
	}
	return o
}

func supplierProducts(view *domain.CartView) []supplier.ProductRef {
	products := make([]supplier.ProductRef, 0, len(view.Lines))
	for _, line := range view.Lines {
		products = append(products, supplier.ProductRef{SKU: line.SKU, Quantity: line.Quantity})
	}
	return products
}
