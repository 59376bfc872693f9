package order

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// CheckoutRequest is the checkout form.
type CheckoutRequest struct {
	Customer        customer.Info `json:"customer"`
	BillingAddress  Address       `json:"billingAddress"`
	ShippingAddress Address       `json:"shippingAddress" validate:"-"`
	SameAsBilling   bool          `json:"sameAsBilling"`
	PaymentMethod   string        `json:"paymentMethod"`
	Notes           string        `json:"notes"`
}

// Confirmation is returned for a successfully submitted checkout.
type Confirmation struct {
	OrderNumber string
	Order       *Order
	// Quote holds the totals as persisted, rounded to cents.
	Quote pricing.Quote
}

// Config holds the pipeline settings.
type Config struct {
	// Timeout bounds the store round trips of one submission. Zero means
	// no bound beyond the caller's context.
	Timeout time.Duration
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for submission spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for submission counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(instrumentationName) }
}

// Service runs the order submission pipeline.
type Service struct {
	customers *customer.Resolver
	orders    Repository
	pricing   *pricing.Calculator
	numbers   *NumberGenerator
	validate  *validator.Validate
	timeout   time.Duration

	tracer    trace.Tracer
	meter     metric.Meter
	submitted metric.Int64Counter
	failed    metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	customers *customer.Resolver,
	orders Repository,
	calc *pricing.Calculator,
	numbers *NumberGenerator,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		customers: customers,
		orders:    orders,
		pricing:   calc,
		numbers:   numbers,
		validate:  newValidator(),
		timeout:   cfg.Timeout,
		tracer:    tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:     metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.submitted, err = s.meter.Int64Counter("storefront.orders.submitted",
		metric.WithDescription("Orders persisted successfully"),
	); err != nil {
		return nil, errors.Wrap(err, "create submitted counter")
	}
	if s.failed, err = s.meter.Int64Counter("storefront.orders.failed",
		metric.WithDescription("Order submissions that failed after validation"),
	); err != nil {
		return nil, errors.Wrap(err, "create failed counter")
	}
	return s, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the checkout form without touching the store. It returns a
// *ValidationError describing every failing field.
func (s *Service) Validate(req CheckoutRequest) error {
	fields := make(map[string]string)
	collectFieldErrors(fields, "", s.validate.Struct(req))
	if !req.SameAsBilling {
		collectFieldErrors(fields, "shippingAddress.", s.validate.Struct(req.ShippingAddress))
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func collectFieldErrors(dst map[string]string, prefix string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		// Drop the root struct name from the namespace.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		dst[prefix+path] = describeTag(fe.Tag())
	}
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid (" + tag + ")"
	}
}

// normalize fills defaults and resolves the shipping address.
func (r CheckoutRequest) normalize() CheckoutRequest {
	r.Customer.Email = customer.NormalizeEmail(r.Customer.Email)
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	if r.PaymentMethod == "" {
		r.PaymentMethod = DefaultPaymentMethod
	}
	if r.BillingAddress.Country == "" {
		r.BillingAddress.Country = "US"
	}
	if r.SameAsBilling {
		r.ShippingAddress = r.BillingAddress
	} else if r.ShippingAddress.Country == "" {
		r.ShippingAddress.Country = "US"
	}
	return r
}

// Submit validates the form, freezes the cart, persists customer, order and
// items, and clears the cart on success. On any store failure it returns a
// *SubmissionError and leaves the cart as it was. A concurrent Submit on the
// same cart fails with cart.ErrCheckoutInProgress.
func (s *Service) Submit(ctx context.Context, c *cart.Cart, req CheckoutRequest) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit",
		trace.WithAttributes(attribute.String("cart.id", c.ID())),
	)
	defer span.End()

	req = req.normalize()
	if err := s.Validate(req); err != nil {
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	co, err := c.BeginCheckout()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conf, err := s.persist(ctx, co, req)
	if err != nil {
		co.Abort()

		stage := Stage("unknown")
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			stage = subErr.Stage
		}
		s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return nil, err
	}
	co.Commit()

	s.submitted.Add(ctx, 1)
	span.SetAttributes(attribute.String("order.number", conf.OrderNumber))
	return conf, nil
}

func (s *Service) persist(ctx context.Context, co *cart.Checkout, req CheckoutRequest) (*Confirmation, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	lg := zctx.From(ctx)

	number, err := s.numbers.Next()
	if err != nil {
		return nil, &SubmissionError{Stage: StageNumber, Err: err}
	}
	lg = lg.With(zap.String("order_number", number))

	cust, created, err := s.customers.Resolve(ctx, req.Customer)
	if err != nil {
		return nil, &SubmissionError{Stage: StageCustomer, Err: err}
	}
	lg.Debug("Customer resolved",
		zap.String("customer_id", cust.ID),
		zap.Bool("created", created),
	)

	quote := s.pricing.Quote(co.Subtotal()).Rounded()
	o := &Order{
		Number:          number,
		CustomerID:      cust.ID,
		Status:          StatusPending,
		Subtotal:        quote.Subtotal,
		TaxAmount:       quote.Tax,
		ShippingAmount:  quote.Shipping,
		TotalAmount:     quote.Total,
		BillingAddress:  req.BillingAddress,
		ShippingAddress: req.ShippingAddress,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Customer:        cust,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, &SubmissionError{Stage: StageOrder, OrderNumber: number, Err: err}
	}

	items := itemsFromEntries(co.Entries())
	if err := s.orders.CreateItems(ctx, o.ID, items); err != nil {
		lg.Warn("Order stored without items",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return nil, &SubmissionError{Stage: StageItems, OrderNumber: number, Err: err}
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	o.Items = items

	lg.Info("Order submitted",
		zap.String("order_id", o.ID),
		zap.String("customer_id", cust.ID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Int("items", len(items)),
	)
	return &Confirmation{OrderNumber: number, Order: o, Quote: quote}, nil
}

// itemsFromEntries freezes the effective price of each entry.
func itemsFromEntries(entries []cart.Entry) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{
			ProductID:   e.Product.ID,
			ProductName: e.Product.Name,
			Quantity:    e.Quantity,
			UnitPrice:   e.Product.EffectivePrice(),
			Total:       e.LineTotal(),
		}
	}
	return items
}

// Lookup returns a previously submitted order by its number.
func (s *Service) Lookup(ctx context.Context, number string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}
