// Package cart implements the session-scoped shopping cart.
//
// A Cart is owned by exactly one session and serialises its own mutations.
// While a checkout is running the cart is frozen: mutations and a second
// checkout fail with ErrCheckoutInProgress until the checkout commits or
// aborts.
package cart

import (
	"math"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

var (
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrItemNotFound is returned when updating a product that is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrCheckoutInProgress is returned when the cart is frozen by a running checkout.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrEmptyCart is returned when checking out a cart with no entries.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock is returned when a change would hold more units
	// than the caller's limit allows.
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
)

// Entry pairs a product snapshot with a positive quantity.
type Entry struct {
	Product  product.Product
	Quantity int
}

// LineTotal returns the effective unit price times the quantity.
func (e Entry) LineTotal() decimal.Decimal {
	return e.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Entries is a snapshot of cart lines.
type Entries []Entry

// Total sums the line totals of the snapshot.
func (es Entries) Total() decimal.Decimal {
	return sumEntries(es)
}

// Cart is an ordered set of entries keyed by product ID.
type Cart struct {
	id string

	mu          sync.Mutex
	entries     []Entry
	index       map[string]int
	checkingOut bool
	touched     time.Time
	now         func() time.Time
}

// New returns an empty cart with the given identifier.
func New(id string) *Cart {
	return newCart(id, time.Now)
}

func newCart(id string, now func() time.Time) *Cart {
	return &Cart{
		id:      id,
		index:   make(map[string]int),
		touched: now(),
		now:     now,
	}
}

// ID returns the cart identifier.
func (c *Cart) ID() string { return c.id }

// Add puts quantity units of p into the cart. An existing entry for the same
// product is incremented; the product snapshot taken on first add is kept.
func (c *Cart) Add(p product.Product, quantity int) error {
	return c.AddWithin(p, quantity, math.MaxInt)
}

// AddWithin is Add that fails with ErrInsufficientStock when the resulting
// quantity would exceed limit. The check and the increment share one lock.
func (c *Cart) AddWithin(p product.Product, quantity, limit int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckoutInProgress
	}
	if c.quantity(p.ID) > limit-quantity {
		return ErrInsufficientStock
	}
	c.add(p, quantity)
	return nil
}

func (c *Cart) add(p product.Product, quantity int) {
	c.touched = c.now()
	if i, ok := c.index[p.ID]; ok {
		c.entries[i].Quantity += quantity
		return
	}
	c.index[p.ID] = len(c.entries)
	c.entries = append(c.entries, Entry{Product: p, Quantity: quantity})
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.quantity(productID)
}

func (c *Cart) quantity(productID string) int {
	if i, ok := c.index[productID]; ok {
		return c.entries[i].Quantity
	}
	return 0
}

// UpdateQuantity sets the absolute quantity for productID. A quantity of zero
// or less removes the entry.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	return c.UpdateWithin(productID, quantity, math.MaxInt)
}

// UpdateWithin is UpdateQuantity that fails with ErrInsufficientStock when a
// positive quantity exceeds limit.
func (c *Cart) UpdateWithin(productID string, quantity, limit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckoutInProgress
	}
	i, ok := c.index[productID]
	if !ok {
		if quantity <= 0 {
			return nil
		}
		return ErrItemNotFound
	}
	if quantity <= 0 {
		c.remove(productID)
		return nil
	}
	if quantity > limit {
		return ErrInsufficientStock
	}
	c.entries[i].Quantity = quantity
	c.touched = c.now()
	return nil
}

// Remove deletes the entry for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckoutInProgress
	}
	c.remove(productID)
	return nil
}

func (c *Cart) remove(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].Product.ID] = j
	}
	c.touched = c.now()
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckoutInProgress
	}
	c.clear()
	return nil
}

func (c *Cart) clear() {
	c.entries = nil
	c.index = make(map[string]int)
	c.touched = c.now()
}

// Merge adds every entry of other through the same rule as Add. Entries with
// a non-positive quantity are skipped.
func (c *Cart) Merge(other []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckoutInProgress
	}
	for _, e := range other {
		if e.Quantity <= 0 {
			continue
		}
		c.add(e.Product, e.Quantity)
	}
	return nil
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

func (c *Cart) snapshot() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ItemsCount returns the sum of quantities across all entries.
func (c *Cart) ItemsCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return countItems(c.entries)
}

// Total returns the sum of effective price times quantity, unrounded.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return sumEntries(c.entries)
}

// LastTouched returns the time of the last mutation or store lookup.
func (c *Cart) LastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.touched
}

func (c *Cart) touch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.touched) {
		c.touched = t
	}
}

// BeginCheckout freezes the cart and returns a handle carrying a snapshot of
// its entries. Exactly one checkout may be active per cart.
func (c *Cart) BeginCheckout() (*Checkout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return nil, ErrCheckoutInProgress
	}
	if len(c.entries) == 0 {
		return nil, ErrEmptyCart
	}
	c.checkingOut = true
	return &Checkout{cart: c, entries: c.snapshot()}, nil
}

func (c *Cart) release(clear bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if clear {
		c.clear()
	}
	c.checkingOut = false
}

// Checkout is an in-flight checkout of a cart. Exactly one of Commit or Abort
// must be called.
type Checkout struct {
	cart    *Cart
	entries []Entry
	once    sync.Once
}

// Entries returns the snapshot taken when the checkout began.
func (co *Checkout) Entries() []Entry {
	out := make([]Entry, len(co.entries))
	copy(out, co.entries)
	return out
}

// Subtotal returns the unrounded total of the snapshot.
func (co *Checkout) Subtotal() decimal.Decimal {
	return sumEntries(co.entries)
}

// Commit clears the cart and unfreezes it.
func (co *Checkout) Commit() {
	co.once.Do(func() { co.cart.release(true) })
}

// Abort unfreezes the cart and keeps its entries.
func (co *Checkout) Abort() {
	co.once.Do(func() { co.cart.release(false) })
}

func sumEntries(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.LineTotal())
	}
	return sum
}

func countItems(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}
