package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

// Money is encoded as a JSON number with two decimals.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeOptStr(e *jx.Encoder, field, v string) {
	if v == "" {
		return
	}
	e.FieldStart(field)
	e.Str(v)
}

func encodeCategory(e *jx.Encoder, c product.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("slug")
	e.Str(c.Slug)
	encodeOptStr(e, "description", c.Description)
	encodeOptStr(e, "imageUrl", c.ImageURL)
	e.ObjEnd()
}

func encodeCategories(e *jx.Encoder, cs []product.Category) {
	e.ArrStart()
	for _, c := range cs {
		encodeCategory(e, c)
	}
	e.ArrEnd()
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("sku")
	e.Str(p.SKU)
	encodeOptStr(e, "description", p.Description)

	e.FieldStart("price")
	encodeMoney(e, p.Price)
	if p.SalePrice.Valid {
		e.FieldStart("salePrice")
		encodeMoney(e, p.SalePrice.Decimal)
	}
	e.FieldStart("effectivePrice")
	encodeMoney(e, p.EffectivePrice())
	e.FieldStart("hasDiscount")
	e.Bool(p.HasDiscount())
	e.FieldStart("discountPercent")
	e.Int64(p.DiscountPercent())

	e.FieldStart("stockQuantity")
	e.Int(p.StockQuantity)
	e.FieldStart("inStock")
	e.Bool(p.StockQuantity > 0)
	e.FieldStart("featured")
	e.Bool(p.Featured)

	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(h.imageURL(img))
	}
	e.ArrEnd()

	if p.Category != nil {
		e.FieldStart("category")
		encodeCategory(e, *p.Category)
	} else if p.CategoryID != "" {
		e.FieldStart("categoryId")
		e.Str(p.CategoryID)
	}
	encodeOptStr(e, "seoTitle", p.SEOTitle)
	encodeOptStr(e, "seoDescription", p.SEODescription)
	if !p.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		encodeTime(e, p.CreatedAt)
	}
	e.ObjEnd()
}

func (h *Handler) encodeProducts(e *jx.Encoder, ps []product.Product) {
	e.ArrStart()
	for _, p := range ps {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
}

// encodeQuoteFields writes the rounded quote as fields of the current object.
func encodeQuoteFields(e *jx.Encoder, q pricing.Quote, freeShipping bool) {
	q = q.Rounded()
	e.FieldStart("subtotal")
	encodeMoney(e, q.Subtotal)
	e.FieldStart("tax")
	encodeMoney(e, q.Tax)
	e.FieldStart("shipping")
	encodeMoney(e, q.Shipping)
	e.FieldStart("total")
	encodeMoney(e, q.Total)
	e.FieldStart("freeShipping")
	e.Bool(freeShipping)
}

func (h *Handler) encodeCart(e *jx.Encoder, id string, entries cart.Entries) {
	count := 0
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range entries {
		count += it.Quantity
		e.ObjStart()
		e.FieldStart("product")
		h.encodeProduct(e, it.Product)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("lineTotal")
		encodeMoney(e, it.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("itemsCount")
	e.Int(count)
	if len(entries) == 0 {
		// Nothing ships, so an empty cart owes nothing.
		encodeQuoteFields(e, pricing.Quote{}, false)
	} else {
		q := h.pricing.QuoteCart(entries)
		encodeQuoteFields(e, q, q.FreeShipping())
	}
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.FieldStart("firstName")
	e.Str(a.FirstName)
	e.FieldStart("lastName")
	e.Str(a.LastName)
	encodeOptStr(e, "company", a.Company)
	e.FieldStart("addressLine1")
	e.Str(a.AddressLine1)
	encodeOptStr(e, "addressLine2", a.AddressLine2)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("postalCode")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentStatus")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)

	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal)
	e.FieldStart("tax")
	encodeMoney(e, o.TaxAmount)
	e.FieldStart("shipping")
	encodeMoney(e, o.ShippingAmount)
	e.FieldStart("total")
	encodeMoney(e, o.TotalAmount)

	e.FieldStart("billingAddress")
	encodeAddress(e, o.BillingAddress)
	e.FieldStart("shippingAddress")
	encodeAddress(e, o.ShippingAddress)
	encodeOptStr(e, "notes", o.Notes)

	if c := o.Customer; c != nil {
		e.FieldStart("customer")
		e.ObjStart()
		e.FieldStart("email")
		e.Str(c.Email)
		e.FieldStart("firstName")
		e.Str(c.FirstName)
		e.FieldStart("lastName")
		e.Str(c.LastName)
		encodeOptStr(e, "phone", c.Phone)
		e.ObjEnd()
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		encodeOptStr(e, "productName", it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, it.UnitPrice)
		e.FieldStart("total")
		encodeMoney(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()

	if !o.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		encodeTime(e, o.CreatedAt)
	}
	e.ObjEnd()
}
