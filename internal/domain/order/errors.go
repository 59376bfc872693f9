package order

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists checkout form fields that are missing or malformed.
// Keys are dotted field paths such as "billingAddress.city".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return "invalid checkout: " + strings.Join(parts, "; ")
}

// Stage names the step of the submission pipeline that failed.
type Stage string

const (
	StageNumber   Stage = "number"
	StageCustomer Stage = "customer"
	StageOrder    Stage = "order"
	StageItems    Stage = "items"
)

// SubmissionError is returned for any failure while persisting a checkout.
// The cart is left untouched when it is returned.
type SubmissionError struct {
	Stage Stage
	// OrderNumber is set when the order row may already exist in the store.
	OrderNumber string
	Err         error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit order: %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
