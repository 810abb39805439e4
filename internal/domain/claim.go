/**
 * @description
 * This file defines the Claim value object: the parsed and validated form of a
 * single dispute message taken off the assignment queue. A Claim lives only for
 * the duration of one message and is never persisted on its own; its fields are
 * copied onto the Assignment that the dispatcher writes.
 *
 * @dependencies
 * - github.com/go-playground/validator/v10: Struct-tag validation of the wire fields.
 * - github.com/shopspring/decimal: Exact parsing of the amount fields.
 *
 * @notes
 * - Source is the company that owns the routing rules. Target is only ever compared
 *   against rule criteria and must never be used to look up rule ownership.
 */
package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("claim validation failed")

// ValidationError lists the offending fields of a rejected claim message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ClaimMessage is the queue payload after key normalization. Every field arrives
// as a string; the amount fields are coerced to decimals by NewClaim.
type ClaimMessage struct {
	ProcessID              string `json:"ProcessId" validate:"required"`
	Target                 string `json:"Target" validate:"required"`
	Source                 string `json:"Source" validate:"required"`
	InvoiceAmount          string `json:"InvoiceAmount" validate:"required,nonnegative_decimal"`
	ClaimID                string `json:"ClaimId" validate:"required"`
	Value                  string `json:"Value" validate:"required,nonnegative_decimal"`
	DocumentNumber         string `json:"DocumentNumber,omitempty"`
	ExternalReference      string `json:"ExternalReference,omitempty"`
	ConceptApplicationCode string `json:"ConceptApplicationCode,omitempty"`
	ObjectionCode          string `json:"ObjectionCode,omitempty"`
}

// Claim is the validated dispute the rule engine evaluates.
type Claim struct {
	ProcessID              string          `json:"processId"`
	Target                 string          `json:"target"`
	Source                 string          `json:"source"`
	DocumentNumber         string          `json:"documentNumber,omitempty"`
	InvoiceAmount          decimal.Decimal `json:"invoiceAmount"`
	ExternalReference      string          `json:"externalReference,omitempty"`
	ClaimID                string          `json:"claimId"`
	ConceptApplicationCode string          `json:"conceptApplicationCode,omitempty"`
	ObjectionCode          string          `json:"objectionCode,omitempty"`
	Value                  decimal.Decimal `json:"value"`
}

// HasObjectionCode reports whether the claim carries an objection code at all.
func (c Claim) HasObjectionCode() bool {
	return c.ObjectionCode != ""
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func claimValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
			if err != nil {
				return false
			}
			return !d.IsNegative()
		})
	})
	return validate
}

// NewClaim validates a normalized message and coerces it into a Claim.
func NewClaim(msg ClaimMessage) (Claim, error) {
	if err := claimValidator().Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = describeTag(fe.Tag())
			}
			return Claim{}, &ValidationError{Fields: fields}
		}
		return Claim{}, fmt.Errorf("validate claim message: %w", err)
	}

	// Both parses are guaranteed to succeed after validation.
	invoiceAmount, _ := decimal.NewFromString(strings.TrimSpace(msg.InvoiceAmount))
	value, _ := decimal.NewFromString(strings.TrimSpace(msg.Value))

	return Claim{
		ProcessID:              msg.ProcessID,
		Target:                 msg.Target,
		Source:                 msg.Source,
		DocumentNumber:         msg.DocumentNumber,
		InvoiceAmount:          invoiceAmount,
		ExternalReference:      msg.ExternalReference,
		ClaimID:                msg.ClaimID,
		ConceptApplicationCode: msg.ConceptApplicationCode,
		ObjectionCode:          msg.ObjectionCode,
		Value:                  value,
	}, nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "nonnegative_decimal":
		return "must be a non-negative number"
	default:
		return "failed " + tag
	}
}
