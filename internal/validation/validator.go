// Package validation provides request validation for srvadm.
//
// It covers three levels of checking:
//   - IPv4 syntax (IsValidIP), the dotted quad form the inventory stores
//   - Required key presence on raw JSON documents (HasRequiredKeys)
//   - Struct-level constraints through go-playground/validator tags
//
// # Usage Example
//
//	v := validation.New()
//	result := v.ValidateDocument(body, "host_name", "ip", "role")
//	if !result.Valid {
//	    for _, err := range result.Errors {
//	        fmt.Printf("%s: %s\n", err.Field, err.Message)
//	    }
//	}
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ipPattern accepts exactly four decimal octets in [0,255]. A leading zero
// is only allowed for the literal octet 0.
var ipPattern = regexp.MustCompile(`^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])$`)

// Validator handles payload validation for inventory requests.
type Validator struct {
	// structValidator validates Go struct constraints and tags
	structValidator *validator.Validate
}

// ValidationError represents a single validation error with field-level details.
type ValidationError struct {
	// Field is the name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// Error joins the field errors into one message.
func (r *ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// New creates a Validator with the "dottedquad" tag registered and field
// names reported by their json tag.
func New() *Validator {
	v := validator.New()

	if err := v.RegisterValidation("dottedquad", func(fl validator.FieldLevel) bool {
		return IsValidIP(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register dottedquad validation: %v", err))
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Validator{structValidator: v}
}

// IsValidIP reports whether s is a dotted quad IPv4 address.
func IsValidIP(s string) bool {
	return ipPattern.MatchString(s)
}

// HasRequiredKeys reports whether every key is present in record. Values are
// not inspected, so empty strings and nulls count as present.
func HasRequiredKeys(record map[string]json.RawMessage, keys ...string) bool {
	return len(MissingKeys(record, keys...)) == 0
}

// MissingKeys returns the keys absent from record, in the order given.
func MissingKeys(record map[string]json.RawMessage, keys ...string) []string {
	var missing []string
	for _, key := range keys {
		if _, ok := record[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// ValidateDocument checks that data is a JSON object carrying every key.
func (v *Validator) ValidateDocument(data []byte, keys ...string) *ValidationResult {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil || record == nil {
		msg := "Document must be a JSON object"
		if err != nil {
			msg = fmt.Sprintf("Invalid JSON: %v", err)
		}
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "document", Message: msg}},
		}
	}

	var errs []ValidationError
	for _, key := range MissingKeys(record, keys...) {
		errs = append(errs, ValidationError{
			Field:   key,
			Message: fmt.Sprintf("%s is required", key),
		})
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Struct validates s against its validate tags.
func (v *Validator) Struct(s interface{}) *ValidationResult {
	err := v.structValidator.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "document", Message: err.Error()}},
		}
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
			Value:   fe.Value(),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "dottedquad":
		return "Invalid IP address format"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
