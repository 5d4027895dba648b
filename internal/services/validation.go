package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	termTag      = "term"
	payMethodTag = "paymethod"
	moneyTag     = "money"
)

// amounts are stored as decimal(14,2)
const moneyPlaces = 2

var maxMoney = decimal.New(1, 12)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are compared as numbers by gt/gte
	Validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = Validate.RegisterValidation(termTag, termValidation)
	_ = Validate.RegisterValidation(payMethodTag, payMethodValidation)

	Validate.RegisterStructValidation(newPaymentValidation, NewPayment{})
	Validate.RegisterStructValidation(newFeeValidation, NewFee{})

	registerCustomValidationsTranslations(termTag, payMethodTag, moneyTag)
}

// registerCustomValidationsTranslations registers messages for the custom tags.
// The register func is a noop since the default translations are already in place.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case termTag:
		return "must be one of " + joinValues(models.Terms)
	case payMethodTag:
		return "must be one of " + joinValues(models.PaymentMethods)
	case moneyTag:
		return fmt.Sprintf("must have at most %d decimal places and be less than %s", moneyPlaces, maxMoney)
	default:
		return ""
	}
}

func joinValues[T ~string](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}

func termValidation(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(models.Term); ok {
		return t.Valid()
	}
	return false
}

func payMethodValidation(fl validator.FieldLevel) bool {
	if m, ok := fl.Field().Interface().(models.PaymentMethod); ok {
		return m.Valid()
	}
	return false
}

// validMoney reports whether d fits the stored column without rounding
func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(moneyPlaces)) && d.LessThan(maxMoney)
}

// custom type funcs hand gt/gte a float64, so precision is checked on the struct
func newPaymentValidation(sl validator.StructLevel) {
	p := sl.Current().Interface().(NewPayment)
	if !validMoney(p.Amount) {
		sl.ReportError(p.Amount, "amount", "Amount", moneyTag, "")
	}
}

func newFeeValidation(sl validator.StructLevel) {
	f := sl.Current().Interface().(NewFee)
	if f.Amount != nil && !validMoney(*f.Amount) {
		sl.ReportError(*f.Amount, "amount", "Amount", moneyTag, "")
	}
}

// validateStruct runs the struct tags of v and converts failures into a *ValidationError
func validateStruct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errors.Wrap(err, "validate")
	}
	fields := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(Translator)})
	}
	return &ValidationError{Err: err, Fields: fields}
}

// NewPayment is the input of RecordPayment
type NewPayment struct {
	StudentID string               `json:"studentId" validate:"required"`
	RouteID   string               `json:"routeId" validate:"required"`
	Amount    decimal.Decimal      `json:"amount" validate:"required,gt=0"`
	Term      models.Term          `json:"term" validate:"term"`
	Year      int                  `json:"year" validate:"required,gt=0"`
	Method    models.PaymentMethod `json:"method" validate:"paymethod"`
}

// NewFee is the input of UpsertFee. Amount is a pointer so an absent amount is
// told apart from a zero fee.
type NewFee struct {
	RouteID string           `json:"routeId" validate:"required"`
	Amount  *decimal.Decimal `json:"amount" validate:"required,gte=0"`
}

// AttendanceBatch is one day's roll call for a route
type AttendanceBatch struct {
	Date    string             `json:"date" validate:"required,datetime=2006-01-02"`
	RouteID string             `json:"routeId" validate:"required"`
	Records []AttendanceRecord `json:"records" validate:"required,min=1"`
}

// AttendanceRecord is one student's entry in a batch. Present defaults to true.
type AttendanceRecord struct {
	StudentID string  `json:"studentId"`
	BusID     *string `json:"busId,omitempty"`
	Present   *bool   `json:"present,omitempty"`
}
