// Package validation holds the plausibility checks applied to proxy input before any upstream call.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"hotel_finder/internal/domain"
)

const MaxLocationLen = 200

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	hotelIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return dateRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct runs tag validation and reports the first violated constraint.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return domain.Invalid(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "simpleemail":
		return "must be a valid email address"
	}
	return "failed " + fe.Tag() + " check"
}

func Location(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Invalid("location", "is required")
	}
	if utf8.RuneCountInString(s) > MaxLocationLen {
		return domain.Invalid("location", fmt.Sprintf("must be at most %d characters", MaxLocationLen))
	}
	return nil
}

func Date(field, s string) error {
	if s == "" {
		return domain.Invalid(field, "is required")
	}
	if !dateRe.MatchString(s) {
		return domain.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return nil
}

func Email(field, s string) error {
	if s == "" {
		return domain.Invalid(field, "is required")
	}
	if !emailRe.MatchString(s) {
		return domain.Invalid(field, "must be a valid email address")
	}
	return nil
}

// Coordinates parses and range-checks a latitude/longitude pair.
func Coordinates(lat, lon string) (domain.Coordinates, error) {
	if lat == "" || lon == "" {
		return domain.Coordinates{}, domain.Invalid("latitude/longitude", "are required")
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return domain.Coordinates{}, domain.Invalid("latitude", "must be a number")
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return domain.Coordinates{}, domain.Invalid("longitude", "must be a number")
	}
	c := domain.Coordinates{Latitude: la, Longitude: lo}
	return c, CoordinateRange(c)
}

func CoordinateRange(c domain.Coordinates) error {
	// NaN compares false against both bounds
	if !finite(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return domain.Invalid("latitude", "must be between -90 and 90")
	}
	if !finite(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return domain.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

// Amount parses a required finite, non-negative number.
func Amount(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) || v < 0 {
		return 0, domain.Invalid(field, "must be a non-negative number")
	}
	return v, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// PositiveInt parses a required integer >= 1.
func PositiveInt(field, s string) (int, error) {
	if s == "" {
		return 0, domain.Invalid(field, "is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.Invalid(field, "must be a positive integer")
	}
	return n, nil
}

// Currency upper-cases and checks an ISO 4217 style code.
func Currency(field, s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", domain.Invalid(field, "is required")
	}
	if !currencyRe.MatchString(s) {
		return "", domain.Invalid(field, "must be a 3-letter currency code")
	}
	return s, nil
}

// HotelIDs splits a comma list and rejects anything that is not a plain identifier.
func HotelIDs(field, s string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !hotelIDRe.MatchString(p) {
			return nil, domain.Invalid(field, "contains an invalid hotel id")
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, domain.Invalid(field, "is required")
	}
	return out, nil
}
