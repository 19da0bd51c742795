package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Periods accepted by the price sources.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// symbolPattern admits exchange suffixes (TCS.NS), indices (^NSEI) and
// currency pairs (USDINR=X).
var symbolPattern = regexp.MustCompile(`^[\^A-Za-z0-9][A-Za-z0-9.\-=&]{0,31}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report request fields by their wire name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || symbolPattern.MatchString(s)
	})
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, p := range Periods {
			if s == p {
				return true
			}
		}
		return false
	})
	return v
}

// Bind reads path, query and body into req, applies `default` tags and
// validates it. A nil result means req is ready to use.
func Bind(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		out := make([]ValidationError, 0, len(ves))
		for _, fe := range ves {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: message(fe),
				Params:  params(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprint(he.Message)}}
	}
	return []ValidationError{{Code: "ERR_BIND", Message: err.Error()}}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "symbol":
		return fmt.Sprintf("%s is not a ticker symbol: %q", field, fe.Value())
	case "period":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(Periods, ", "))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func params(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	case "period":
		return map[string]interface{}{"options": Periods}
	}
	return nil
}
