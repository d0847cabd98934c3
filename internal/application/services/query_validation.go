package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

var (
	queryValidator     *validator.Validate
	queryValidatorOnce sync.Once
)

func getQueryValidator() *validator.Validate {
	queryValidatorOnce.Do(func() {
		queryValidator = validator.New(validator.WithRequiredStructEnabled())
		queryValidator.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return queryValidator
}

// ValidateSearchQuery checks a query before any provider is contacted
func ValidateSearchQuery(query entities.SearchQuery) error {
	if err := getQueryValidator().Struct(query); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperrors.NewValidationError(describeFieldError(fieldErrs[0]))
		}
		return apperrors.NewValidationError(err.Error())
	}

	if (query.Latitude == nil) != (query.Longitude == nil) {
		return apperrors.NewValidationError("latitude and longitude must be provided together")
	}
	if !query.HasCoordinates() && query.TrimmedCity() == "" {
		return apperrors.NewValidationError("either coordinates or a city is required")
	}

	start, err := parseQueryDate("startDate", query.StartDate)
	if err != nil {
		return err
	}
	end, err := parseQueryDate("endDate", query.EndDate)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return apperrors.NewValidationError("endDate must not be before startDate")
	}

	for _, token := range query.Sources {
		if _, ok := entities.ParseSource(token); !ok {
			return apperrors.NewInvalidSourceError(token)
		}
	}
	for _, token := range query.ExcludeSources {
		if _, ok := entities.ParseSource(token); !ok {
			return apperrors.NewInvalidSourceError(token)
		}
	}
	return nil
}

func parseQueryDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, ok := entities.ParseEventTime(value)
	if !ok {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("%s %q is not a valid date", field, value))
	}
	return t, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
