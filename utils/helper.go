package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/mmdatafocus/battles_backend/config"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// every audited mutation requires a human-entered reason of at least 5 chars,
// checked before anything is written
func ValidateReason(reason string) error {
	if len(strings.TrimSpace(reason)) < 5 {
		return errors.New("reason must be at least 5 characters")
	}
	return nil
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			// if not exists in map, append it, otherwise do nothing
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// execute given template string and return generated string
func ExecTemplate(tString string, data map[string]interface{}) (string, error) {
	t, err := template.New("sql").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing sql template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute sql template: " + err.Error())
	}
	return b.String(), nil
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

/* dates & weeks */

// DateOnly truncates a timestamp to midnight UTC. Record dates are stored
// date-only so uniqueness checks and week keys never depend on time of day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekKeyOf returns the ISO year-week key of a date, e.g. "2026-W05".
// Fixed-width so keys compare chronologically as plain strings.
func WeekKeyOf(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ParseWeekKey parses a "YYYY-Www" key into its ISO year and week number.
func ParseWeekKey(key string) (int, int, error) {
	var year, week int
	if _, err := fmt.Sscanf(key, "%4d-W%2d", &year, &week); err != nil {
		return 0, 0, errors.New("invalid week key: " + key)
	}
	if week < 1 || week > 53 {
		return 0, 0, errors.New("invalid week key: " + key)
	}
	return year, week, nil
}

// WeekRange returns the Monday 00:00 UTC start and Sunday 23:59:59 UTC end
// of an ISO week key.
func WeekRange(key string) (time.Time, time.Time, error) {
	year, week, err := ParseWeekKey(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// Jan 4 is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := jan4.AddDate(0, 0, -(weekday - 1)).AddDate(0, 0, (week-1)*7)
	sunday := monday.AddDate(0, 0, 7).Add(-time.Second)
	return monday, sunday, nil
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// ImportLock serializes spreadsheet imports so two concurrent uploads for the
// same source cannot interleave their upserts.
func ImportLock(ctx context.Context, source string, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", source, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("ImportLock:%s", source)
	lock, err := locker.Obtain(ctx, lockKey, 60*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain import lock", source, err)
		return nil, errors.New("another import is already running")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining import lock", source, err)
		return nil, err
	}
	return lock, nil
}
