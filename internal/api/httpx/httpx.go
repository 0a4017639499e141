// Package httpx — общие помощники HTTP-слоя: JSON-ответы, разбор тела
// запроса с валидацией и перевод ошибок сервиса в HTTP-статусы.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
)

// Response — тело успешного ответа.
type Response struct {
	Success       bool   `json:"success"`
	PointsAwarded *int64 `json:"pointsAwarded,omitempty"`
	Data          any    `json:"data,omitempty"`
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	RetryAfterSeconds *int64 `json:"retryAfterSeconds,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// В сообщениях об ошибках используем имена полей из json-тегов
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// JSON пишет ответ с указанным статусом.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Ошибка записи ответа")
	}
}

// OK пишет {success: true, data} (и pointsAwarded, если передан).
func OK(w http.ResponseWriter, data any, pointsAwarded *int64) {
	JSON(w, http.StatusOK, Response{Success: true, PointsAwarded: pointsAwarded, Data: data})
}

// Decode читает JSON-тело в dst и валидирует теги `validate`.
// Любая ошибка — common.ErrInvalidInput с понятным сообщением.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	// Пустое тело равносильно {}: обязательные поля отловит валидатор
	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		return fmt.Errorf("%w: malformed JSON body", common.ErrInvalidInput)
	default:
		// После объекта допустимы только пробелы
		var extra json.RawMessage
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON body", common.ErrInvalidInput)
		}
	}
	return Validate(dst)
}

// Validate проверяет структуру тегами `validate`.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "ne":
		return fmt.Sprintf("%s must not be %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// Error переводит ошибку сервиса в статус и безопасное сообщение.
// Детали ошибок БД уходят только в лог.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	body := ErrorResponse{Success: false, Error: msg}

	var rl *common.RateLimitError
	if errors.As(err, &rl) {
		secs := int64(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		body.RetryAfterSeconds = &secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}

	entry := log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Ошибка обработки запроса")
	} else {
		entry.Debug("Запрос отклонён")
	}

	JSON(w, status, body)
}

func classify(err error) (int, string) {
	var (
		cred    *common.CredibilityError
		rl      *common.RateLimitError
		unknown *common.UnknownActionError
	)
	switch {
	case errors.As(err, &cred):
		return http.StatusForbidden, cred.Error()
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, rl.Error()
	case errors.As(err, &unknown):
		return http.StatusBadRequest, unknown.Error()
	case errors.Is(err, common.ErrPersistence):
		return http.StatusInternalServerError, "internal error"
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrSelfAction):
		return http.StatusBadRequest, common.ErrSelfAction.Error()
	case errors.Is(err, common.ErrUnknownAction):
		return http.StatusBadRequest, common.ErrUnknownAction.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, common.ErrUnauthorized.Error()
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.ErrForbidden.Error()
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, common.ErrUserNotFound.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrDuplicate):
		return http.StatusConflict, common.ErrDuplicate.Error()
	case errors.Is(err, common.ErrLimitExceeded):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
