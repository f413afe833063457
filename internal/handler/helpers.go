package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// Fixed user-facing messages. Raw backend errors never reach clients;
// only locally produced validation messages are passed through.
const (
	msgNetwork        = "Unable to connect. Please check your internet connection."
	msgAuthentication = "Your session has expired. Please log in again."
	msgAuthorization  = "You do not have permission to perform this action."
	msgValidation     = "Please check your input and try again."
	msgNotFound       = "The requested resource was not found."
	msgServer         = "Something went wrong on our end. Please try again later."
	msgUnknown        = "An unexpected error occurred. Please try again."
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeAndValidate parses the JSON body into T and runs struct tag
// validation on it.
func decodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	if err := validate.Struct(&req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			fe := invalid[0]
			return nil, &domain.ErrValidation{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed %q validation", fe.Tag()),
			}
		}
		return nil, &domain.ErrValidation{Field: "body", Message: msgValidation}
	}
	return &req, nil
}

// handleServiceError maps domain errors to HTTP responses with the fixed
// user-facing messages.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var network *domain.ErrNetwork
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var insufficientFunds *domain.ErrInsufficientFunds
	var insufficientPoints *domain.ErrInsufficientPoints
	var alreadyRedeemed *domain.ErrAlreadyRedeemed
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, msgNetwork)
	case errors.As(err, &network):
		logger.Error("backend unreachable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, msgNetwork)
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, msgNetwork)
	case errors.As(err, &validation):
		// Validation errors are produced locally and are safe to surface.
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &insufficientFunds):
		logger.Warn("insufficient funds",
			zap.Float64("available", insufficientFunds.Available),
			zap.Float64("required", insufficientFunds.Required),
		)
		writeError(w, http.StatusUnprocessableEntity, insufficientFunds.Error())
	case errors.As(err, &insufficientPoints):
		logger.Warn("insufficient points",
			zap.Int("available", insufficientPoints.Available),
			zap.Int("required", insufficientPoints.Required),
		)
		writeError(w, http.StatusUnprocessableEntity, insufficientPoints.Error())
	case errors.As(err, &alreadyRedeemed):
		logger.Debug("reward already redeemed", zap.String("reward_id", alreadyRedeemed.RewardID))
		writeError(w, http.StatusUnprocessableEntity, alreadyRedeemed.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, msgAuthorization)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, msgAuthentication)
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &external):
		logger.Error("backend error", zap.Error(err))
		writeError(w, http.StatusBadGateway, msgServer)
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgUnknown)
	}
}
