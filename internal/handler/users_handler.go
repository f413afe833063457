package handler

import (
	"io"
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/format"
	"github.com/outbehaving/outbehaving-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Uploaded avatars are capped at 5 MiB.
const maxAvatarBytes = 5 << 20

// ============================================================
// Users — /v1/users/{userId}/*
// ============================================================

func getProfileHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/profile")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		overview, err := svc.Overview(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func updateProfileHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/users/{userId}/profile")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		upd, err := decodeAndValidate[domain.ProfileUpdate](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		profile, err := svc.UpdateProfile(ctx, userID, *upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func listAccountsHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/accounts")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		accounts, err := svc.ListAccounts(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		type accountResponse struct {
			domain.Account
			BalanceDisplay string `json:"balance_display"`
		}
		resp := make([]accountResponse, 0, len(accounts))
		for _, a := range accounts {
			resp = append(resp, accountResponse{
				Account:        a,
				BalanceDisplay: format.Currency(a.Balance),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": resp})
	}
}

func linkAccountHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/accounts")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		req, err := decodeAndValidate[struct {
			BankName      string  `json:"bank_name" validate:"required"`
			Balance       float64 `json:"balance" validate:"gte=0"`
			AccountNumber string  `json:"account_number"`
			SortCode      string  `json:"sort_code"`
			IBAN          string  `json:"iban"`
			AccountType   string  `json:"account_type"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		acct, err := svc.LinkAccount(ctx, userID, domain.AccountInput{
			BankName:      req.BankName,
			Balance:       req.Balance,
			AccountNumber: req.AccountNumber,
			SortCode:      req.SortCode,
			IBAN:          req.IBAN,
			AccountType:   req.AccountType,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, acct)
	}
}

func setInterestsHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/users/{userId}/interests")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		req, err := decodeAndValidate[struct {
			Interests []string `json:"interests" validate:"required"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.SetInterests(ctx, userID, req.Interests); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"interests": req.Interests})
	}
}

func setChampionsHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/users/{userId}/champions")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		req, err := decodeAndValidate[struct {
			Champions []string `json:"champions" validate:"required"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.SetChampions(ctx, userID, req.Champions); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"champions": req.Champions})
	}
}

func uploadAvatarHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/avatar")
		defer span.End()

		userID := chi.URLParam(r, "userId")

		if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
			writeError(w, http.StatusBadRequest, msgValidation)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, msgValidation)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, msgValidation)
			return
		}

		profile, err := svc.UploadAvatar(ctx, userID, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, profile)
	}
}

func deleteAvatarHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/avatar")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		profile, err := svc.DeleteAvatar(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}
