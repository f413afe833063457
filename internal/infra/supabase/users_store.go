package supabase

import (
	"context"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Profiles, accounts and onboarding preferences
// ============================================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()

	body, err := c.Select(ctx, "profiles", Query{
		Filters: map[string]string{"id": userID},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}

	profile, err := decodeSingle[domain.Profile](body, "profiles")
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.ID == "" {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()

	body, err := c.UpdateRow(ctx, "profiles", userID, upd)
	if err != nil {
		return nil, err
	}

	profile, err := decodeSingle[domain.Profile](body, "profiles")
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return profile, nil
}

func (c *Client) ListInterests(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInterests")
	defer span.End()

	body, err := c.Select(ctx, "user_interests", Query{
		Filters: map[string]string{"user_id": userID},
		Order:   "created_at",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.UserInterest](body, "user_interests")
	if err != nil {
		return nil, err
	}

	interests := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Interest == "" {
			continue
		}
		interests = append(interests, r.Interest)
	}
	return interests, nil
}

// ReplaceInterests swaps the full interest set: delete-then-insert, the
// same shape the onboarding flow writes.
func (c *Client) ReplaceInterests(ctx context.Context, userID string, interests []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReplaceInterests")
	defer span.End()

	err := c.DeleteWhere(ctx, "user_interests", Query{
		Filters: map[string]string{"user_id": userID},
	})
	if err != nil {
		return err
	}
	if len(interests) == 0 {
		return nil
	}

	records := make([]map[string]any, 0, len(interests))
	for _, interest := range interests {
		records = append(records, map[string]any{
			"user_id":  userID,
			"interest": interest,
		})
	}
	_, err = c.Insert(ctx, "user_interests", records)
	return err
}

func (c *Client) ListChampions(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListChampions")
	defer span.End()

	body, err := c.Select(ctx, "user_champions", Query{
		Filters: map[string]string{"user_id": userID},
		Order:   "created_at",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.UserChampion](body, "user_champions")
	if err != nil {
		return nil, err
	}

	champions := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.ChampionName == "" {
			continue
		}
		champions = append(champions, r.ChampionName)
	}
	return champions, nil
}

func (c *Client) ReplaceChampions(ctx context.Context, userID string, champions []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReplaceChampions")
	defer span.End()

	err := c.DeleteWhere(ctx, "user_champions", Query{
		Filters: map[string]string{"user_id": userID},
	})
	if err != nil {
		return err
	}
	if len(champions) == 0 {
		return nil
	}

	records := make([]map[string]any, 0, len(champions))
	for _, name := range champions {
		records = append(records, map[string]any{
			"user_id":       userID,
			"champion_name": name,
		})
	}
	_, err = c.Insert(ctx, "user_champions", records)
	return err
}

// ============================================================
// Accounts
// ============================================================

func validAccount(a domain.Account) bool {
	return a.ID != "" && a.UserID != ""
}

func (c *Client) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()

	body, err := c.Select(ctx, "accounts", Query{
		Filters:   map[string]string{"user_id": userID},
		Order:     "created_at",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.Account](body, "accounts")
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, a := range rows {
		if !validAccount(a) {
			c.logger.Warn("supabase: quarantined malformed account row",
				zap.String("account_id", a.ID),
				zap.String("user_id", userID),
			)
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()

	body, err := c.Select(ctx, "accounts", Query{
		Filters: map[string]string{"id": accountID},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}

	account, err := decodeSingle[domain.Account](body, "accounts")
	if err != nil {
		return nil, err
	}
	if account == nil || !validAccount(*account) {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return account, nil
}

func (c *Client) CreateAccount(ctx context.Context, userID string, input domain.AccountInput) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()

	record := map[string]any{
		"user_id":   userID,
		"bank_name": input.BankName,
		"balance":   input.Balance,
	}
	if input.AccountNumber != "" {
		record["account_number"] = input.AccountNumber
	}
	if input.SortCode != "" {
		record["sort_code"] = input.SortCode
	}
	if input.IBAN != "" {
		record["iban"] = input.IBAN
	}
	if input.AccountType != "" {
		record["account_type"] = input.AccountType
	}

	body, err := c.Insert(ctx, "accounts", record)
	if err != nil {
		return nil, err
	}

	account, err := decodeSingle[domain.Account](body, "accounts")
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: errEmptyWrite}
	}
	return account, nil
}

// SetAccountBalance writes an absolute balance. Goal payments compute
// the new balance and call this; the old balance is what the caller
// restores on a compensating rollback.
func (c *Client) SetAccountBalance(ctx context.Context, accountID string, balance float64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SetAccountBalance")
	defer span.End()

	body, err := c.UpdateRow(ctx, "accounts", accountID, map[string]any{"balance": balance})
	if err != nil {
		return nil, err
	}

	account, err := decodeSingle[domain.Account](body, "accounts")
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	c.logger.Info("supabase: balance updated",
		zap.String("account_id", account.ID),
		zap.Float64("new_balance", account.Balance),
	)
	return account, nil
}
