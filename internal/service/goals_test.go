package service

import (
	"context"
	"errors"
	"testing"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"go.uber.org/zap"
)

// ============================================================
// Mocks
// ============================================================

type fakeGoalStore struct {
	goals     map[string]*domain.Goal
	updateErr error
	updates   []domain.GoalUpdate
}

func (f *fakeGoalStore) ListGoals(_ context.Context, userID string) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGoalStore) GetGoal(_ context.Context, goalID string) (*domain.Goal, error) {
	g, ok := f.goals[goalID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: goalID}
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGoalStore) CreateGoal(_ context.Context, userID string, input domain.GoalInput) (*domain.Goal, error) {
	g := &domain.Goal{
		ID:              "goal-new",
		UserID:          userID,
		Name:            input.Name,
		TargetAmount:    input.TargetAmount,
		Frequency:       input.Frequency,
		DueDate:         input.DueDate,
		LinkedAccountID: input.LinkedAccountID,
	}
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeGoalStore) UpdateGoal(_ context.Context, goalID string, upd domain.GoalUpdate) (*domain.Goal, error) {
	f.updates = append(f.updates, upd)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	g, ok := f.goals[goalID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: goalID}
	}
	upd.Apply(g)
	cp := *g
	return &cp, nil
}

func (f *fakeGoalStore) DeleteGoal(_ context.Context, goalID string) error {
	delete(f.goals, goalID)
	return nil
}

type fakeAccountStore struct {
	accounts map[string]*domain.Account
	writes   []float64
}

func (f *fakeAccountStore) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccountStore) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) CreateAccount(_ context.Context, userID string, input domain.AccountInput) (*domain.Account, error) {
	a := &domain.Account{ID: "acct-new", UserID: userID, BankName: input.BankName, Balance: input.Balance}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccountStore) SetAccountBalance(_ context.Context, accountID string, balance float64) (*domain.Account, error) {
	f.writes = append(f.writes, balance)
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	a.Balance = balance
	cp := *a
	return &cp, nil
}

type fakeEngagement struct {
	awards []int
}

func (f *fakeEngagement) IncrementEngagement(_ context.Context, _ string, points int, _ string) (*domain.EngagementMetrics, error) {
	f.awards = append(f.awards, points)
	return &domain.EngagementMetrics{TotalPoints: points}, nil
}

func newGoalsFixture(goal *domain.Goal, acct *domain.Account) (*GoalsService, *fakeGoalStore, *fakeAccountStore, *fakeEngagement) {
	goals := &fakeGoalStore{goals: map[string]*domain.Goal{}}
	if goal != nil {
		goals.goals[goal.ID] = goal
	}
	accounts := &fakeAccountStore{accounts: map[string]*domain.Account{}}
	if acct != nil {
		accounts.accounts[acct.ID] = acct
	}
	engagement := &fakeEngagement{}
	svc := NewGoalsService(
		goals, accounts, engagement,
		state.NewRegistry(state.NewGoalsState),
		observability.NewMetrics(),
		zap.NewNop(),
		50,
	)
	return svc, goals, accounts, engagement
}

// ============================================================
// MakePayment
// ============================================================

func TestMakePayment_InsufficientFundsRefusedWithoutMutation(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 500, SavedAmount: 0, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "u1", Balance: 80}
	svc, goals, accounts, _ := newGoalsFixture(goal, acct)

	_, err := svc.MakePayment(context.Background(), "u1", "g1", 100)

	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(accounts.writes) != 0 {
		t.Errorf("expected no balance writes, got %v", accounts.writes)
	}
	if len(goals.updates) != 0 {
		t.Errorf("expected no goal updates, got %d", len(goals.updates))
	}
	if acct.Balance != 80 {
		t.Errorf("expected balance untouched at 80, got %.2f", acct.Balance)
	}
}

func TestMakePayment_DebitsAccountAndCreditsGoal(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 500, SavedAmount: 100, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "u1", Balance: 250}
	svc, goals, _, _ := newGoalsFixture(goal, acct)

	gp, err := svc.MakePayment(context.Background(), "u1", "g1", 100)
	if err != nil {
		t.Fatalf("expected payment to succeed, got %v", err)
	}

	if acct.Balance != 150 {
		t.Errorf("expected balance 150, got %.2f", acct.Balance)
	}
	if gp.SavedAmount != 200 {
		t.Errorf("expected saved amount 200, got %.2f", gp.SavedAmount)
	}
	if gp.ProgressPercentage != 40 {
		t.Errorf("expected 40%% progress, got %.2f", gp.ProgressPercentage)
	}
	if len(goals.updates) != 1 || goals.updates[0].SavedAmount == nil {
		t.Fatalf("expected one saved_amount update, got %+v", goals.updates)
	}
}

func TestMakePayment_RestoresBalanceWhenCreditFails(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 500, SavedAmount: 100, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "u1", Balance: 250}
	svc, goals, accounts, _ := newGoalsFixture(goal, acct)
	goals.updateErr = errors.New("backend write failed")

	_, err := svc.MakePayment(context.Background(), "u1", "g1", 100)
	if err == nil {
		t.Fatal("expected payment to fail")
	}

	if len(accounts.writes) != 2 {
		t.Fatalf("expected debit then compensation, got %v", accounts.writes)
	}
	if accounts.writes[0] != 150 || accounts.writes[1] != 250 {
		t.Errorf("expected writes [150 250], got %v", accounts.writes)
	}
	if acct.Balance != 250 {
		t.Errorf("expected balance restored to 250, got %.2f", acct.Balance)
	}
}

func TestMakePayment_AwardsPointsOnCompletion(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 200, SavedAmount: 150, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "u1", Balance: 100}
	svc, _, _, engagement := newGoalsFixture(goal, acct)

	gp, err := svc.MakePayment(context.Background(), "u1", "g1", 50)
	if err != nil {
		t.Fatalf("expected payment to succeed, got %v", err)
	}
	if !gp.IsComplete {
		t.Fatal("expected goal to be complete")
	}
	if len(engagement.awards) != 1 || engagement.awards[0] != 50 {
		t.Errorf("expected a single 50 point award, got %v", engagement.awards)
	}
}

func TestMakePayment_NoPointsWhenAlreadyComplete(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 200, SavedAmount: 200, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "u1", Balance: 100}
	svc, _, _, engagement := newGoalsFixture(goal, acct)

	if _, err := svc.MakePayment(context.Background(), "u1", "g1", 10); err != nil {
		t.Fatalf("expected payment to succeed, got %v", err)
	}
	if len(engagement.awards) != 0 {
		t.Errorf("expected no award for an already complete goal, got %v", engagement.awards)
	}
}

func TestMakePayment_RejectsGoalWithoutLinkedAccount(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 500}
	svc, _, _, _ := newGoalsFixture(goal, nil)

	_, err := svc.MakePayment(context.Background(), "u1", "g1", 50)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMakePayment_RejectsForeignAccount(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 500, LinkedAccountID: "a1"}
	acct := &domain.Account{ID: "a1", UserID: "someone-else", Balance: 1000}
	svc, _, accounts, _ := newGoalsFixture(goal, acct)

	_, err := svc.MakePayment(context.Background(), "u1", "g1", 50)

	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(accounts.writes) != 0 {
		t.Errorf("expected no balance writes, got %v", accounts.writes)
	}
}

// ============================================================
// CRUD
// ============================================================

func TestCreateGoal_RejectsInvalidInput(t *testing.T) {
	svc, _, _, _ := newGoalsFixture(nil, nil)

	if _, err := svc.Create(context.Background(), "u1", domain.GoalInput{Name: "x", TargetAmount: -1}); err == nil {
		t.Error("expected negative target to be rejected")
	}
	if _, err := svc.Create(context.Background(), "u1", domain.GoalInput{Name: "x", Frequency: "fortnightly"}); err == nil {
		t.Error("expected unknown frequency to be rejected")
	}
}

func TestUpdateGoal_RejectsForeignGoal(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "someone-else", TargetAmount: 100}
	svc, _, _, _ := newGoalsFixture(goal, nil)

	name := "hijacked"
	_, err := svc.Update(context.Background(), "u1", "g1", domain.GoalUpdate{Name: &name})

	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestList_PopulatesDerivedFields(t *testing.T) {
	goal := &domain.Goal{ID: "g1", UserID: "u1", TargetAmount: 200, SavedAmount: 50}
	svc, _, _, _ := newGoalsFixture(goal, nil)

	goals, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	if goals[0].ProgressPercentage != 25 {
		t.Errorf("expected 25%% progress, got %.2f", goals[0].ProgressPercentage)
	}
}
