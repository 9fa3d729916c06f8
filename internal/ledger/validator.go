package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// Draft is a transaction request before validation. OwnerID comes from the
// already-authenticated session layer; the engine trusts it.
type Draft struct {
	OccurredAt time.Time
	OwnerID    string
	AccountID  string
	Type       model.TransactionType
	Amount     money.Money
	CategoryID int64
}

// Checked is a validated draft together with the entities the rules loaded
// and the amount converted into the account's currency. It is handed to the
// poster unchanged.
type Checked struct {
	Account   *model.Account
	Category  *model.Category
	Draft     Draft
	Converted money.Money
}

// Validator applies the posting rules in a fixed order, short-circuiting on
// the first failure. Each failure carries a distinct reason; rejection never
// mutates state.
type Validator struct {
	storage   service.Storage
	converter money.Converter
}

// NewValidator creates a validator with its injected dependencies.
func NewValidator(storage service.Storage, converter money.Converter) *Validator {
	return &Validator{storage: storage, converter: converter}
}

// Validate runs the rule chain against a draft.
//
// Order: amount sanity, category existence and type match, account
// existence and type compatibility, currency conversion, sufficiency.
func (v *Validator) Validate(ctx context.Context, draft Draft) (*Checked, error) {
	if !draft.Type.Valid() {
		return nil, E(KindValidation, ReasonInvalidTransactionType, "")
	}
	if !draft.Amount.IsPositive() {
		return nil, E(KindValidation, ReasonInvalidAmount, draft.AccountID)
	}

	category, err := v.checkCategory(ctx, draft)
	if err != nil {
		return nil, err
	}

	account, err := v.checkAccount(ctx, draft)
	if err != nil {
		return nil, err
	}

	converted, err := v.converter.Convert(ctx, draft.Amount, account.Currency, draft.OccurredAt)
	if err != nil {
		return nil, Wrap(KindConversion, ReasonNoRateAvailable, account.ID, err)
	}

	if draft.Type == model.TransactionTypeExpense {
		if err := checkSufficiency(account, converted); err != nil {
			return nil, err
		}
	}

	return &Checked{
		Draft:     draft,
		Account:   account,
		Category:  category,
		Converted: converted,
	}, nil
}

func (v *Validator) checkCategory(ctx context.Context, draft Draft) (*model.Category, error) {
	category, err := v.storage.GetCategory(ctx, draft.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	catID := strconv.FormatInt(draft.CategoryID, 10)
	if category == nil {
		return nil, E(KindValidation, ReasonCategoryNotFound, catID)
	}
	if model.CategoryType(draft.Type) != category.Type {
		return nil, E(KindValidation, ReasonCategoryTypeMismatch, catID)
	}
	return category, nil
}

func (v *Validator) checkAccount(ctx context.Context, draft Draft) (*model.Account, error) {
	account, err := v.storage.GetAccount(ctx, draft.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, E(KindValidation, ReasonAccountNotFound, draft.AccountID)
	}

	switch draft.Type {
	case model.TransactionTypeIncome:
		// Income may only target a payment account.
		if account.Type != model.AccountTypePayment {
			if !account.Type.Valid() {
				return nil, E(KindValidation, ReasonUnsupportedAccountType, account.ID)
			}
			return nil, E(KindValidation, ReasonInvalidAccountTypeForIncome, account.ID)
		}
	case model.TransactionTypeExpense:
		switch account.Type {
		case model.AccountTypePayment, model.AccountTypeCreditCard:
		case model.AccountTypeSaving, model.AccountTypeDebt, model.AccountTypeLending:
			return nil, E(KindValidation, ReasonInvalidAccountTypeForExpense, account.ID)
		default:
			return nil, E(KindValidation, ReasonUnsupportedAccountType, account.ID)
		}
	}
	return account, nil
}

// checkSufficiency verifies funds against the converted (account-currency)
// amount: payment accounts need balance >= amount, credit cards need enough
// headroom under the limit.
func checkSufficiency(account *model.Account, converted money.Money) error {
	switch account.Type {
	case model.AccountTypePayment:
		ok, err := money.New(account.Balance, account.Currency).GreaterThanOrEqual(converted)
		if err != nil {
			return fmt.Errorf("balance comparison: %w", err)
		}
		if !ok {
			return E(KindInsufficientFunds, ReasonInsufficientBalance, account.ID)
		}
	case model.AccountTypeCreditCard:
		if account.CreditHeadroom().LessThan(converted.Amount()) {
			return E(KindInsufficientFunds, ReasonInsufficientCreditLimit, account.ID)
		}
	}
	return nil
}
