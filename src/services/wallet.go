package services

import (
	"errors"
	"fmt"
	"log"

	"hbs/src/models"
	"hbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallets implements the internal cash ledger. Every balance mutation is a
// guarded single-row UPDATE paired with exactly one WalletTransaction row
// in the same database transaction, so the ledger can always be replayed
// against the stored balance.
type Wallets struct {
	db *gorm.DB
	// AllowRefundWhenBlocked lets refunds land in suspended or closed
	// wallets; every other mutation on a non-active wallet is rejected.
	allowRefundWhenBlocked bool
}

func NewWallets(db *gorm.DB, allowRefundWhenBlocked bool) *Wallets {
	return &Wallets{db: db, allowRefundWhenBlocked: allowRefundWhenBlocked}
}

// MutationInput describes one ledger movement against a single wallet.
type MutationInput struct {
	AccountID uint
	Amount    int64
	Type      types.WalletTransactionType
	Reference string
	Reason    string
	BookingID *uint
	PaymentID *uuid.UUID
}

// Credit adds Amount to the account's wallet in its own transaction.
func (w *Wallets) Credit(in MutationInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		t, err := w.CreditTx(tx, in)
		txn = t
		return err
	})
	return txn, err
}

// Debit removes Amount from the account's wallet in its own transaction.
func (w *Wallets) Debit(in MutationInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		t, err := w.DebitTx(tx, in)
		txn = t
		return err
	})
	return txn, err
}

// CreditTx applies a credit inside the caller's transaction. The guard on
// wallet status rides on the UPDATE itself, so a wallet suspended by a
// concurrent writer cannot be credited past the check.
func (w *Wallets) CreditTx(tx *gorm.DB, in MutationInput) (*models.WalletTransaction, error) {
	if in.Amount <= 0 {
		return nil, types.NewError(types.KindValidation, "credit amount must be positive")
	}
	q := tx.
		Model(&models.Wallet{}).
		Where("account_id = ?", in.AccountID)
	if !(w.allowRefundWhenBlocked && in.Type == types.WALLET_TXN_REFUND) {
		q = q.Where("status = ?", types.WALLET_ACTIVE)
	}
	res := q.Update("balance", gorm.Expr("balance + ?", in.Amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, w.rejectReason(tx, in.AccountID)
	}
	return w.record(tx, in)
}

// DebitTx applies a debit inside the caller's transaction. The balance
// floor is enforced by the WHERE clause, not by a read-then-write, so two
// racing debits can never take the balance negative.
func (w *Wallets) DebitTx(tx *gorm.DB, in MutationInput) (*models.WalletTransaction, error) {
	if in.Amount <= 0 {
		return nil, types.NewError(types.KindValidation, "debit amount must be positive")
	}
	res := tx.
		Model(&models.Wallet{}).
		Where("account_id = ? AND status = ? AND balance >= ?", in.AccountID, types.WALLET_ACTIVE, in.Amount).
		Update("balance", gorm.Expr("balance - ?", in.Amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		err := w.rejectReason(tx, in.AccountID)
		if types.Kind(err) == types.KindConflict {
			return nil, types.NewError(types.KindInsufficientFunds,
				fmt.Sprintf("wallet for account %d has insufficient funds", in.AccountID))
		}
		return nil, err
	}
	return w.record(tx, in)
}

// Transfer moves Amount between two accounts atomically, producing a
// transfer_out entry on the sender and a transfer_in entry on the receiver
// sharing one reference.
func (w *Wallets) Transfer(fromAccountID, toAccountID uint, amount int64, reason string) (*models.WalletTransaction, *models.WalletTransaction, error) {
	if fromAccountID == toAccountID {
		return nil, nil, types.NewError(types.KindValidation, "cannot transfer to the same account")
	}
	reference := uuid.NewString()
	var out, in *models.WalletTransaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = w.DebitTx(tx, MutationInput{
			AccountID: fromAccountID,
			Amount:    amount,
			Type:      types.WALLET_TXN_TRANSFER_OUT,
			Reference: reference,
			Reason:    reason,
		})
		if err != nil {
			return err
		}
		in, err = w.CreditTx(tx, MutationInput{
			AccountID: toAccountID,
			Amount:    amount,
			Type:      types.WALLET_TXN_TRANSFER_IN,
			Reference: reference,
			Reason:    reason,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[wallets] transferred %d from account %d to account %d ref=%s", amount, fromAccountID, toAccountID, reference)
	return out, in, nil
}

// Balance returns the wallet for an account.
func (w *Wallets) Balance(accountID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := w.db.Where("account_id = ?", accountID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("no wallet for account %d", accountID))
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Statement returns the newest ledger entries for an account's wallet.
func (w *Wallets) Statement(accountID uint, limit int) ([]models.WalletTransaction, error) {
	wallet, err := w.Balance(accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	var txns []models.WalletTransaction
	err = w.db.
		Where("wallet_id = ?", wallet.ID).
		Order("created_at desc").
		Limit(limit).
		Find(&txns).
		Error
	return txns, err
}

// record reads the post-update balance within the same transaction and
// appends the ledger row. Must only run after a successful guarded update.
func (w *Wallets) record(tx *gorm.DB, in MutationInput) (*models.WalletTransaction, error) {
	var wallet models.Wallet
	if err := tx.Where("account_id = ?", in.AccountID).First(&wallet).Error; err != nil {
		return nil, err
	}
	before := wallet.Balance
	switch in.Type {
	case types.WALLET_TXN_DEBIT, types.WALLET_TXN_TRANSFER_OUT, types.WALLET_TXN_WITHDRAWAL:
		before += in.Amount
	default:
		before -= in.Amount
	}
	txn := models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          in.Type,
		Amount:        in.Amount,
		BalanceBefore: before,
		BalanceAfter:  wallet.Balance,
		Reference:     in.Reference,
		Reason:        in.Reason,
		BookingID:     in.BookingID,
		PaymentID:     in.PaymentID,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// rejectReason explains why a guarded update matched no row: missing
// wallet, blocked status, or (for debits) insufficient balance.
func (w *Wallets) rejectReason(tx *gorm.DB, accountID uint) error {
	var wallet models.Wallet
	err := tx.Where("account_id = ?", accountID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewError(types.KindNotFound, fmt.Sprintf("no wallet for account %d", accountID))
	}
	if err != nil {
		return err
	}
	if wallet.Status != types.WALLET_ACTIVE {
		return types.NewError(types.KindForbidden, fmt.Sprintf("wallet for account %d is %s", accountID, wallet.Status))
	}
	return types.NewError(types.KindConflict, "wallet update matched no row")
}
