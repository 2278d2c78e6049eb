package wallet

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap/internal/database"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrAlreadyRefunded   = errors.New("reference already refunded")
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

func (s *Service) GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, error) {
	wallet, err := s.getWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = &Wallet{UserID: userID, Balance: 0}
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return s.getWalletByUserID(ctx, userID)
		}
		return nil, err
	}
	return wallet, nil
}

// Open creates the user's wallet, crediting initialTokens when positive.
func (s *Service) Open(ctx context.Context, userID string, initialTokens int64) error {
	if initialTokens <= 0 {
		_, err := s.GetOrCreateWallet(ctx, userID)
		return err
	}
	_, _, err := s.Add(ctx, userID, initialTokens)
	return err
}

func (s *Service) Add(ctx context.Context, userID string, amount int64) (*Wallet, *Transaction, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (*Wallet, *Transaction, error) {
		return s.apply(tx, userID, amount, TransactionTypeAdd, "")
	})
}

func (s *Service) Spend(ctx context.Context, userID string, amount int64) (*Wallet, *Transaction, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (*Wallet, *Transaction, error) {
		return s.SpendTx(tx, userID, amount, "")
	})
}

func (s *Service) Refund(ctx context.Context, userID string, amount int64, reference string) (*Wallet, *Transaction, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (*Wallet, *Transaction, error) {
		return s.RefundTx(tx, userID, amount, reference)
	})
}

// SpendTx debits the wallet inside the caller's transaction.
func (s *Service) SpendTx(tx *gorm.DB, userID string, amount int64, reference string) (*Wallet, *Transaction, error) {
	return s.apply(tx, userID, amount, TransactionTypeSpend, reference)
}

// RefundTx credits the wallet inside the caller's transaction. A non-empty
// reference can be refunded only once.
func (s *Service) RefundTx(tx *gorm.DB, userID string, amount int64, reference string) (*Wallet, *Transaction, error) {
	if reference != "" {
		var n int64
		if err := tx.Model(&Transaction{}).
			Where("reference = ? AND type = ?", reference, TransactionTypeRefund).
			Count(&n).Error; err != nil {
			return nil, nil, err
		}
		if n > 0 {
			return nil, nil, ErrAlreadyRefunded
		}
	}
	return s.apply(tx, userID, amount, TransactionTypeRefund, reference)
}

func (s *Service) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var txns []Transaction
	if err := s.db.WithContext(ctx).
		Where("wallet_id = ?", wallet.ID).
		Order("created_at desc").
		Find(&txns).Error; err != nil {
		return nil, err
	}

	return txns, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) (*Wallet, *Transaction, error)) (*Wallet, *Transaction, error) {
	var wallet *Wallet
	var txn *Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wallet, txn, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, txn, nil
}

func (s *Service) apply(tx *gorm.DB, userID string, amount int64, kind, reference string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	var wallet Wallet
	if err := getOrCreateWalletForUpdate(tx, userID, &wallet); err != nil {
		return nil, nil, err
	}

	switch kind {
	case TransactionTypeSpend:
		if wallet.Balance < amount {
			return nil, nil, ErrInsufficientFunds
		}
		wallet.Balance -= amount
	default:
		wallet.Balance += amount
	}

	if err := tx.Model(&Wallet{}).Where("id = ?", wallet.ID).Update("balance", wallet.Balance).Error; err != nil {
		return nil, nil, err
	}

	txn := Transaction{WalletID: wallet.ID, Amount: amount, Type: kind, Reference: reference}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, nil, err
	}

	s.log.Debug("wallet updated",
		zap.String("user_id", userID),
		zap.String("type", kind),
		zap.Int64("amount", amount),
		zap.Int64("balance", wallet.Balance))
	return &wallet, &txn, nil
}

func (s *Service) getWalletByUserID(ctx context.Context, userID string) (*Wallet, error) {
	var wallet Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func getOrCreateWalletForUpdate(tx *gorm.DB, userID string, wallet *Wallet) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(wallet).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	*wallet = Wallet{UserID: userID, Balance: 0}
	if err := tx.Create(wallet).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(wallet).Error
		}
		return err
	}
	return nil
}
