package wallet

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionTypeAdd    = "ADD"
	TransactionTypeSpend  = "SPEND"
	TransactionTypeRefund = "REFUND"
)

// Wallet holds a user's token balance.
type Wallet struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string    `json:"userId" gorm:"type:varchar(64);not null;uniqueIndex"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Wallet) TableName() string {
	return "token_wallets"
}

func (w *Wallet) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Transaction is one ledger entry. Reference links spends and refunds to the
// session that caused them.
type Transaction struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	WalletID  uuid.UUID `json:"walletId" gorm:"type:uuid;not null;index"`
	Amount    int64     `json:"amount" gorm:"not null"`
	Type      string    `json:"type" gorm:"type:varchar(16);not null;index;check:type IN ('ADD','SPEND','REFUND')"`
	Reference string    `json:"reference,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	Wallet *Wallet `json:"-" gorm:"foreignKey:WalletID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Transaction) TableName() string {
	return "token_transactions"
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Models lists the tables AutoMigrate must create for this package.
func Models() []any {
	return []any{&Wallet{}, &Transaction{}}
}
