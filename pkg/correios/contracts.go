package correios

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Contract is the persisted per-store carrier contract document. Token and
// ExpiredAt are the only frequently-mutated fields; everything else is set
// on first authentication and merged on re-authentication.
type Contract struct {
	StoreID        int64  `gorm:"primaryKey;column:store_id" json:"storeId"`
	Username       string `gorm:"column:username" json:"username"`
	AccessCode     string `gorm:"column:access_code" json:"accessCode"`
	PostCardNumber string `gorm:"column:post_card_number" json:"postCardNumber"`
	NuContrato     string `gorm:"column:nu_contrato" json:"nuContrato"`
	NuDR           int    `gorm:"column:nu_dr" json:"nuDR"`
	CNPJ           string `gorm:"column:cnpj" json:"cnpj"`
	Token          string `gorm:"column:token" json:"token"`
	// CartaoPostagem keeps the raw postal-card payload returned by the
	// token endpoint.
	CartaoPostagem string    `gorm:"column:cartao_postagem" json:"cartaoPostagem"`
	ExpiredAt      time.Time `gorm:"column:expired_at" json:"expiredAt"`
}

// TableName sets the contracts table name.
func (Contract) TableName() string {
	return "correios_contracts"
}

// Credentials returns the basic-auth credential triple stored on the contract.
func (c *Contract) Credentials() Credentials {
	return Credentials{
		Username:       c.Username,
		AccessCode:     c.AccessCode,
		PostCardNumber: c.PostCardNumber,
	}
}

// ContractStore persists contract documents keyed by store id. Writes are
// merges: fields carried by the given contract overwrite, stored fields not
// carried are preserved.
type ContractStore interface {
	Load(ctx context.Context, storeID int64) (*Contract, error)
	Merge(ctx context.Context, contract *Contract) error
}

// GormContractStore is the database-backed ContractStore.
type GormContractStore struct {
	db *gorm.DB
}

// NewGormContractStore binds a GORM DB to contract persistence.
func NewGormContractStore(db *gorm.DB) *GormContractStore {
	return &GormContractStore{db: db}
}

// Load fetches the contract for a store. Returns ErrNoContract when no
// document exists.
func (s *GormContractStore) Load(ctx context.Context, storeID int64) (*Contract, error) {
	var contract Contract
	err := s.db.WithContext(ctx).First(&contract, "store_id = ?", storeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoContract
		}
		return nil, err
	}
	return &contract, nil
}

// Merge upserts the contract. An existing row is updated field-by-field so
// concurrent unrelated writes are not clobbered; a missing row is created.
func (s *GormContractStore) Merge(ctx context.Context, contract *Contract) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Contract{}).Where("store_id = ?", contract.StoreID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Create(contract).Error
	}
	// Updates with a struct only writes non-zero fields.
	return db.Model(&Contract{}).Where("store_id = ?", contract.StoreID).Updates(contract).Error
}

var _ ContractStore = (*GormContractStore)(nil)
