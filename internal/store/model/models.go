package model

import "gorm.io/datatypes"

// TreasuryEventModel is the append-only audit row for balance movements:
// play_deduct, bridge_requested and sweep.
type TreasuryEventModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	EventType     string         `gorm:"column:event_type;index"`
	Wallet        string         `gorm:"column:wallet"`
	Amount        float64        `gorm:"column:amount"`
	TxHash        *string        `gorm:"column:tx_hash"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (TreasuryEventModel) TableName() string { return "treasury_events" }
