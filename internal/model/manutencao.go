package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManutencaoTipo is the kind of maintenance performed.
type ManutencaoTipo string

const (
	ManutencaoPreventiva ManutencaoTipo = "Preventiva"
	ManutencaoCorretiva  ManutencaoTipo = "Corretiva"
)

// Manutencao is a maintenance record of a climatizador.
type Manutencao struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	ClimatizadorID uint            `json:"climatizador_id" gorm:"not null;index"`
	DataManutencao time.Time       `json:"data_manutencao" gorm:"not null;index"`
	Tipo           ManutencaoTipo  `json:"tipo" gorm:"type:varchar(20);not null"`
	Descricao      string          `json:"descricao" gorm:"type:text"`
	Tecnico        string          `json:"tecnico" gorm:"size:100;not null"`
	Custo          decimal.Decimal `json:"custo" gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Climatizador *Climatizador `json:"climatizador,omitempty" gorm:"foreignKey:ClimatizadorID"`
}
