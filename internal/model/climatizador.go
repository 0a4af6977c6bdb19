package model

import "time"

// ClimatizadorStatus represents the operational status of a unit.
type ClimatizadorStatus string

const (
	ClimatizadorStatusAtivo      ClimatizadorStatus = "Ativo"
	ClimatizadorStatusInativo    ClimatizadorStatus = "Inativo"
	ClimatizadorStatusManutencao ClimatizadorStatus = "Manutenção"
)

// Valid reports whether s is a known status.
func (s ClimatizadorStatus) Valid() bool {
	switch s {
	case ClimatizadorStatusAtivo, ClimatizadorStatusInativo, ClimatizadorStatusManutencao:
		return true
	}
	return false
}

// Climatizador is an air-conditioning unit.
type Climatizador struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	Modelo            string             `json:"modelo" gorm:"size:100;not null"`
	Marca             string             `json:"marca" gorm:"size:100;not null"`
	NumeroSerie       string             `json:"numero_serie" gorm:"size:50;uniqueIndex;not null"`
	Localizacao       string             `json:"localizacao" gorm:"size:255;not null"`
	DataInstalacao    *time.Time         `json:"data_instalacao,omitempty"`
	UltimaManutencao  *time.Time         `json:"ultima_manutencao,omitempty"`
	ProximaManutencao *time.Time         `json:"proxima_manutencao,omitempty" gorm:"index"`
	Status            ClimatizadorStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`

	Manutencoes []Manutencao `json:"manutencoes,omitempty" gorm:"foreignKey:ClimatizadorID;constraint:OnDelete:CASCADE"`
}

// ClimatizadorStats is the dashboard summary.
type ClimatizadorStats struct {
	Total                int64 `json:"total"`
	Ativos               int64 `json:"ativos"`
	ManutencaoNecessaria int64 `json:"manutencao_necessaria"`
	ManutencaoEmDia      int64 `json:"manutencao_em_dia"`
}
