package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculerNet(t *testing.T) {
	p := PaiementSalaire{
		SalaireBase:     decimal.NewFromInt(300000),
		AvancesDeduites: decimal.NewFromInt(50000),
		Retenues:        decimal.NewFromInt(10000),
	}
	p.CalculerNet()
	assert.True(t, p.NetAPayer.Equal(decimal.NewFromInt(240000)))
}

func TestCalculerNetNeverNegative(t *testing.T) {
	p := PaiementSalaire{
		SalaireBase:     decimal.NewFromInt(100000),
		AvancesDeduites: decimal.NewFromInt(150000),
	}
	p.CalculerNet()
	assert.True(t, p.NetAPayer.IsZero())
}

func TestPeriodeMois(t *testing.T) {
	p := PaiementSalaire{Periode: time.Date(2025, time.March, 17, 14, 0, 0, 0, time.UTC)}
	debut, fin := p.PeriodeMois()
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), debut)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), fin)
}

func TestReferenceDepense(t *testing.T) {
	normal := PaiementSalaire{Ref: "PS2025-0001", Type: PaiementSalaireTypeNormal}
	assert.Equal(t, "SAL-PS2025-0001", normal.ReferenceDepense())

	avance := PaiementSalaire{Ref: "PS2025-0002", Type: PaiementSalaireTypeAvance}
	assert.Equal(t, "AVS-PS2025-0002", avance.ReferenceDepense())
}
