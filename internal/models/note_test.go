package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 12.35, Round2(12.345))
	assert.Equal(t, 12.34, Round2(12.344))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 20.0, Round2(20.0001))
}

func TestAppreciationBuckets(t *testing.T) {
	cases := []struct {
		note float64
		want string
	}{
		{18, "Excellent"},
		{16, "Excellent"},
		{15.5, "Très Bien"},
		{14, "Très Bien"},
		{12.25, "Bien"},
		{10, "Assez Bien"},
		{9.99, "Passable"},
		{8, "Passable"},
		{6, "Insuffisant"},
		{5.99, "Très Faible"},
		{0, "Très Faible"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Appreciation(tc.note), "note %v", tc.note)
	}
}

func TestCalculerDerives(t *testing.T) {
	n := Note{Valeur: 15, NoteSur: 20, Coefficient: 2}
	n.CalculerDerives()
	assert.Equal(t, 15.0, n.NoteSur20)
	assert.Equal(t, 30.0, n.NoteAvecCoefficient)
	assert.Equal(t, "Très Bien", n.Appreciation)
}

func TestCalculerDerivesRescalesToTwenty(t *testing.T) {
	n := Note{Valeur: 45, NoteSur: 50, Coefficient: 1}
	n.CalculerDerives()
	assert.Equal(t, 18.0, n.NoteSur20)
	assert.Equal(t, "Excellent", n.Appreciation)
}

func TestCalculerDerivesDefaultsScale(t *testing.T) {
	n := Note{Valeur: 10, Coefficient: 1}
	n.CalculerDerives()
	assert.Equal(t, 20.0, n.NoteSur)
	assert.Equal(t, 10.0, n.NoteSur20)
}

func TestCompteDansMoyenne(t *testing.T) {
	n := Note{EstPubliee: true}
	assert.True(t, n.CompteDansMoyenne())
	n.ExclueMoyenne = true
	assert.False(t, n.CompteDansMoyenne())
}
