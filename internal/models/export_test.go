package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportJobParamsValueScan(t *testing.T) {
	eleve := "eleve-1"
	periode := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	params := ExportJobParams{EleveID: &eleve, Periode: &periode, Format: ExportFormatPDF}

	value, err := params.Value()
	require.NoError(t, err)

	var decoded ExportJobParams
	require.NoError(t, decoded.Scan(value))
	require.NotNil(t, decoded.EleveID)
	assert.Equal(t, "eleve-1", *decoded.EleveID)
	require.NotNil(t, decoded.Periode)
	assert.True(t, periode.Equal(*decoded.Periode))
	assert.Equal(t, ExportFormatPDF, decoded.Format)
}

func TestExportJobParamsScanNil(t *testing.T) {
	var params ExportJobParams
	require.NoError(t, params.Scan(nil))
	assert.Nil(t, params.EleveID)
}
