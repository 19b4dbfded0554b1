package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMultiTransactionLine(t *testing.T) {
	line := "19/05 COSSERVICOSMEDIC07/10 500,00 30/10 DROGASILFILIAL 19,54"
	segments := SplitMultiTransactionLine(line)
	require.Len(t, segments, 2)
	assert.Equal(t, "19/05 COSSERVICOSMEDIC07/10 500,00", segments[0])
	assert.Equal(t, "30/10 DROGASILFILIAL 19,54", segments[1])
}

func TestSplitLeavesSingleTransactionAlone(t *testing.T) {
	line := "19/05 FARMACIA SAO PAULO 45,90"
	assert.Equal(t, []string{line}, SplitMultiTransactionLine(line))
}

func TestSplitIgnoresInstallmentFractionAsStart(t *testing.T) {
	// The 03/10 fraction is followed by the amount, not an uppercase word,
	// so it is not a split point.
	line := "19/05 MERCADO LIVRE 03/10 120,00"
	assert.Equal(t, []string{line}, SplitMultiTransactionLine(line))
}

func TestSplitDropsDateAmountOnlyFragments(t *testing.T) {
	// A date followed by a bare amount is not a split point, so the line
	// stays whole instead of producing a descriptionless segment.
	line := "19/05 POSTO SHELL 88,00 20/05 12,00"
	assert.Equal(t, []string{line}, SplitMultiTransactionLine(line))
}

func TestSeparateGluedFraction(t *testing.T) {
	assert.Equal(t, "COSSERVICOSMEDIC 07/10", SeparateGluedFraction("COSSERVICOSMEDIC07/10"))
	assert.Equal(t, "LOJA* 02/04", SeparateGluedFraction("LOJA*02/04"))
	// Already separated stays untouched.
	assert.Equal(t, "MERCADO 03/10", SeparateGluedFraction("MERCADO 03/10"))
}

func TestExtractInstallment(t *testing.T) {
	desc, inst := ExtractInstallment("COSSERVICOSMEDIC 07/10")
	require.NotNil(t, inst)
	assert.Equal(t, 7, inst.Current)
	assert.Equal(t, 10, inst.Total)
	assert.Equal(t, "COSSERVICOSMEDIC", desc)

	// current > total reads as a date, not a fraction.
	desc, inst = ExtractInstallment("PADARIA 25/05")
	assert.Nil(t, inst)
	assert.Equal(t, "PADARIA 25/05", desc)

	// total of 1 is not an installment plan.
	_, inst = ExtractInstallment("LOJA 01/01")
	assert.Nil(t, inst)

	// Scans right to left: the rightmost valid fraction wins.
	desc, inst = ExtractInstallment("LOJA 12/24 REF 02/04")
	require.NotNil(t, inst)
	assert.Equal(t, 2, inst.Current)
	assert.Equal(t, 4, inst.Total)
	assert.Equal(t, "LOJA 12/24 REF", desc)

	_, inst = ExtractInstallment("SEM FRACAO NENHUMA")
	assert.Nil(t, inst)
}
