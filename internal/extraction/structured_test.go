package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractiq/internal/model"
)

type fakeCompleter struct {
	responses []string
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.responses) == 0 {
		return "", model.Errorf(model.KindTransient, "no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func newTestExtractor(t *testing.T, completer *fakeCompleter) *StructuredExtractor {
	t.Helper()
	schema, err := compileContractSchema()
	require.NoError(t, err)
	return &StructuredExtractor{
		completer:      completer,
		schema:         schema,
		tokenThreshold: 12000,
	}
}

func TestExtractStructuredDecodesValidResponse(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{
		"contract_title": "Master Service Agreement",
		"customer": {"name": "Acme Corp", "confidence_score": 0.9},
		"vendor": {"name": "Globex LLC"},
		"financial_details": {
			"total_value": 50000,
			"currency": "USD",
			"line_items": [{"description": "License", "quantity": 1, "unit_price": 50000, "total_price": 50000}]
		}
	}`}}

	e := newTestExtractor(t, completer)
	data, err := e.ExtractStructured(context.Background(), "some contract text")
	require.NoError(t, err)

	assert.Equal(t, "Master Service Agreement", data.ContractTitle)
	require.NotNil(t, data.Customer)
	assert.Equal(t, "Acme Corp", data.Customer.Name)
	require.NotNil(t, data.FinancialDetails)
	require.NotNil(t, data.FinancialDetails.TotalValue)
	assert.Equal(t, 50000.0, *data.FinancialDetails.TotalValue)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "some contract text")
}

func TestExtractStructuredRejectsInvalidJSON(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"The contract says: {broken"}}

	e := newTestExtractor(t, completer)
	_, err := e.ExtractStructured(context.Background(), "text")

	var pe *model.ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.KindMalformedResponse, pe.Kind)
}

func TestExtractStructuredRejectsSchemaViolation(t *testing.T) {
	// customer must be an object, not a bare string
	completer := &fakeCompleter{responses: []string{`{"customer": "Acme Corp"}`}}

	e := newTestExtractor(t, completer)
	_, err := e.ExtractStructured(context.Background(), "text")

	var pe *model.ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.KindMalformedResponse, pe.Kind)
}

func TestExtractStructuredAcceptsNullSections(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{
		"contract_title": null,
		"customer": null,
		"vendor": null,
		"financial_details": null,
		"payment_structure": null,
		"sla": null,
		"account_info": null
	}`}}

	e := newTestExtractor(t, completer)
	data, err := e.ExtractStructured(context.Background(), "text")
	require.NoError(t, err)
	assert.Nil(t, data.Customer)
	assert.Nil(t, data.FinancialDetails)
}

func TestSplitPages(t *testing.T) {
	text := "--- Page 1 ---\nalpha\n\n--- Page 2 ---\nbeta\n\n--- Page 3 ---\ngamma"

	pages := splitPages(text)
	require.Len(t, pages, 3)
	assert.Equal(t, "--- Page 1 ---\nalpha", pages[0])
	assert.Equal(t, "--- Page 2 ---\nbeta", pages[1])
	assert.Equal(t, "--- Page 3 ---\ngamma", pages[2])
}

func TestSplitPagesWithoutMarkers(t *testing.T) {
	pages := splitPages("just one block of text")
	require.Len(t, pages, 1)
	assert.Equal(t, "just one block of text", pages[0])
}
