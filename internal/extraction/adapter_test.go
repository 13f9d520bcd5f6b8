package extraction

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractiq/internal/model"
)

// scriptRunner fakes the external binaries. The handler receives the
// binary name and args and decides the outcome.
type scriptRunner struct {
	calls   []string
	handler func(name string, args []string) ([]byte, error)
}

func (r *scriptRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name)
	out, err := r.handler(name, args)
	return out, nil, err
}

func errorKind(t *testing.T, err error) model.ErrorKind {
	t.Helper()
	var pe *model.ProcessingError
	require.ErrorAs(t, err, &pe)
	return pe.Kind
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	a := NewAdapterWithRunner(AdapterConfig{}, &scriptRunner{
		handler: func(string, []string) ([]byte, error) {
			t.Fatal("no binary should run for corrupt input")
			return nil, nil
		},
	})

	_, err := a.ExtractText(context.Background(), []byte("not a pdf at all"))
	assert.Equal(t, model.KindCorrupt, errorKind(t, err))
}

func TestExtractTextUsesTextLayerFirst(t *testing.T) {
	runner := &scriptRunner{
		handler: func(name string, _ []string) ([]byte, error) {
			require.Equal(t, "pdftotext", name)
			return []byte("First page text\fSecond page text"), nil
		},
	}
	a := NewAdapterWithRunner(AdapterConfig{}, runner)

	text, err := a.ExtractText(context.Background(), []byte("%PDF-1.7 body"))
	require.NoError(t, err)

	assert.Contains(t, text, "--- Page 1 ---\nFirst page text")
	assert.Contains(t, text, "--- Page 2 ---\nSecond page text")
	assert.Equal(t, []string{"pdftotext"}, runner.calls)
}

func TestExtractTextFallsBackToOCR(t *testing.T) {
	runner := &scriptRunner{}
	runner.handler = func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdftotext":
			// Scanned document: text layer is blank
			return []byte("\f\f"), nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			require.NoError(t, os.WriteFile(prefix+"-1.png", []byte("png"), 0o600))
			require.NoError(t, os.WriteFile(prefix+"-2.png", []byte("png"), 0o600))
			return nil, nil
		case "tesseract":
			if strings.HasSuffix(args[0], "-1.png") {
				return []byte("OCR page one"), nil
			}
			return []byte("OCR page two"), nil
		}
		return nil, errors.New("unexpected binary: " + name)
	}
	a := NewAdapterWithRunner(AdapterConfig{}, runner)

	text, err := a.ExtractText(context.Background(), []byte("%PDF-1.4 scanned"))
	require.NoError(t, err)

	assert.Contains(t, text, "--- Page 1 ---\nOCR page one")
	assert.Contains(t, text, "--- Page 2 ---\nOCR page two")
	assert.Equal(t, []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"}, runner.calls)
}

func TestExtractTextUnreadableWhenAllStrategiesFail(t *testing.T) {
	runner := &scriptRunner{
		handler: func(name string, _ []string) ([]byte, error) {
			if name == "pdftotext" {
				return nil, errors.New("syntax error in PDF")
			}
			// pdftoppm runs but produces no page images
			return nil, nil
		},
	}
	a := NewAdapterWithRunner(AdapterConfig{}, runner)

	_, err := a.ExtractText(context.Background(), []byte("%PDF-1.2 damaged"))
	assert.Equal(t, model.KindUnreadable, errorKind(t, err))
}

func TestJoinPagesSkipsBlankPages(t *testing.T) {
	text := joinPages([]string{"first", "   ", "third"})

	assert.Contains(t, text, "--- Page 1 ---\nfirst")
	assert.NotContains(t, text, "--- Page 2 ---")
	assert.Contains(t, text, "--- Page 3 ---\nthird")
}
