package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPDF = `%PDF-1.4
1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj
2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj
3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 595.28 841.89] >> endobj
xref
0 4
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
trailer
<< /Size 4 /Root 1 0 R >>
startxref
192
%%EOF
`

func TestInjectFields(t *testing.T) {
	fields := []TextField{
		{Name: "vin", Value: "WVWZZZ1JZXW000001", Page: 0, Rect: [4]float64{330, 420, 470, 438}},
		{Name: "buyer_name", Value: "John (Jack) Doe", Page: 0, Rect: [4]float64{150, 540, 420, 558}},
	}

	out, err := InjectFields([]byte(minimalPDF), fields)
	require.NoError(t, err)

	// Incremental update: the original bytes survive untouched.
	assert.True(t, strings.HasPrefix(string(out), minimalPDF))

	body := string(out)
	assert.Contains(t, body, "/AcroForm 7 0 R")
	assert.Contains(t, body, "/Subtype /Widget")
	assert.Contains(t, body, "/T (vin)")
	assert.Contains(t, body, "/V (WVWZZZ1JZXW000001)")
	assert.Contains(t, body, `/V (John \(Jack\) Doe)`)
	assert.Contains(t, body, "/Annots [5 0 R 6 0 R")
	assert.Contains(t, body, "/Prev 192")
	assert.Contains(t, body, "/Size 8")
}

// The mirrored fields must never repaint over the rasterized page: every
// widget uses the invisible text rendering mode, references the shared
// empty appearance stream, and the form does not ask the viewer to
// regenerate appearances.
func TestInjectFieldsAreInvisible(t *testing.T) {
	out, err := InjectFields([]byte(minimalPDF), []TextField{
		{Name: "vin", Value: "WVWZZZ1JZXW000001", Page: 0, Rect: [4]float64{330, 420, 470, 438}},
	})
	require.NoError(t, err)

	body := string(out)
	assert.NotContains(t, body, "/NeedAppearances")
	assert.Contains(t, body, "/DA (/Helv 0 Tf 3 Tr)")
	assert.NotContains(t, body, "0 g")
	assert.Contains(t, body, "/BBox [0 0 0 0]")
	assert.Contains(t, body, "/AP << /N 4 0 R >>")
}

func TestInjectFieldsNoFields(t *testing.T) {
	out, err := InjectFields([]byte(minimalPDF), nil)
	require.NoError(t, err)
	assert.Equal(t, minimalPDF, string(out))
}

func TestInjectFieldsUnsupportedStructure(t *testing.T) {
	// Cross-reference stream PDFs carry no trailer keyword.
	_, err := InjectFields([]byte("%PDF-1.7\n1 0 obj << >> endobj\nstartxref\n9\n%%EOF\n"), []TextField{
		{Name: "vin", Value: "X", Page: 0},
	})
	require.ErrorIs(t, err, ErrUnsupportedPDF)
}

func TestInjectFieldsNotAPDF(t *testing.T) {
	_, err := InjectFields([]byte("<html></html>"), []TextField{{Name: "vin", Value: "X"}})
	require.ErrorIs(t, err, ErrUnsupportedPDF)
}
