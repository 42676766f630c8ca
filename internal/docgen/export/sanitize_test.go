package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeColors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "oklch inline style",
			in:   `<div style="color: oklch(0.7 0.1 200)">x</div>`,
			want: `<div style="color: rgb(0, 0, 0)">x</div>`,
		},
		{
			name: "color-mix in stylesheet",
			in:   `.h { background: color-mix(in srgb, red 50%, blue); }`,
			want: `.h { background: rgb(128, 128, 128); }`,
		},
		{
			name: "lab without touching label",
			in:   `<span class="label" style="color: lab(50% 40 59)">x</span>`,
			want: `<span class="label" style="color: rgb(0, 0, 0)">x</span>`,
		},
		{
			name: "display-p3 wide gamut",
			in:   `border-color: color(display-p3 1 0 0);`,
			want: `border-color: rgb(0, 0, 0);`,
		},
		{
			name: "plain rgb untouched",
			in:   `color: rgb(10, 20, 30);`,
			want: `color: rgb(10, 20, 30);`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeColors(tc.in))
		})
	}
}

func TestNormalizeLayout(t *testing.T) {
	in := `<div id="print-root" style="padding:4px"><div class="page" style="box-shadow: 0 2px 8px rgba(0,0,0,0.3); transform: scale(0.8); width:210mm">x</div></div>`
	out := NormalizeLayout(in)

	assert.NotContains(t, out, "box-shadow")
	assert.NotContains(t, out, "scale(0.8)")
	assert.Contains(t, out, "margin:0")
	assert.Contains(t, out, "width:210mm")
}

func TestNormalizeLayoutKeepsExplicitMargin(t *testing.T) {
	in := `<div id="print-root" style="margin:2mm">x</div>`
	out := NormalizeLayout(in)

	assert.Contains(t, out, "margin:2mm")
	assert.NotContains(t, out, "margin:0")
}
