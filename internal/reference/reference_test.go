package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		markup string
		want   Reference
		ok     bool
	}{
		{"simple", `<a href="https://x.test/p">Paper Title</a>`, Reference{"Paper Title", "https://x.test/p"}, true},
		{"archive style", `<a refstr=GILBERT_ET_AL__2020 href=https://ui.adsabs.harvard.edu/abs/2020AJ....160..116G/abstract target=ref>Gilbert et al. 2020</a>`,
			Reference{"Gilbert et al. 2020", "https://ui.adsabs.harvard.edu/abs/2020AJ....160..116G/abstract"}, true},
		{"nested markup and whitespace", "<a href='/p'> Smith\n  <i>et al.</i> 2021 </a>", Reference{"Smith et al. 2021", "/p"}, true},
		{"first anchor wins", `<a href="/one">One</a><a href="/two">Two</a>`, Reference{"One", "/one"}, true},
		{"first anchor without href", `<a name="x">skip</a><a href="/real">Real</a>`, Reference{}, false},
		{"entities decoded", `<a href="/q?a=1&amp;b=2">A &amp; B</a>`, Reference{"A & B", "/q?a=1&b=2"}, true},
		{"unterminated", `<a href="/open">Open`, Reference{"Open", "/open"}, true},
		{"plain text", "not html", Reference{}, false},
		{"empty", "", Reference{}, false},
		{"empty href", `<a href="">x</a>`, Reference{}, false},
		{"garbage", "<<<a <", Reference{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.markup)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
