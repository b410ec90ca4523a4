package jobimport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonLDPage = `<html><head><title>Careers</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"JobPosting","title":"Senior Go Engineer",
 "description":"<p>Build <b>APIs</b>.</p><ul><li>Go</li><li>Postgres</li></ul>",
 "hiringOrganization":{"@type":"Organization","name":"Acme"},
 "jobLocation":[{"@type":"Place","address":{"addressLocality":"Berlin","addressCountry":"DE"}}]}
</script></head><body><h1>ignored</h1></body></html>`

const plainPage = `<html><head>
<meta property="og:title" content="Data Analyst">
<meta property="og:site_name" content="Globex">
</head><body>
<nav>Home Jobs About</nav>
<div class="job-description">
  <p>You will analyse product data and build dashboards for the growth team.</p>
</div>
<footer>Copyright</footer>
</body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract(t *testing.T) {
	t.Run("json-ld job posting", func(t *testing.T) {
		d := Extract(parse(t, jsonLDPage))
		assert.Equal(t, "Senior Go Engineer", d.Title)
		assert.Equal(t, "Acme", d.Company)
		assert.Equal(t, "Berlin, DE", d.Location)
		assert.Contains(t, d.Description, "Build APIs.")
		assert.Contains(t, d.Description, "Postgres")
	})

	t.Run("meta and selectors", func(t *testing.T) {
		d := Extract(parse(t, plainPage))
		assert.Equal(t, "Data Analyst", d.Title)
		assert.Equal(t, "Globex", d.Company)
		assert.Equal(t, "You will analyse product data and build dashboards for the growth team.", d.Description)
	})
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/job":
			_, _ = w.Write([]byte(jsonLDPage))
		case "/empty":
			_, _ = w.Write([]byte("<html><body></body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		d, err := NewWithClient(srv.Client()).Import(ctx, srv.URL+"/job")
		require.NoError(t, err)
		assert.Equal(t, "Senior Go Engineer", d.Title)
		assert.Equal(t, srv.URL+"/job", d.SourceURL)
	})

	t.Run("no content", func(t *testing.T) {
		_, err := NewWithClient(srv.Client()).Import(ctx, srv.URL+"/empty")
		assert.ErrorIs(t, err, ErrNoContent)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := NewWithClient(srv.Client()).Import(ctx, srv.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := New().Import(ctx, "ftp://example.com/job")
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("private address blocked", func(t *testing.T) {
		_, err := New().Import(ctx, srv.URL+"/job")
		assert.ErrorIs(t, err, ErrBlockedAddress)
	})
}
