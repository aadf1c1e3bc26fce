package crawl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/extract"
	"github.com/gaurav-prasanna/pageaudit/core/fetch"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newResolver() *Resolver {
	log := quietLogger()
	return NewResolver(fetch.New(log), "pageaudit", log)
}

var runOpts = core.RunOptions{Timeout: 2 * time.Second}

// fetchedBase fetches and parses url the way the runner does for the base
// page.
func fetchedBase(url string) core.BasePage {
	return func(ctx context.Context) *core.Page {
		log := quietLogger()
		res, err := fetch.New(log).Fetch(ctx, url, runOpts.FetchOptions())
		if err != nil {
			return &core.Page{URL: url, Status: core.PageFetchFailed}
		}
		return extract.New(nil, log).Extract(res)
	}
}

func TestResolve_RobotsSitemapIndex(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, `<html><head><title>home</title></head><body></body></html>`)
		case "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "User-agent: *\nDisallow: /private\n\nSitemap: "+srv.URL+"/index.xml\n")
		case "/index.xml":
			w.Header().Set("Content-Type", "application/xml")
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>`+srv.URL+`/pages.xml</loc></sitemap>
  <sitemap><loc>`+srv.URL+`/missing.xml</loc></sitemap>
</sitemapindex>`)
		case "/pages.xml":
			w.Header().Set("Content-Type", "application/xml")
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>`+srv.URL+`/</loc></url>
  <url><loc> `+srv.URL+`/about </loc></url>
  <url><loc>`+srv.URL+`/logo.png</loc></url>
  <url><loc>https://other.test/page</loc></url>
</urlset>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := newResolver().Resolve(context.Background(), srv.URL+"/", fetchedBase(srv.URL+"/"), runOpts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.RobotsFound || res.Robots == nil {
		t.Fatal("robots.txt not found")
	}
	if res.Robots.Allowed(srv.URL+"/private/x") || !res.Robots.Allowed(srv.URL+"/about") {
		t.Error("robots policy not applied")
	}
	if !res.SitemapFound || res.SitemapURL != srv.URL+"/index.xml" {
		t.Fatalf("sitemap = %q found=%v", res.SitemapURL, res.SitemapFound)
	}
	want := []string{srv.URL + "/", srv.URL + "/about"}
	if !reflect.DeepEqual(res.SitemapURLs, want) {
		t.Errorf("sitemap URLs = %v, want %v", res.SitemapURLs, want)
	}
}

func TestResolve_SitemapLinkBeatsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, `<html><head><link rel="sitemap" href="/maps/site.xml"></head><body></body></html>`)
		case "/maps/site.xml", "/sitemap.xml":
			io.WriteString(w, `<urlset><url><loc>http://`+r.Host+r.URL.Path+`</loc></url></urlset>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := newResolver().Resolve(context.Background(), srv.URL+"/", fetchedBase(srv.URL+"/"), runOpts)
	if err != nil {
		t.Fatal(err)
	}
	if res.RobotsFound {
		t.Error("robots.txt should be missing")
	}
	if res.SitemapURL != srv.URL+"/maps/site.xml" {
		t.Errorf("sitemap = %q, want the linked one", res.SitemapURL)
	}
}

func TestResolve_ExplicitSitemapAndNothingFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := runOpts
	opts.SitemapURL = "/custom.xml"
	res, err := newResolver().Resolve(context.Background(), srv.URL, fetchedBase(srv.URL), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.SitemapFound || res.RobotsFound {
		t.Errorf("nothing should be found: %+v", res)
	}
	// robots, base page, custom sitemap, default sitemap
	if hits.Load() != 4 {
		t.Errorf("server saw %d requests, want 4", hits.Load())
	}
}

func TestResolve_LinkedFiles(t *testing.T) {
	tests := []struct {
		name          string
		head          string
		files         map[string]string
		manifest      bool
		browserConfig bool
	}{
		{
			name:  "both valid",
			head:  `<link rel="manifest" href="/site.webmanifest"><meta name="msapplication-config" content="/browserconfig.xml">`,
			files: map[string]string{"/site.webmanifest": `{"name": "Acme"}`, "/browserconfig.xml": `<?xml version="1.0"?><browserconfig><msapplication/></browserconfig>`},
			manifest: true, browserConfig: true,
		},
		{
			name:  "manifest missing",
			head:  `<link rel="manifest" href="/missing.webmanifest">`,
			files: map[string]string{},
		},
		{
			name:  "invalid files",
			head:  `<link rel="manifest" href="/site.webmanifest"><meta name="msapplication-config" content="/browserconfig.xml">`,
			files: map[string]string{"/site.webmanifest": `{"name": `, "/browserconfig.xml": `<browserconfig><tile></browserconfig>`},
		},
		{
			name: "nothing linked",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/" {
					w.Header().Set("Content-Type", "text/html")
					io.WriteString(w, `<html><head>`+tt.head+`</head><body></body></html>`)
					return
				}
				body, ok := tt.files[r.URL.Path]
				if !ok {
					http.NotFound(w, r)
					return
				}
				io.WriteString(w, body)
			}))
			defer srv.Close()

			res, err := newResolver().Resolve(context.Background(), srv.URL+"/", fetchedBase(srv.URL+"/"), runOpts)
			if err != nil {
				t.Fatal(err)
			}
			if res.ManifestFound != tt.manifest || res.BrowserConfigFound != tt.browserConfig {
				t.Errorf("manifest=%v browserconfig=%v, want %v/%v", res.ManifestFound, res.BrowserConfigFound, tt.manifest, tt.browserConfig)
			}
			if tt.head != "" && res.ManifestURL == "" {
				t.Error("manifest link not resolved")
			}
			if tt.head == "" && (res.ManifestURL != "" || res.BrowserConfigURL != "") {
				t.Errorf("unexpected links %+v", res)
			}
		})
	}
}

func TestResolve_WithoutBasePage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := newResolver().Resolve(context.Background(), srv.URL, nil, runOpts); err != nil {
		t.Fatal(err)
	}
	// robots and default sitemap only
	if hits.Load() != 2 {
		t.Errorf("server saw %d requests, want 2", hits.Load())
	}
}

func TestResolve_InvalidBase(t *testing.T) {
	if _, err := newResolver().Resolve(context.Background(), "not a url", nil, runOpts); err == nil {
		t.Error("expected error for relative base URL")
	}
}

func TestParseSitemap(t *testing.T) {
	urls, children, err := ParseSitemap(`<?xml version="1.0" encoding="ISO-8859-1"?><urlset><url><loc>https://a.test/é</loc></url></urlset>`)
	if err != nil || len(children) != 0 || !reflect.DeepEqual(urls, []string{"https://a.test/é"}) {
		t.Errorf("ParseSitemap = %v, %v, %v", urls, children, err)
	}
	if _, _, err := ParseSitemap(`<html></html>`); err == nil {
		t.Error("expected error for non-sitemap root")
	}
	if _, _, err := ParseSitemap(`not xml`); err == nil {
		t.Error("expected error for invalid XML")
	}
}

func TestRobotsPolicy_AgentGroups(t *testing.T) {
	body := []byte("User-agent: pageaudit\nDisallow: /audit-only\n\nUser-agent: *\nDisallow: /\n")
	p, err := ParseRobots(body, "PageAudit/1.0")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Allowed("https://a.test/page") || p.Allowed("https://a.test/audit-only?x=1") {
		t.Error("agent-specific group not selected")
	}
}

func TestQueue_Dedupes(t *testing.T) {
	q := NewQueue()
	for _, u := range []string{"https://a.test", "https://A.test/", "https://a.test/x#top", "https://a.test/x/", ""} {
		q.Add(u)
	}
	want := []string{"https://a.test", "https://a.test/x#top"}
	if !reflect.DeepEqual(q.All(), want) {
		t.Errorf("queue = %v, want %v", q.All(), want)
	}
	if q.Remaining() != 2 {
		t.Errorf("remaining = %d, want 2", q.Remaining())
	}
	var got []string
	for q.HasNext() {
		got = append(got, q.Next())
	}
	if len(got) != 2 || q.Visited() != 2 || q.Remaining() != 0 {
		t.Errorf("iterated %v, visited %d", got, q.Visited())
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"same domain", IsSameDomain("https://A.test/x", "a.test"), true},
		{"other domain", IsSameDomain("https://b.test/x", "a.test"), false},
		{"static asset", IsStaticAsset("https://a.test/img/logo.PNG"), true},
		{"page", IsStaticAsset("https://a.test/about"), false},
		{"normalize", NormalizeURL("https://A.test/docs/#intro"), "https://a.test/docs"},
		{"normalize root", NormalizeURL("https://a.test"), "https://a.test/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
