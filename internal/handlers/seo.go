package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

type SEOHandler struct {
	app     *services.App
	siteURL string
}

func NewSEOHandler(app *services.App, siteURL string) *SEOHandler {
	return &SEOHandler{app: app, siteURL: strings.TrimRight(siteURL, "/")}
}

// RobotsTxt 返回robots.txt内容
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

# 禁止爬取管理后台和个人接口
Disallow: /api/admin/
Disallow: /api/notifications
Disallow: /api/auth/
Disallow: /api/documents/*/download

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML 只列出匿名用户可见的文档
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	docs, err := h.app.Documents.List(c.Request.Context(), nil, services.ListFilter{Limit: 200})
	if err != nil {
		respondError(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	fmt.Fprintf(&b, `  <url>
    <loc>%s/</loc>
    <lastmod>%s</lastmod>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>
`, html.EscapeString(h.siteURL), time.Now().Format("2006-01-02"))

	for _, doc := range docs {
		priority := 0.6
		if time.Since(doc.CreatedAt) < 7*24*time.Hour {
			priority = 0.8
		}
		fmt.Fprintf(&b, `  <url>
    <loc>%s/documents/%d</loc>
    <lastmod>%s</lastmod>
    <changefreq>weekly</changefreq>
    <priority>%.1f</priority>
  </url>
`, html.EscapeString(h.siteURL), doc.ID, doc.CreatedAt.Format("2006-01-02"), priority)
	}
	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}
