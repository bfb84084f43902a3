package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HardenLinks 为链接和图片补充安全属性
func HardenLinks(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("rel", "nofollow noopener noreferrer")
	})

	// goquery renders full document tags if missing, we just want the body content
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}
	return html
}

// PlainText 渲染 markdown 后取纯文本，空白折叠成单个空格
func PlainText(markdown string) string {
	rendered := RenderMarkdown(markdown)
	if rendered == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return CollapseSpaces(StripTags(markdown))
	}
	return CollapseSpaces(doc.Text())
}
