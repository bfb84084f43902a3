package utils

import (
	"path/filepath"
	"strings"
)

// 文件类型分类名称
const (
	CategoryPDF        = "PDF"
	CategoryWord       = "Word"
	CategoryPowerPoint = "PowerPoint"
	CategoryExcel      = "Excel"
	CategoryZIP        = "ZIP"
	CategoryRAR        = "RAR"
	Category7Z         = "7Z"
)

var AllCategories = []string{
	CategoryPDF, CategoryWord, CategoryPowerPoint, CategoryExcel,
	CategoryZIP, CategoryRAR, Category7Z,
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"zip":  "application/zip",
	"rar":  "application/vnd.rar",
	"7z":   "application/x-7z-compressed",
	"txt":  "text/plain",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

// Ext 小写扩展名，不带点
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ContentTypeFromName falls back to application/octet-stream.
func ContentTypeFromName(filename string) string {
	if ct, ok := contentTypes[Ext(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DetectCategory 根据 content type 和扩展名识别文件类型，无法识别返回空串
func DetectCategory(contentType, filename string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return CategoryPDF
	case strings.Contains(ct, "wordprocessingml"), strings.Contains(ct, "msword"):
		return CategoryWord
	case strings.Contains(ct, "presentationml"), strings.Contains(ct, "ms-powerpoint"):
		return CategoryPowerPoint
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "ms-excel"):
		return CategoryExcel
	case strings.Contains(ct, "7z"):
		return Category7Z
	case strings.Contains(ct, "rar"):
		return CategoryRAR
	case strings.Contains(ct, "zip") && !strings.Contains(ct, "openxml"):
		return CategoryZIP
	}

	switch Ext(filename) {
	case "pdf":
		return CategoryPDF
	case "doc", "docx":
		return CategoryWord
	case "ppt", "pptx":
		return CategoryPowerPoint
	case "xls", "xlsx":
		return CategoryExcel
	case "zip":
		return CategoryZIP
	case "rar":
		return CategoryRAR
	case "7z":
		return Category7Z
	}
	return ""
}
