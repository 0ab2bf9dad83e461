package model

import (
	"path"
	"strings"
)

// Category classifies a captured file.
// Every resource URL belongs to exactly one category.
type Category int

const (
	// CategoryPage is an HTML document reached through a hyperlink.
	CategoryPage Category = iota
	// CategoryScript is a JavaScript file.
	CategoryScript
	// CategoryStyle is a stylesheet.
	CategoryStyle
	// CategoryImage is a raster or vector image.
	CategoryImage
	// CategoryOther is anything else referenced from a stylesheet (fonts, media).
	CategoryOther
)

// ResourceCategories lists the categories tracked in the resource inventory,
// in manifest order.
var ResourceCategories = []Category{
	CategoryScript,
	CategoryStyle,
	CategoryImage,
	CategoryOther,
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPage:
		return "page"
	case CategoryScript:
		return "script"
	case CategoryStyle:
		return "style"
	case CategoryImage:
		return "image"
	case CategoryOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseCategory is the inverse of String. Unknown names map to CategoryOther.
func ParseCategory(s string) Category {
	switch s {
	case "page":
		return CategoryPage
	case "script":
		return CategoryScript
	case "style":
		return CategoryStyle
	case "image":
		return CategoryImage
	default:
		return CategoryOther
	}
}

// imageExtensions are the file extensions classified as images.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
	".webp": {},
	".ico":  {},
	".avif": {},
	".bmp":  {},
}

// CategoryFromPath infers the category of a stylesheet reference from the
// extension of its URL path.
func CategoryFromPath(p string) Category {
	ext := strings.ToLower(path.Ext(p))
	if _, ok := imageExtensions[ext]; ok {
		return CategoryImage
	}
	if ext == ".css" {
		return CategoryStyle
	}
	return CategoryOther
}
