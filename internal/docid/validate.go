package docid

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notestore/internal/apperr"
)

var (
	errLeadingSlash  = validation.NewError("validation_pathname_leading_slash", "must start with /")
	errTrailingSlash = validation.NewError("validation_pathname_trailing_slash", "must not end with /")
	errEmptySegment  = validation.NewError("validation_pathname_empty_segment", "must not contain empty segments")
	errDotSegment    = validation.NewError("validation_pathname_dot_segment", "must not contain . or .. segments")
	errSeparator     = validation.NewError("validation_tag_separator", "must not contain path separators")
	errBlank         = validation.NewError("validation_tag_blank", "must not be blank")
)

var pathnameRule = validation.By(func(value any) error {
	p, _ := value.(string)
	if !strings.HasPrefix(p, "/") {
		return errLeadingSlash
	}
	if p == RootPathname {
		return nil
	}
	if strings.HasSuffix(p, "/") {
		return errTrailingSlash
	}
	for _, seg := range strings.Split(p[1:], "/") {
		switch seg {
		case "":
			return errEmptySegment
		case ".", "..":
			return errDotSegment
		}
	}
	return nil
})

var tagNameRule = validation.By(func(value any) error {
	name, _ := value.(string)
	if strings.ContainsAny(name, `/\`) {
		return errSeparator
	}
	if strings.TrimSpace(name) == "" {
		return errBlank
	}
	return nil
})

// ValidateFolderPathname checks that p is a canonical folder pathname.
// The returned error wraps apperr.ErrUnprocessable.
func ValidateFolderPathname(p string) error {
	if err := validation.Validate(p, validation.Required, pathnameRule); err != nil {
		return unprocessable("pathname", p, err)
	}
	return nil
}

// ValidateTagName checks that name can be used as a tag.
// The returned error wraps apperr.ErrUnprocessable.
func ValidateTagName(name string) error {
	if err := validation.Validate(name, validation.Required, tagNameRule); err != nil {
		return unprocessable("tag name", name, err)
	}
	return nil
}

// IsValidFolderPathname reports whether p is a canonical folder pathname.
func IsValidFolderPathname(p string) bool {
	return ValidateFolderPathname(p) == nil
}

// IsValidTagName reports whether name is a valid tag name.
func IsValidTagName(name string) bool {
	return ValidateTagName(name) == nil
}

func unprocessable(what, got string, cause error) error {
	return fmt.Errorf("%w: %s is invalid, got %q: %w", apperr.ErrUnprocessable, what, got, cause)
}
