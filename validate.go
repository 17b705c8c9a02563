package dfxml

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// validateName rejects element and attribute names the writer cannot
// emit without producing a different document structure.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedTagName)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: tag '%s' contains space", ErrMalformedTagName, name)
	}
	if strings.ContainsAny(name, "<>&'\"=/") {
		return fmt.Errorf("%w: tag '%s' contains markup", ErrMalformedTagName, name)
	}
	return nil
}

func validateAttrs(attrs []Attr) error {
	for _, a := range attrs {
		if err := validateName(a.Name); err != nil {
			return err
		}
		if err := validateText(a.Value); err != nil {
			return fmt.Errorf("%w in attribute '%s'", err, a.Name)
		}
	}
	return nil
}

// validateText rejects content no XML 1.0 parser accepts: invalid UTF-8
// and characters outside the Char production.
func validateText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8 %q", ErrInvalidValue, s)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: illegal character %U", ErrInvalidValue, r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r < 0x20:
		return false
	case r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	}
	return r >= 0x10000 && r <= utf8.MaxRune
}

// validateRecordTags checks that the tags of a record can be written as
// leaves and read back as tags.
func validateRecordTags(tags TagMap) error {
	for k := range tags {
		if err := validateName(k); err != nil {
			return err
		}
		if reservedTag(k) {
			return fmt.Errorf("%w: tag '%s' is reserved", ErrMalformedTagName, k)
		}
	}
	return nil
}

// validateRunTags checks that run tags can be written as extra
// <byte_run> attributes without colliding with the offset attributes.
func validateRunTags(tags TagMap) error {
	for k := range tags {
		if err := validateName(k); err != nil {
			return err
		}
		switch k {
		case attrImgOffset, attrFileOffset, attrLen, attrSectorSize:
			return fmt.Errorf("%w: run attribute '%s' is reserved", ErrMalformedTagName, k)
		}
	}
	return nil
}
