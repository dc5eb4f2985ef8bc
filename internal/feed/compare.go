package feed

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	digitRunRe   = regexp.MustCompile(`\d+`)
	fileNumberRe = regexp.MustCompile(`(\d+)\.[A-Za-z0-9_-]+$`)
)

// dateTimestamp parses the item's date into a unix-milli timestamp.
func dateTimestamp(it *Item) (int64, bool) {
	if it == nil || it.Date == "" {
		return 0, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, it.Date); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// numericValue extracts an ordering number from the id (numeric coercion,
// else the first digit run) or, failing that, from the markdown filename
// (digits immediately before the extension, else the first digit run).
func numericValue(it *Item) (float64, bool) {
	if it == nil {
		return 0, false
	}
	if it.ID != "" {
		if n, err := strconv.ParseFloat(it.ID, 64); err == nil {
			return n, true
		}
		if m := digitRunRe.FindString(it.ID); m != "" {
			if n, err := strconv.ParseFloat(m, 64); err == nil {
				return n, true
			}
		}
	}
	if it.MD != "" {
		if m := fileNumberRe.FindStringSubmatch(it.MD); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				return n, true
			}
		}
		if m := digitRunRe.FindString(it.MD); m != "" {
			if n, err := strconv.ParseFloat(m, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Compare is the canonical "newest first" total order: date descending,
// dated items before undated, then extracted number descending, numbered
// items before unnumbered, else equal. Items sharing a date are
// order-equal; the numeric tiebreak applies only when neither side has a
// usable date, so same-day posts keep their insertion order under a
// stable sort.
func Compare(a, b *Item) int {
	da, aok := dateTimestamp(a)
	db, bok := dateTimestamp(b)
	switch {
	case aok && bok:
		if da == db {
			return 0
		}
		if db > da {
			return 1
		}
		return -1
	case aok:
		return -1
	case bok:
		return 1
	}
	na, aok := numericValue(a)
	nb, bok := numericValue(b)
	switch {
	case aok && bok:
		if na != nb {
			if nb > na {
				return 1
			}
			return -1
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	return 0
}

// compareOldest orders dated items ascending; undated items keep their
// relative order, matching the archive's "oldest" mode.
func compareOldest(a, b *Item) int {
	da, aok := dateTimestamp(a)
	db, bok := dateTimestamp(b)
	switch {
	case aok && bok:
		if da != db {
			if da > db {
				return 1
			}
			return -1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return 0
}

// compareAlpha orders by lower-cased title, falling back to content.
func compareAlpha(a, b *Item) int {
	return strings.Compare(alphaKey(a), alphaKey(b))
}

func alphaKey(it *Item) string {
	if it.Title != "" {
		return strings.ToLower(it.Title)
	}
	return strings.ToLower(it.Content)
}

// CategoryMatches reports whether an item's category satisfies a list
// filter. The match is deliberately loose to tolerate singular/plural
// naming drift: exact, pluralized-equals either way, or either string a
// prefix of the other, all case-insensitive.
func CategoryMatches(itemCategory, listCategory string) bool {
	if itemCategory == "" || listCategory == "" {
		return false
	}
	ic := strings.ToLower(itemCategory)
	lc := strings.ToLower(listCategory)
	if ic == lc {
		return true
	}
	if ic == lc+"s" || lc == ic+"s" {
		return true
	}
	if strings.HasPrefix(ic, lc) || strings.HasPrefix(lc, ic) {
		return true
	}
	return false
}
