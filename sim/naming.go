package sim

import (
	"log"
	"strings"
	"unicode"
)

// NameMustBeValid panics if name is not a dot-separated list of identifiers
// that each start with an upper-case letter, e.g. "Zedboard.CDMA".
func NameMustBeValid(name string) {
	if name == "" {
		log.Panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			log.Panicf("name %q has an empty element", name)
		}

		first := []rune(token)[0]
		if !unicode.IsUpper(first) {
			log.Panicf("element %q of name %q must start with a capital letter",
				token, name)
		}

		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
				r != '[' && r != ']' && r != '_' {
				log.Panicf("name %q contains invalid character %q", name, r)
			}
		}
	}
}
