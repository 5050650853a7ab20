package prototype

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	AccountNameMinLength = 3
	AccountNameMaxLength = 16
)

// ValidateAccountName checks the ledger's account naming rules: 3 to 16
// characters, dot separated segments of at least 3 characters, each segment
// starting with a letter and ending with a letter or digit.
func ValidateAccountName(name string) error {
	if len(name) < AccountNameMinLength {
		return errors.Errorf("account name %q is too short", name)
	}
	if len(name) > AccountNameMaxLength {
		return errors.Errorf("account name %q is too long", name)
	}
	for _, seg := range strings.Split(name, ".") {
		if len(seg) < AccountNameMinLength {
			return errors.Errorf("account name %q has a segment shorter than 3 characters", name)
		}
		if seg[0] < 'a' || seg[0] > 'z' {
			return errors.Errorf("account name %q segment must start with a letter", name)
		}
		last := seg[len(seg)-1]
		if !isLowerAlnum(last) {
			return errors.Errorf("account name %q segment must end with a letter or digit", name)
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			if c == '-' {
				if i > 0 && seg[i-1] == '-' {
					return errors.Errorf("account name %q contains consecutive dashes", name)
				}
				continue
			}
			if !isLowerAlnum(c) {
				return errors.Errorf("account name %q contains invalid character %q", name, c)
			}
		}
	}
	return nil
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
