package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// EmailPolicy controls how strictly applicant addresses are checked.
type EmailPolicy struct {
	Strict          bool
	BlockDisposable bool
}

// Email validates an address for format and length under the policy.
func (p EmailPolicy) Email(email string) error {
	if email == "" {
		return fmt.Errorf("email address is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}

	addr, err := mail.ParseAddress(NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("invalid email address format")
	}
	// ParseAddress accepts display names; only a bare address is allowed here.
	if addr.Address != NormalizeEmail(email) {
		return fmt.Errorf("invalid email address format")
	}

	if p.Strict && !emailRegex.MatchString(addr.Address) {
		return fmt.Errorf("invalid email address format")
	}

	if p.BlockDisposable && disposableDomains[emailDomain(addr.Address)] {
		return fmt.Errorf("disposable email addresses are not allowed")
	}

	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
