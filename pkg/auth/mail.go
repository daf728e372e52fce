package auth

import (
	"fmt"
	"html"
	"time"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

const productName = "noteZipper"

// codeMessage returns the subject and HTML body carrying code for purpose.
func codeMessage(purpose domain.CodePurpose, code string, ttl time.Duration) (string, string) {
	expires := humanDuration(ttl)
	switch purpose {
	case domain.PurposePasswordReset:
		return "Reset Your Password", fmt.Sprintf(
			"<p>Enter <b>%s</b> in %s to reset your password.</p><p>This code <b>expires in %s</b>.</p>",
			html.EscapeString(code), productName, expires)
	default:
		return "Verify Your Email", fmt.Sprintf(
			"<p>Enter <b>%s</b> in %s to verify your email address and complete the signup.</p><p>This code <b>expires in %s</b>.</p>",
			html.EscapeString(code), productName, expires)
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
