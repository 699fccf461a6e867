package listener

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrSignupNotSupported indicates the account must already exist.
var ErrSignupNotSupported = errors.New("signup not supported")

func (l *Listener) authFlow() auth.Flow {
	return auth.NewFlow(l, auth.SendCodeOptions{})
}

func (l *Listener) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(code), nil
}

func (l *Listener) Phone(_ context.Context) (string, error) {
	phone := l.cfg.TGPhone

	if phone == "" {
		fmt.Print("Enter phone: ")

		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}

		phone = input
	}

	phone = sanitizePhone(phone)
	l.logger.Info().Str("phone", maskPhone(phone)).Msg("using phone number")

	return phone, nil
}

func (l *Listener) Password(_ context.Context) (string, error) {
	if l.cfg.TG2FAPassword != "" {
		return l.cfg.TG2FAPassword, nil
	}

	fmt.Print("Enter 2FA password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(password), nil
}

func (l *Listener) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (l *Listener) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}

// sanitizePhone strips everything but digits and a leading plus.
func sanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var b strings.Builder

	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)

			continue
		}

		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// maskPhone hides all but the last two digits for logging.
func maskPhone(phone string) string {
	if len(phone) <= 2 {
		return "**"
	}

	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}
