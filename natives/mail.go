package natives

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"eva/runtime"
)

// RegisterMail wires `mail-send` onto globals, grounded on
// senapati484-flowa/pkg/eval/eval.go's mail.send (gomail dialer usage).
// Eva has no map literal, so the fields that flowa reads out of a Map are
// taken as positional string arguments instead. SMTP credentials are read
// from the process environment, populated by main.go's godotenv.Load call.
func RegisterMail(globals *runtime.Globals) {
	globals.RegisterNativeDoc("mail-send", "(mail-send to from subject body) -> sends an email via SMTP", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 4 {
			return runtime.Value{}, arityError("mail-send", 4, len(args))
		}
		to, err := wantString("mail-send", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		from, err := wantString("mail-send", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}
		subject, err := wantString("mail-send", args, 2)
		if err != nil {
			return runtime.Value{}, err
		}
		body, err := wantString("mail-send", args, 3)
		if err != nil {
			return runtime.Value{}, err
		}

		smtpHost := os.Getenv("SMTP_HOST")
		smtpPortStr := os.Getenv("SMTP_PORT")
		smtpUser := os.Getenv("SMTP_USER")
		smtpPass := os.Getenv("SMTP_PASS")
		if smtpHost == "" || smtpPortStr == "" {
			return runtime.Value{}, fmt.Errorf("mail-send: SMTP_HOST and SMTP_PORT must be set")
		}
		smtpPort, err := strconv.Atoi(smtpPortStr)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("mail-send: SMTP_PORT must be an integer")
		}
		if from == "" {
			from = smtpUser
		}

		m := gomail.NewMessage()
		m.SetHeader("From", from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", body)

		d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
		if err := d.DialAndSend(m); err != nil {
			return runtime.Value{}, fmt.Errorf("mail-send: %w", err)
		}
		return runtime.Bool(true), nil
	})
}
