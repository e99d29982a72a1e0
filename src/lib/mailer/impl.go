package mailer

import (
	"encoding/json"
	"ets/src/config"
	"ets/src/lib"
	"ets/src/types"
	"fmt"
	"log"
	"os"
)

// NewMailerMessage hands a mail off for delivery. In production the
// message goes onto the email queue for the delivery worker; locally it
// is sent straight through SMTP when a host is configured.
func NewMailerMessage(input *lib.SendMailInput) error {
	apiEnv := config.API_ENV
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		emailQueue := os.Getenv("EMAIL_QUEUE")
		emailBody := &types.JSONB{
			"from":      input.From,
			"from-name": input.FromName,
			"to":        input.To,
			"reply-to":  input.ReplyTo,
			"body":      input.Body,
			"html":      input.Html,
			"subject":   input.Subject,
		}
		body, err := json.Marshal(&emailBody)
		if err != nil {
			return err
		}
		if err := lib.SQSProduceMessage(emailQueue, string(body)); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	if os.Getenv("SMTP_HOST") == "" {
		log.Printf("[mailer] No SMTP host configured, dropping mail to %v: %s\n", input.To, input.Subject)
		return nil
	}
	return lib.SMTPSendMail(input)
}
