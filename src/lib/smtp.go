package lib

import (
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

func GetSMTPClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	portEnv := os.Getenv("SMTP_PORT")
	port, err := strconv.Atoi(portEnv)
	if err != nil {
		port = 587
	}
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	c, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(user), mail.WithPassword(pass))
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	ReplyTo  string
	Subject  string
	Body     string
	Html     *string
}

func SMTPSendMail(input *SendMailInput) error {
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(input.FromName, input.From); err != nil {
		return err
	}
	if err := msg.To(input.To...); err != nil {
		return err
	}
	msg.Subject(input.Subject)
	msg.SetBodyString(mail.TypeTextPlain, input.Body)
	if input.Html != nil {
		msg.AddAlternativeString(mail.TypeTextHTML, *input.Html)
	}
	if err := c.DialAndSend(msg); err != nil {
		log.Printf("[smtp] Error sending mail: %s\n", err.Error())
		return err
	}
	return nil
}
