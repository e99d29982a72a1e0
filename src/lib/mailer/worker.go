package mailer

import (
	"log"
	"os"

	awslib "ets/src/lib/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tidwall/gjson"
)

// StartDeliveryWorker consumes the email queue and hands each queued
// message to SES. Runs only on AWS environments; locally mail goes
// straight through SMTP and never reaches the queue.
func StartDeliveryWorker() {
	queue := os.Getenv("EMAIL_QUEUE")
	if queue == "" {
		log.Println("[mailer] EMAIL_QUEUE not set, delivery worker not started")
		return
	}
	consumer := awslib.NewSQSConsumer(queue, DeliverQueuedMessage)
	consumer.Listen()
}

func DeliverQueuedMessage(body string) {
	if !gjson.Valid(body) {
		log.Printf("[mailer] Dropping malformed queue message\n")
		return
	}
	from := gjson.Get(body, "from").String()
	subject := gjson.Get(body, "subject").String()
	text := gjson.Get(body, "body").String()
	var to []string
	for _, addr := range gjson.Get(body, "to").Array() {
		to = append(to, addr.String())
	}
	if from == "" || len(to) == 0 {
		log.Printf("[mailer] Dropping queue message without sender or recipients\n")
		return
	}
	dest := &sestypes.Destination{ToAddresses: to}
	message := &sestypes.Message{
		Subject: &sestypes.Content{Data: aws.String(subject)},
		Body: &sestypes.Body{
			Text: &sestypes.Content{Data: aws.String(text)},
		},
	}
	if html := gjson.Get(body, "html").String(); html != "" {
		message.Body.Html = &sestypes.Content{Data: aws.String(html)}
	}
	awslib.SESSendMessage(aws.String(from), dest, message)
}
