package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Forwards mail received on the Vendora contact address to the team
// inbox. SES writes the raw message to S3 and notifies via SNS; this
// Lambda fetches the stored message and re-sends it.

var (
	s3Client   *s3.Client
	sesClient  *ses.Client
	bucketName string
	forwardTo  string
)

func init() {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	sesClient = ses.NewFromConfig(cfg)

	bucketName = os.Getenv("S3_BUCKET_NAME")
	forwardTo = os.Getenv("FORWARD_TO_EMAIL")

	if bucketName == "" || forwardTo == "" {
		log.Fatal("S3_BUCKET_NAME and FORWARD_TO_EMAIL environment variables are required")
	}

	log.Printf("Contact forwarder initialized - forwarding to: %s", forwardTo)
}

// SESMessage represents the SNS message payload from SES
type SESMessage struct {
	EventSource string `json:"eventSource"`
	Receipt     struct {
		Timestamp            string                 `json:"timestamp"`
		Recipients           []string               `json:"recipients"`
		SpamVerdict          map[string]interface{} `json:"spamVerdict"`
		DkimVerdict          map[string]interface{} `json:"dkimVerdict"`
		ProcessingTimeMillis int                    `json:"processingTimeMillis"`
		SPFVerdict           map[string]interface{} `json:"spfVerdict"`
		Action               map[string]interface{} `json:"action"`
		DmarcVerdict         map[string]interface{} `json:"dmarcVerdict"`
	} `json:"receipt"`
	Mail struct {
		Timestamp   string   `json:"timestamp"`
		Destination []string `json:"destination"`
		Headers     []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		CommonHeaders struct {
			ReturnPath string   `json:"returnPath"`
			From       []string `json:"from"`
			Date       string   `json:"date"`
			To         []string `json:"to"`
			MessageID  string   `json:"messageId"`
			Subject    string   `json:"subject"`
		} `json:"commonHeaders"`
		Source    string `json:"source"`
		MessageID string `json:"messageId"`
	} `json:"mail"`
}

func HandleSESEvent(ctx context.Context, snsEvent events.SNSEvent) error {
	for _, record := range snsEvent.Records {
		sns := record.SNS

		// Parse the SNS message
		var sesMsg SESMessage
		if err := json.Unmarshal([]byte(sns.Message), &sesMsg); err != nil {
			log.Printf("Error parsing SES message: %v", err)
			continue
		}

		log.Printf("Processing message from: %s, MessageID: %s", sesMsg.Mail.Source, sesMsg.Mail.MessageID)

		// The receiving rule already runs the SES spam scan; don't
		// forward what it flagged
		if verdictFailed(sesMsg.Receipt.SpamVerdict) {
			log.Printf("Spam verdict FAIL for %s, skipping", sesMsg.Mail.MessageID)
			continue
		}

		// SES stores the raw message with the messageId as the key
		messageID := sesMsg.Mail.MessageID
		if len(messageID) == 0 {
			log.Printf("Empty message ID, skipping")
			continue
		}

		// The S3 write can lag the SNS notification, so retry briefly
		var result *s3.GetObjectOutput
		var err error
		for attempt := 1; attempt <= 3; attempt++ {
			result, err = s3Client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: &bucketName,
				Key:    &messageID,
			})
			if err == nil {
				break
			}
			if attempt < 3 {
				log.Printf("Attempt %d to retrieve message from S3 failed: %v. Retrying...", attempt, err)
				time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			}
		}
		if err != nil {
			log.Printf("Error retrieving message from S3 after retries: %v", err)
			continue
		}

		rawMessage, err := io.ReadAll(result.Body)
		result.Body.Close()
		if err != nil {
			log.Printf("Error reading message data: %v", err)
			continue
		}

		if err := forwardMessage(ctx, sesMsg, string(rawMessage)); err != nil {
			log.Printf("Error forwarding message: %v", err)
			continue
		}

		log.Printf("Successfully forwarded message from: %s", sesMsg.Mail.Source)
	}

	return nil
}

// verdictFailed reports whether an SES receipt verdict came back FAIL
func verdictFailed(verdict map[string]interface{}) bool {
	status, ok := verdict["status"].(string)
	return ok && status == "FAIL"
}

func forwardMessage(ctx context.Context, mail SESMessage, rawMessage string) error {
	subject := mail.Mail.CommonHeaders.Subject
	from := mail.Mail.Source

	if !strings.HasPrefix(subject, "Fwd:") {
		subject = fmt.Sprintf("Fwd: %s", subject)
	}

	// The contact address the sender wrote to, for the forwarded header
	contactAddress := "the Vendora contact address"
	if len(mail.Receipt.Recipients) > 0 {
		contactAddress = mail.Receipt.Recipients[0]
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; }
		.forwarded-header {
			background-color: #f5f5f5;
			padding: 10px;
			border-left: 3px solid #e05d35;
			margin: 20px 0;
		}
		.forwarded-content { margin-top: 20px; }
	</style>
</head>
<body>
	<div class="forwarded-header">
		<strong>Forwarded from %s</strong><br>
		From: %s<br>
		Date: %s<br>
		Subject: %s
	</div>
	<div class="forwarded-content">
		<pre style="white-space: pre-wrap; word-wrap: break-word;">%s</pre>
	</div>
</body>
</html>
	`, contactAddress, from, mail.Mail.CommonHeaders.Date, mail.Mail.CommonHeaders.Subject, rawMessage)

	textBody := fmt.Sprintf(`
---------- Forwarded message ---------
From: %s
Date: %s
Subject: %s

%s
	`, from, mail.Mail.CommonHeaders.Date, mail.Mail.CommonHeaders.Subject, rawMessage)

	charset := "UTF-8"
	input := &ses.SendEmailInput{
		Source: &forwardTo,
		Destination: &types.Destination{
			ToAddresses: []string{forwardTo},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    &subject,
				Charset: &charset,
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    &htmlBody,
					Charset: &charset,
				},
				Text: &types.Content{
					Data:    &textBody,
					Charset: &charset,
				},
			},
		},
	}

	_, err := sesClient.SendEmail(ctx, input)
	return err
}

func main() {
	lambda.Start(HandleSESEvent)
}
