package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, to, runID, video, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	err := n.send(addr, nil, n.from, []string{to}, buildFailureMessage(n.from, to, runID, video, errorMsg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", to),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", to),
		zap.String("run_id", runID),
	)
	return nil
}

func buildFailureMessage(from, to, runID, video, errorMsg string) []byte {
	subject := fmt.Sprintf("Frame extraction failed [Run %s]", runID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Frame extraction for your video has permanently failed.\r\n\r\n"+
			"Run ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Check the video file and submit it again.\r\n\r\n"+
			"-- fiapx frame extractor",
		runID, video, errorMsg,
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
}
