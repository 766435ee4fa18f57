package notification

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"
)

type EmailConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	FromName  string
	InviteTTL time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	config EmailConfig
	send   sendFunc
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config, send: smtp.SendMail}
}

// SendInviteEmail delivers a registration link to an approved applicant.
func (s *EmailService) SendInviteEmail(to, name, inviteURL string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address")
	}

	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(name))
	}
	expiry := ""
	if days := int(s.config.InviteTTL.Hours() / 24); days > 0 {
		expiry = fmt.Sprintf("<p>This invitation expires in %d days and can be used once.</p>", days)
	}
	link := html.EscapeString(inviteURL)

	subject := "Your membership request was approved"
	body := fmt.Sprintf(`<html><body>
		<p>%s</p>
		<p>Your request to join has been approved. Complete your registration using the link below.</p>
		<p><a href="%s">Complete registration</a></p>
		<p>Or copy this link to your browser: %s</p>
		%s
	</body></html>`, greeting, link, link, expiry)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.send(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send invite email: %w", err)
	}
	return nil
}
