// Package email sends comment notifications via SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email with an optional Reply-To header.
func (s *Service) SendEmail(to []string, replyTo, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	msg.WriteString(body)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, []byte(msg.String()))
}

// SendCommentNotification tells the blog owner about a new comment. The
// Reply-To header points at the commenter so answering the notification
// answers them directly.
func (s *Service) SendCommentNotification(to, toName, posterName, replyTo, blogName, postTitle, commentText, postURL, remoteAddr string) error {
	subject := commentNotificationSubject(blogName)
	body := commentNotificationBody(toName, posterName, postTitle, commentText, postURL, remoteAddr)
	return s.SendEmail([]string{to}, replyTo, subject, body)
}

func commentNotificationSubject(blogName string) string {
	return fmt.Sprintf("A new comment has been posted on %s", firstNonEmpty(blogName, "your blog"))
}

func commentNotificationBody(toName, posterName, postTitle, commentText, postURL, remoteAddr string) string {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\r\n\r\n", firstNonEmpty(toName, "there"))
	fmt.Fprintf(&body, "%s just commented on %s:\r\n\r\n", posterName, postTitle)
	fmt.Fprintf(&body, "%s\r\n\r\n", commentText)
	fmt.Fprintf(&body, "View the post: %s\r\n", postURL)
	if remoteAddr != "" {
		fmt.Fprintf(&body, "Commenter address: %s\r\n", remoteAddr)
	}
	return body.String()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
