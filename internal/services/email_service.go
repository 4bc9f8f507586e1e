package services

import (
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type LoginNotice struct {
	FirstName string
	LastName  string
	IP        string
	UserAgent string
	At        time.Time
}

type EmailService interface {
	SendVerificationCode(email, code string) error
	SendLoginNotification(email string, notice LoginNotice) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
	name   string
	dryRun bool
	log    *zap.Logger
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, fromName string, dryRun bool, log *zap.Logger) EmailService {
	if log == nil {
		log = zap.L()
	}
	if fromEmail == "" {
		fromEmail = smtpUser
	}
	return &emailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
		name:   fromName,
		dryRun: dryRun,
		log:    log,
	}
}

func (s *emailService) send(to, subject, text, htmlBody string) error {
	if s.dryRun {
		s.log.Info("[email][dry-run]", zap.String("to", to), zap.String("subject", subject), zap.String("text", text))
		return nil
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.name)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", htmlBody)
	return s.dialer.DialAndSend(m)
}

func (s *emailService) SendVerificationCode(email, code string) error {
	text := fmt.Sprintf("Ваш код подтверждения: %s. Он действителен в течение 15 минут.", code)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Код подтверждения для ShopEMX</h2>
			<p>Ваш код подтверждения:</p>
			<div style="background-color: #f5f5f5; padding: 10px; font-size: 24px; font-weight: bold; text-align: center; letter-spacing: 5px;">%s</div>
			<p>Код действителен в течение 15 минут.</p>
			<p>Если вы не запрашивали этот код, проигнорируйте это сообщение.</p>
		</div>
	`, code)

	if err := s.send(email, "Код подтверждения для ShopEMX", text, body); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *emailService) SendLoginNotification(email string, n LoginNotice) error {
	ip := n.IP
	if ip == "" {
		ip = "Не определен"
	}
	ua := n.UserAgent
	if ua == "" {
		ua = "Не определено"
	}
	at := n.At.Format("02.01.2006 15:04:05")

	text := fmt.Sprintf("Уважаемый %s %s, был выполнен вход в ваш аккаунт ShopEMX.\n\n"+
		"Время входа: %s\nIP-адрес: %s\nУстройство: %s\n\n"+
		"Если это были не вы, немедленно смените пароль и свяжитесь с поддержкой.",
		n.FirstName, n.LastName, at, ip, ua)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Вход в аккаунт ShopEMX</h2>
			<p>Уважаемый %s %s,</p>
			<p>Был выполнен вход в ваш аккаунт ShopEMX.</p>
			<p><strong>Время входа:</strong> %s<br><strong>IP-адрес:</strong> %s<br><strong>Устройство:</strong> %s</p>
			<p>Если это были не вы, немедленно смените пароль и свяжитесь с поддержкой.</p>
		</div>
	`, html.EscapeString(n.FirstName), html.EscapeString(n.LastName), at, html.EscapeString(ip), html.EscapeString(ua))

	if err := s.send(email, "Вход в аккаунт ShopEMX", text, body); err != nil {
		return fmt.Errorf("failed to send login notification: %w", err)
	}
	return nil
}
