package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ansaralyh/AX-server/internal/common/config"
	"github.com/ansaralyh/AX-server/internal/common/logger"
)

// Mailer 通知网关：发送审批结果/密码重置邮件。
// 调用方约定为 best-effort：失败只记日志，不回滚已提交的状态变更。
type Mailer interface {
	SendApprovalEmail(to, name, password string) error
	SendRejectionEmail(to, name, reason string) error
	SendPasswordResetEmail(to, token string) error
}

// NewMailer 根据配置选择实现：SMTP 未配置时降级为日志输出。
func NewMailer(cfg config.SMTPConfig, log logger.Logger) Mailer {
	if strings.TrimSpace(cfg.Host) == "" {
		if log != nil {
			log.Warn("smtp host not configured, falling back to log mailer")
		}
		return &LogMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer net/smtp 实现。
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func (m *SMTPMailer) SendApprovalEmail(to, name, password string) error {
	subject := "Your Driver Application Has Been Approved"
	body := fmt.Sprintf(
		"Dear %s,\n\nYour driver application has been approved. You can now log in with:\n\nEmail: %s\nPassword: %s\n\nPlease change your password after your first login.\n",
		name, to, password,
	)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendRejectionEmail(to, name, reason string) error {
	subject := "Update on Your Driver Application"
	body := fmt.Sprintf(
		"Dear %s,\n\nWe regret to inform you that your driver application has not been approved.\nReason: %s\n",
		name, reason,
	)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendPasswordResetEmail(to, token string) error {
	subject := "Password Reset Request"
	body := fmt.Sprintf("Use the following token to reset your password:\n\n%s\n\nThe token expires in 30 minutes.\n", token)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient is empty")
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	var a smtp.Auth
	if m.cfg.User != "" {
		a = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer 开发/测试环境的降级实现：只打日志，永远成功。
type LogMailer struct {
	log logger.Logger
}

func (m *LogMailer) SendApprovalEmail(to, name, password string) error {
	if m.log != nil {
		m.log.WithFields(map[string]interface{}{"to": to, "name": name}).Info("approval email (log mailer)")
	}
	return nil
}

func (m *LogMailer) SendRejectionEmail(to, name, reason string) error {
	if m.log != nil {
		m.log.WithFields(map[string]interface{}{"to": to, "reason": reason}).Info("rejection email (log mailer)")
	}
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(to, token string) error {
	if m.log != nil {
		m.log.WithField("to", to).Info("password reset email (log mailer)")
	}
	return nil
}
