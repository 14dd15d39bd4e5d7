package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"franchise-crm/internal/core/mailer"
	"franchise-crm/internal/core/metrics"
	"franchise-crm/internal/domain"
)

type LogCommunicationInput struct {
	LeadID  string `json:"leadId"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type SendEmailInput struct {
	LeadID  string `json:"leadId"`
	Subject string `json:"subject"`
	Body    string `json:"body"` // markdown
}

type CommunicationService struct {
	comms    domain.CommunicationRepository
	leads    *LeadService
	settings domain.SettingsRepository
	mail     mailer.Sender
	log      *zap.Logger
}

func NewCommunicationService(comms domain.CommunicationRepository, leads *LeadService, settings domain.SettingsRepository, mail mailer.Sender, l *zap.Logger) *CommunicationService {
	if l == nil {
		l = zap.NewNop()
	}
	if mail == nil {
		mail = mailer.GomailSender{}
	}
	return &CommunicationService{comms: comms, leads: leads, settings: settings, mail: mail, log: l.Named("communications")}
}

func (s *CommunicationService) Log(ctx context.Context, caller domain.Caller, in LogCommunicationInput) (*domain.Communication, error) {
	if err := required("leadId", in.LeadID); err != nil {
		return nil, err
	}
	t := domain.CommunicationType(strings.TrimSpace(in.Type))
	if !t.Valid() {
		return nil, domain.Validationf("invalid communication type %q", in.Type)
	}
	content := strings.TrimSpace(in.Content)
	if err := required("content", content); err != nil {
		return nil, err
	}
	if _, err := s.leads.find(ctx, in.LeadID); err != nil {
		return nil, err
	}
	c := &domain.Communication{
		LeadID:    in.LeadID,
		Type:      t,
		Subject:   strings.TrimSpace(in.Subject),
		Content:   content,
		CreatedBy: callerRef(caller),
	}
	if err := s.comms.Create(ctx, c); err != nil {
		s.log.Error("log communication", zap.String("lead_id", in.LeadID), zap.Error(err))
		return nil, domain.Upstream("communication store", err)
	}
	return c, nil
}

func (s *CommunicationService) ByLead(ctx context.Context, leadID string) ([]domain.Communication, error) {
	out, err := s.comms.ListByLead(ctx, leadID)
	if err != nil {
		return nil, domain.Upstream("communication store", err)
	}
	return out, nil
}

func (s *CommunicationService) Delete(ctx context.Context, id string) error {
	if err := s.comms.Delete(ctx, id); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return err
		}
		return domain.Upstream("communication store", err)
	}
	return nil
}

// EmailContent 记录到沟通历史里的邮件正文
func EmailContent(subject, body string) string { return "Subject: " + subject + "\n\n" + body }

// SendEmail 用已保存的 SMTP 设置发送，成功后记为 email 类型的沟通记录
func (s *CommunicationService) SendEmail(ctx context.Context, caller domain.Caller, in SendEmailInput) (c *domain.Communication, err error) {
	subject := strings.TrimSpace(in.Subject)
	if err := required("subject", subject); err != nil {
		return nil, err
	}
	if err := required("body", in.Body); err != nil {
		return nil, err
	}
	lead, err := s.leads.find(ctx, in.LeadID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.GetEmailSettings(ctx)
	if err != nil {
		return nil, domain.Upstream("settings store", err)
	}
	if cfg == nil {
		return nil, domain.Validation("email settings are not configured")
	}

	err = s.mail.Send(ctx, SMTPFromSettings(cfg), mailer.Message{
		To:       lead.Email,
		ToName:   lead.FullName,
		Subject:  subject,
		Markdown: in.Body,
	})
	metrics.RecordEmail(err)
	if err != nil {
		s.log.Error("send email", zap.String("lead_id", lead.ID), zap.Error(err))
		return nil, domain.Upstream("smtp", err)
	}

	c = &domain.Communication{
		LeadID:    lead.ID,
		Type:      domain.CommEmail,
		Subject:   subject,
		Content:   EmailContent(subject, in.Body),
		CreatedBy: callerRef(caller),
	}
	if err := s.comms.Create(ctx, c); err != nil {
		s.log.Error("email sent but not logged", zap.String("lead_id", lead.ID), zap.Error(err))
		return nil, domain.PartialFailure("email sent but communication was not recorded", err)
	}
	return c, nil
}

func SMTPFromSettings(s *domain.EmailSettings) mailer.SMTP {
	return mailer.SMTP{
		Host:      s.SMTPHost,
		Port:      s.SMTPPort,
		User:      s.SMTPUser,
		Password:  s.SMTPPassword,
		SSL:       s.SMTPSecure,
		FromEmail: s.FromEmail,
		FromName:  s.FromName,
	}
}
