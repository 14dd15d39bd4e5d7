package service

import (
	"context"
	"strings"

	"franchise-crm/internal/domain"
)

type SettingsService struct {
	repo domain.SettingsRepository
}

func NewSettingsService(repo domain.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get 不回传 SMTP 密码
func (s *SettingsService) Get(ctx context.Context) (*domain.EmailSettings, error) {
	cur, err := s.repo.GetEmailSettings(ctx)
	if err != nil {
		return nil, domain.Upstream("settings store", err)
	}
	if cur == nil {
		return nil, domain.NotFound("email settings are not configured")
	}
	cur.SMTPPassword = ""
	return cur, nil
}

// Save 密码留空表示沿用已保存的密码
func (s *SettingsService) Save(ctx context.Context, in domain.EmailSettings) (*domain.EmailSettings, error) {
	in.SMTPHost = strings.TrimSpace(in.SMTPHost)
	if err := required("smtpHost", in.SMTPHost); err != nil {
		return nil, err
	}
	if in.SMTPPort <= 0 || in.SMTPPort > 65535 {
		return nil, domain.Validationf("invalid smtpPort %d", in.SMTPPort)
	}
	from, err := checkEmail(in.FromEmail)
	if err != nil {
		return nil, err
	}
	in.FromEmail = from

	cur, err := s.repo.GetEmailSettings(ctx)
	if err != nil {
		return nil, domain.Upstream("settings store", err)
	}
	if in.SMTPPassword == "" && cur != nil {
		in.SMTPPassword = cur.SMTPPassword
	}
	if err := s.repo.SaveEmailSettings(ctx, &in); err != nil {
		return nil, domain.Upstream("settings store", err)
	}
	in.SMTPPassword = ""
	return &in, nil
}
