package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/promptpay"
	"github.com/railzwaylabs/dormitory/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Vault vault.Provider
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	vault vault.Provider
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("dormitory.service"),
		genID: p.GenID,
		repo:  p.Repo,
		vault: p.Vault,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Dormitory, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	dueDay := req.DueDay
	if dueDay == 0 {
		dueDay = domain.DefaultDueDay
	}
	if dueDay < 1 || dueDay > 28 {
		return nil, domain.ErrInvalidDueDay
	}

	var address *string
	if req.Address != nil {
		if trimmed := strings.TrimSpace(*req.Address); trimmed != "" {
			address = &trimmed
		}
	}

	id := s.genID.Generate()
	// Names without a latin transliteration fall back to the id.
	slugValue := slug.Make(name)
	if slugValue == "" {
		slugValue = id.String()
	}

	now := time.Now().UTC()
	dorm := &domain.Dormitory{
		ID:        id,
		Name:      name,
		Slug:      slugValue,
		Address:   address,
		Active:    true,
		DueDay:    dueDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, dorm); err != nil {
		return nil, err
	}

	s.log.Info("dormitory created", zap.String("dormitory_id", dorm.ID.String()))
	return dorm, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Dormitory, error) {
	dorm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dorm == nil {
		return nil, domain.ErrNotFound
	}
	return dorm, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Dormitory, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListActiveAfter(ctx context.Context, afterID snowflake.ID) ([]domain.Dormitory, error) {
	return s.repo.ListActiveAfter(ctx, afterID)
}

func (s *Service) UpsertNotificationConfig(ctx context.Context, req domain.UpsertNotificationConfigRequest) (*domain.NotificationConfigResponse, error) {
	if _, err := s.Get(ctx, req.DormitoryID); err != nil {
		return nil, err
	}

	kind := notificationdomain.ChannelKind(strings.TrimSpace(req.Channel))
	if !kind.Valid() {
		return nil, domain.ErrInvalidChannel
	}
	destination := strings.TrimSpace(req.Destination)
	if kind != notificationdomain.ChannelLineNotify && destination == "" {
		return nil, domain.ErrInvalidDestination
	}

	events := datatypes.JSONMap{}
	for _, ev := range notificationdomain.AllEvents {
		events[string(ev)] = false
	}
	for key, enabled := range req.Events {
		if !notificationdomain.EventType(key).Valid() {
			return nil, domain.ErrInvalidEvent
		}
		events[key] = enabled
	}

	existing, err := s.repo.FindNotificationConfig(ctx, req.DormitoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := &domain.NotificationConfig{
		DormitoryID: req.DormitoryID,
		CreatedAt:   now,
	}
	if existing != nil {
		cfg.CreatedAt = existing.CreatedAt
		cfg.EncryptedCredential = existing.EncryptedCredential
	}
	cfg.Channel = string(kind)
	cfg.Destination = destination
	cfg.Active = req.Active
	cfg.Events = events
	cfg.UpdatedAt = now

	if req.Credential != nil {
		credential := strings.TrimSpace(*req.Credential)
		if credential == "" {
			cfg.EncryptedCredential = nil
		} else {
			sealed, err := s.vault.Encrypt([]byte(credential))
			if err != nil {
				return nil, err
			}
			cfg.EncryptedCredential = sealed
		}
	}
	if kind != notificationdomain.ChannelWebhook && len(cfg.EncryptedCredential) == 0 {
		return nil, domain.ErrMissingCredential
	}

	if err := s.repo.SaveNotificationConfig(ctx, cfg); err != nil {
		return nil, err
	}

	s.log.Info("notification config saved",
		zap.String("dormitory_id", req.DormitoryID.String()),
		zap.String("channel", cfg.Channel),
		zap.Bool("active", cfg.Active),
	)
	return toNotificationResponse(cfg), nil
}

func (s *Service) GetNotificationConfig(ctx context.Context, dormitoryID snowflake.ID) (*domain.NotificationConfigResponse, error) {
	cfg, err := s.repo.FindNotificationConfig(ctx, dormitoryID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotificationNotFound
	}
	return toNotificationResponse(cfg), nil
}

// ResolveChannel returns the decrypted channel for a dormitory, or nil when
// none is configured.
func (s *Service) ResolveChannel(ctx context.Context, dormitoryID snowflake.ID) (*notificationdomain.Channel, error) {
	cfg, err := s.repo.FindNotificationConfig(ctx, dormitoryID)
	if err != nil || cfg == nil {
		return nil, err
	}

	var credential string
	if len(cfg.EncryptedCredential) > 0 {
		plain, err := s.vault.Decrypt(cfg.EncryptedCredential)
		if err != nil {
			return nil, err
		}
		credential = string(plain)
	}

	events := make(map[string]bool, len(cfg.Events))
	for _, ev := range notificationdomain.AllEvents {
		events[string(ev)] = cfg.EventEnabled(string(ev))
	}

	return &notificationdomain.Channel{
		DormitoryID: cfg.DormitoryID,
		Kind:        notificationdomain.ChannelKind(cfg.Channel),
		Destination: cfg.Destination,
		Credential:  credential,
		Active:      cfg.Active,
		Events:      events,
	}, nil
}

func (s *Service) UpsertPromptPayConfig(ctx context.Context, req domain.UpsertPromptPayConfigRequest) (*domain.PromptPayConfig, error) {
	if _, err := s.Get(ctx, req.DormitoryID); err != nil {
		return nil, err
	}

	payee, err := promptpay.ParsePayee(req.PayeeID)
	if err != nil {
		return nil, domain.ErrInvalidPayee
	}

	existing, err := s.repo.FindPromptPayConfig(ctx, req.DormitoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := &domain.PromptPayConfig{
		DormitoryID: req.DormitoryID,
		PayeeID:     payee.Value,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Active:      req.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		cfg.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SavePromptPayConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) GetPromptPayConfig(ctx context.Context, dormitoryID snowflake.ID) (*domain.PromptPayConfig, error) {
	cfg, err := s.repo.FindPromptPayConfig(ctx, dormitoryID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrPromptPayNotFound
	}
	return cfg, nil
}

func toNotificationResponse(cfg *domain.NotificationConfig) *domain.NotificationConfigResponse {
	events := make(map[string]bool, len(notificationdomain.AllEvents))
	for _, ev := range notificationdomain.AllEvents {
		events[string(ev)] = cfg.EventEnabled(string(ev))
	}
	return &domain.NotificationConfigResponse{
		DormitoryID:   cfg.DormitoryID.String(),
		Channel:       cfg.Channel,
		Destination:   cfg.Destination,
		HasCredential: len(cfg.EncryptedCredential) > 0,
		Active:        cfg.Active,
		Events:        events,
		UpdatedAt:     cfg.UpdatedAt,
	}
}
