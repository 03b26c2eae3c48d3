package shipping

import (
	"context"
	"regexp"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storelink/correios-bridge/pkg/correios"
)

// TriggerOutcome is the explicit result of handling a platform trigger.
type TriggerOutcome int

const (
	// TriggerProcessed means the trigger was handled.
	TriggerProcessed TriggerOutcome = iota
	// TriggerSkipped means the merchant configured the trigger's resource
	// as ignorable.
	TriggerSkipped
	// TriggerFailed means the store context could not be resolved.
	TriggerFailed
)

// Trigger is the platform's webhook envelope.
type Trigger struct {
	Resource   string `json:"resource"`
	Action     string `json:"action,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
}

// AppDataMerger writes partial updates into the merchant's app-data
// document.
type AppDataMerger interface {
	Merge(ctx context.Context, storeID int64, patch map[string]any) error
}

// contractServicePattern selects the contract services exposed as
// storefront options.
var contractServicePattern = regexp.MustCompile(`^(PAC|SEDEX) CONTRATO AG$`)

// WebhookService handles platform triggers. Contract synchronization runs
// fire-and-forget relative to the webhook response; Wait blocks until all
// background syncs finish.
type WebhookService struct {
	manager    *correios.Manager
	api        correios.APIClient
	appData    AppDataMerger
	logger     *otelzap.Logger
	background errgroup.Group
}

// NewWebhookService creates a webhook service.
func NewWebhookService(manager *correios.Manager, api correios.APIClient, appData AppDataMerger, logger *otelzap.Logger) *WebhookService {
	return &WebhookService{
		manager: manager,
		api:     api,
		appData: appData,
		logger:  logger,
	}
}

// Process handles one trigger. Application triggers with complete carrier
// credentials kick off a background contract sync; the outcome reports
// only whether the trigger itself was accepted.
func (s *WebhookService) Process(storeID int64, trigger *Trigger, settings *Settings) TriggerOutcome {
	for _, resource := range settings.IgnoreTriggers {
		if resource == trigger.Resource {
			return TriggerSkipped
		}
	}

	if trigger.Resource == "applications" && settings.CorreiosContract != nil {
		creds := correios.Credentials{
			Username:       settings.CorreiosContract.Username,
			AccessCode:     settings.CorreiosContract.AccessCode,
			PostCardNumber: settings.CorreiosContract.PostCardNumber,
		}
		if creds.Complete() {
			needsServices := len(settings.Services) == 0
			s.background.Go(func() error {
				s.syncContract(storeID, creds, needsServices)
				return nil
			})
		}
	}

	return TriggerProcessed
}

// Wait blocks until all background contract syncs have finished.
func (s *WebhookService) Wait() {
	s.background.Wait()
}

// syncContract authenticates with the merchant's explicit credentials and,
// when the merchant has no services configured, seeds them from the
// contract's service listing. Failures are logged, never surfaced.
func (s *WebhookService) syncContract(storeID int64, creds correios.Credentials, needsServices bool) {
	ctx := context.Background()

	session, err := s.manager.Session(ctx, storeID, &creds)
	if err != nil {
		s.logger.Warn("Cannot generate correios token",
			zap.Int64("store_id", storeID),
			zap.Error(err),
		)
		return
	}

	if needsServices {
		items, err := s.api.ListContractServices(ctx, session.Token, session.Contract.CNPJ, session.Contract.NuContrato)
		if err != nil {
			s.logger.Warn("Cannot list contract services",
				zap.Int64("store_id", storeID),
				zap.Error(err),
			)
			return
		}

		var services []ServiceLabel
		for _, item := range items {
			if contractServicePattern.MatchString(item.Description) {
				services = append(services, ServiceLabel{
					ServiceCode: item.Code,
					Label:       strings.Replace(item.Description, " CONTRATO AG", "", 1),
				})
			}
		}
		if len(services) > 0 {
			if err := s.appData.Merge(ctx, storeID, map[string]any{"services": services}); err != nil {
				s.logger.Warn("Cannot store synced services",
					zap.Int64("store_id", storeID),
					zap.Error(err),
				)
				return
			}
		}
	}

	s.logger.Info("Correios contract synced",
		zap.Int64("store_id", storeID),
		zap.String("nu_contrato", session.Contract.NuContrato),
	)
}
