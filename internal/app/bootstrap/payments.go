package bootstrap

import (
	"fmt"

	appconfig "github.com/tipulhub/tipul-server/internal/config"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// BuildProviderSet assembles the payment providers from configuration.
// The gateway choice is deployment-wide: one of "meshulam" or
// "tranzila".
func BuildProviderSet(cfg *appconfig.Config, logger *logging.Logger) (payments.ProviderSet, error) {
	if cfg == nil {
		return payments.ProviderSet{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cipher, err := payments.NewCardCipher(cfg.CardEncryptionKey)
	if err != nil {
		return payments.ProviderSet{}, fmt.Errorf("bootstrap: card cipher: %w", err)
	}

	set := payments.ProviderSet{
		Internal: payments.NewInternalProvider(logger),
	}
	if cfg.AllowSimulatedPayments {
		set.Simulation = payments.NewSimulationProvider(logger)
	}

	switch cfg.PaymentGateway {
	case "meshulam":
		set.Gateway = payments.NewMeshulamGateway(
			cfg.MeshulamBaseURL, cfg.MeshulamAPIKey, cfg.MeshulamPageCode, cipher, logger)
	case "tranzila":
		set.Gateway = payments.NewTranzilaGateway(
			cfg.TranzilaBaseURL, cfg.TranzilaTerminal, cfg.TranzilaPassword, cipher, logger)
	case "":
		logger.Warn("no payment gateway configured; card charges disabled")
	default:
		return payments.ProviderSet{}, fmt.Errorf("bootstrap: unknown payment gateway %q", cfg.PaymentGateway)
	}

	return set, nil
}
