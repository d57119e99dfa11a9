package providers

import (
	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/scan"
)

// ProvideAsker provides the chat inference client.
func ProvideAsker(i do.Injector) (chat.Asker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Backend.FunctionsURL == "" {
		log.Warn("No functions URL configured, the chat assistant will answer with its fallback")
	}

	return chat.NewClient(chat.Options{
		FunctionsURL: cfg.Backend.FunctionsURL,
		AnonKey:      cfg.Backend.AnonKey,
		MaxTokens:    cfg.Chat.MaxTokens,
		Logger:       log.Logger,
	}), nil
}

// ProvideDetector provides the shelf photo recognition client.
func ProvideDetector(i do.Injector) (scan.Detector, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return scan.NewClient(scan.Options{
		FunctionsURL: cfg.Backend.FunctionsURL,
		Function:     cfg.Scan.Function,
		AnonKey:      cfg.Backend.AnonKey,
		Logger:       log.Logger,
	}), nil
}
