package providers

import (
	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/auth"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/identity"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/session"
)

// AuthKey wraps the session key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Auth.SessionKey) > 0 {
		return AuthKey(cfg.Auth.SessionKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.App.DataPath)
	if err != nil {
		return nil, err
	}
	cfg.Auth.SessionKey = key

	log.Info("Session key loaded", "session_duration", cfg.Auth.SessionDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.SessionDuration)
}

// ProvideVerifier provides the identity verifier: the hosted auth API, or the
// dev verifier in local mode.
func ProvideVerifier(i do.Injector) (identity.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.LocalMode() {
		log.Warn("Local mode: any email signs in, do not expose this server")
		return identity.Dev{}, nil
	}

	return identity.New(identity.Options{
		BackendURL: cfg.Backend.URL,
		AnonKey:    cfg.Backend.AnonKey,
		Logger:     log.Logger,
	}), nil
}

// ProvideSessionStore provides the in-memory session store.
func ProvideSessionStore(i do.Injector) (*session.Store, error) {
	verifier := do.MustInvoke[identity.Verifier](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return session.NewStore(verifier, tokens, log.Logger), nil
}
