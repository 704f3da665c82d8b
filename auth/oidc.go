package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/globals"
	"github.com/coreos/go-oidc/v3/oidc"
	lru "github.com/hashicorp/golang-lru"
)

const tokenCacheSize = 1024

// ErrInvalidToken is returned when no identity could be established for a
// connection attempt. The connection must not be registered.
var ErrInvalidToken = errors.New("invalid or missing id token")

// Verifier authenticates members via OIDC ID-token verification against the
// configured providers. Verified tokens are cached until their expiry so
// reconnects of the same client do not hit the provider again.
type Verifier struct {
	cfg   *config.Config
	cache *lru.Cache // idToken -> cacheEntry
}

// cacheEntry is a verified identity plus the token's expiry. A cached token
// authenticates only as long as the token itself would.
type cacheEntry struct {
	userId string
	expiry time.Time
}

func NewVerifier(cfg *config.Config) (*Verifier, error) {
	cache, err := lru.New(tokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}
	return &Verifier{cfg: cfg, cache: cache}, nil
}

// Authenticate verifies the given ID token using the named OIDC provider and
// returns the member's id (the verified e-mail claim). It returns
// ErrInvalidToken if the token is missing, the provider is unknown or
// verification fails.
func (v *Verifier) Authenticate(ctx context.Context, idToken, providerName string) (string, error) {
	if idToken == "" {
		return "", ErrInvalidToken
	}
	if cached, ok := v.cache.Get(idToken); ok {
		entry := cached.(cacheEntry)
		if time.Now().Before(entry.expiry) {
			return entry.userId, nil
		}
		v.cache.Remove(idToken)
	}
	var oidcConf *config.OIDCConfig
	for i := range v.cfg.OIDCConfigs {
		if v.cfg.OIDCConfigs[i].Name == providerName {
			oidcConf = &v.cfg.OIDCConfigs[i]
			break
		}
	}
	if oidcConf == nil {
		globals.AppLogger.Debug("no oidc config found for provider", "provider", providerName)
		return "", ErrInvalidToken
	}
	provider, err := oidc.NewProvider(ctx, oidcConf.ProviderUrl)
	if err != nil {
		return "", fmt.Errorf("oidc.NewProvider: %w", err)
	}
	conf := oidc.Config{}
	if oidcConf.ClientId == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = oidcConf.ClientId
	}
	verifiedIdToken, err := provider.Verifier(&conf).Verify(ctx, idToken)
	if err != nil {
		globals.AppLogger.Debug("token verification failed", "error", err)
		return "", ErrInvalidToken
	}

	claims := struct {
		Email string `json:"email"`
	}{}
	if err := verifiedIdToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("idToken.Claims: %w", err)
	}
	if claims.Email == "" {
		return "", ErrInvalidToken
	}
	v.cache.Add(idToken, cacheEntry{userId: claims.Email, expiry: verifiedIdToken.Expiry})
	return claims.Email, nil
}
