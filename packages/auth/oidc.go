package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

var ErrProviderUnavailable = errors.New("authentication provider unavailable")

const (
	providerAttempts   = 5
	providerRetryDelay = 2 * time.Second
	// После неудачной инициализации провайдер не опрашивается это время
	providerBackoff = 30 * time.Second
)

// OIDCVerifier проверяет ID токены внешнего провайдера (Keycloak).
// Провайдер инициализируется лениво при первом запросе.
type OIDCVerifier struct {
	issuer   string
	clientID string
	devMode  bool
	log      *zap.Logger

	attempts   int
	retryDelay time.Duration
	backoff    time.Duration
	now        func() time.Time

	mu          sync.Mutex
	verifier    *oidc.IDTokenVerifier
	lastFailure time.Time
	lastErr     error
}

func NewOIDCVerifier(issuer, clientID string, devMode bool, log *zap.Logger) *OIDCVerifier {
	return &OIDCVerifier{
		issuer:     issuer,
		clientID:   clientID,
		devMode:    devMode,
		log:        log,
		attempts:   providerAttempts,
		retryDelay: providerRetryDelay,
		backoff:    providerBackoff,
		now:        time.Now,
	}
}

// getVerifier инициализирует провайдер с retry логикой.
// Неудача запоминается: до истечения backoff запросы сразу получают
// ErrProviderUnavailable и не ждут повторных попыток.
func (v *OIDCVerifier) getVerifier() (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.verifier != nil {
		return v.verifier, nil
	}
	if !v.lastFailure.IsZero() && v.now().Sub(v.lastFailure) < v.backoff {
		return nil, v.lastErr
	}

	var err error
	for i := 0; i < v.attempts; i++ {
		var provider *oidc.Provider
		// Провайдер хранит контекст для загрузки ключей, поэтому Background
		provider, err = oidc.NewProvider(context.Background(), v.issuer)
		if err == nil {
			v.verifier = provider.Verifier(&oidc.Config{
				ClientID:          v.clientID,
				SkipIssuerCheck:   v.devMode,
				SkipClientIDCheck: v.devMode || v.clientID == "",
			})
			v.log.Info("✅ OIDC провайдер инициализирован", zap.String("issuer", v.issuer))
			return v.verifier, nil
		}

		v.log.Warn("OIDC provider attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		if i < v.attempts-1 { // Не ждем после последней попытки
			time.Sleep(v.retryDelay)
		}
	}

	v.lastFailure = v.now()
	v.lastErr = fmt.Errorf("%w: %d attempts: %w", ErrProviderUnavailable, v.attempts, err)
	return nil, v.lastErr
}

// Verify реализует TokenVerifier
func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	verifier, err := v.getVerifier()
	if err != nil {
		return nil, err
	}

	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %w", ErrInvalidToken, err)
	}

	return identityFromClaims(claims), nil
}

// identityFromClaims собирает Identity из claims Keycloak
func identityFromClaims(claims map[string]any) *Identity {
	id := &Identity{Source: SourceOIDC}

	id.UserID, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)

	// Пробуем разные поля, где может быть имя
	if name, ok := claims["preferred_username"].(string); ok {
		id.Name = name
	} else if name, ok := claims["name"].(string); ok {
		id.Name = name
	} else {
		id.Name = id.Email
	}

	id.Roles = realmRoles(claims)
	return id
}

func realmRoles(claims map[string]any) []string {
	realmAccess, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}

	rolesInterface, ok := realmAccess["roles"].([]any)
	if !ok {
		return nil
	}

	var roles []string
	for _, r := range rolesInterface {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
