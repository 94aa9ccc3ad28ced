package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raideer/udacity-project-catalog/internal/model"
	"github.com/raideer/udacity-project-catalog/internal/repository"
)

// Metrics は認証サービスが記録するメトリクスのインターフェース。
// 未設定（nil）の場合は記録しない。
type Metrics interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string)
	RecordUserCreated(provider string)
	RecordOAuthLatency(provider string, duration time.Duration)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge        int // 永続セッションの有効期間（秒）
	SessionBrowserMaxAge int // 非永続セッションの有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// プロバイダー解決、ユーザーの検索/作成、セッションの発行・破棄を担う。
type Service struct {
	registry    *Registry
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	metrics     Metrics
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	registry *Registry,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	metrics Metrics,
	config ServiceConfig,
) *Service {
	return &Service{
		registry:    registry,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
// 未登録のプロバイダー名にはUNKNOWN_PROVIDERエラーを返す。
// リダイレクトURLの生成のみで、ローカルな副作用は発生しない。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, err := s.registry.Resolve(provider)
	if err != nil {
		return "", err
	}
	return p.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
// ハンドシェイクのどの段階の失敗もAUTH_FAILEDに正規化して返し、
// 生のネットワーク/ストレージエラーは上位へ漏らさない。
func (s *Service) HandleCallback(ctx context.Context, provider, code string, persistent bool) (*model.Session, error) {
	p, err := s.registry.Resolve(provider)
	if err != nil {
		return nil, err
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	exchangeStart := time.Now()
	userInfo, err := p.ExchangeCode(ctx, code)
	if s.metrics != nil {
		s.metrics.RecordOAuthLatency(provider, time.Since(exchangeStart))
	}
	if err != nil {
		slog.Warn("oauth code exchange failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		s.recordLoginFailure(provider)
		return nil, model.NewAuthFailedError()
	}

	// 2. ユーザーを検索または作成（セッション発行はコミット完了後）
	userID, err := s.findOrCreateUser(ctx, userInfo)
	if err != nil {
		slog.Error("failed to resolve user for identity",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		s.recordLoginFailure(provider)
		return nil, model.NewAuthFailedError()
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, userID, persistent)
	if err != nil {
		slog.Error("failed to create session",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		s.recordLoginFailure(provider)
		return nil, model.NewAuthFailedError()
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess(provider)
	}

	return session, nil
}

// findOrCreateUser は外部identityからローカルユーザーIDを解決する。
// 存在しなければユーザーとidentityを同一トランザクションで作成する。
// 同一identityの初回ログインが競合した場合、一意性制約で敗れた側は
// 読み取りとして再試行し、結果としてユーザー行はちょうど1行になる。
// 既存ユーザーのName/Emailはログイン時に更新しない。
func (s *Service) findOrCreateUser(ctx context.Context, userInfo *OAuthUserInfo) (string, error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}

	if identity != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", identity.UserID),
			slog.String("provider", userInfo.Provider),
		)
		return identity.UserID, nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	err = s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	if err == nil {
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("provider", userInfo.Provider),
		)
		if s.metrics != nil {
			s.metrics.RecordUserCreated(userInfo.Provider)
		}
		return newUser.ID, nil
	}

	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	// 競合の敗者側: 勝者が作成したidentityを読み直す
	identity, findErr := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if findErr != nil {
		return "", fmt.Errorf("failed to re-read identity after race: %w", findErr)
	}
	if identity == nil {
		return "", fmt.Errorf("identity vanished after duplicate conflict")
	}

	slog.Info("concurrent first login resolved to existing user",
		slog.String("user_id", identity.UserID),
		slog.String("provider", userInfo.Provider),
	)
	return identity.UserID, nil
}

// Logout はセッションを破棄する。
// セッションIDが空、または既に存在しない場合もエラーにしない（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを解決する。
// セッションが未確立・期限切れ、または参照先ユーザーが存在しない場合は
// model.Anonymousを返す（nilは返さない）。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return model.Anonymous, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return model.Anonymous, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return model.Anonymous, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return model.Anonymous, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.Anonymous, nil
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
// persistentはCookieとDB上の有効期間を分けるライフタイムヒント。
func (s *Service) createSession(ctx context.Context, userID string, persistent bool) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	maxAge := s.config.SessionMaxAge
	if !persistent {
		maxAge = s.config.SessionBrowserMaxAge
	}

	session := &model.Session{
		ID:         sessionID,
		UserID:     userID,
		Persistent: persistent,
		ExpiresAt:  time.Now().Add(time.Duration(maxAge) * time.Second),
		CreatedAt:  time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) recordLoginFailure(provider string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure(provider)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
