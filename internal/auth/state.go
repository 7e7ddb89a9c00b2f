package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateTTL はOAuth stateの有効期間。
const stateTTL = 10 * time.Minute

const stateIssuer = "cricketstats"

// ErrInvalidState はstateの署名・期限・内容が不正なことを表す。
var ErrInvalidState = errors.New("invalid oauth state")

// StateClaims はOAuth stateに埋め込む内容。
// Nonceはプロバイダーに渡すstateパラメータと突き合わせる。
type StateClaims struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"return_to,omitempty"`
	jwt.RegisteredClaims
}

// StateSigner はOAuth stateをHS256で署名・検証する。
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner はStateSignerを生成する。
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// Issue は新しいnonceを生成し、署名済みのstateトークンとnonceを返す。
func (s *StateSigner) Issue(provider, returnTo string) (token, nonce string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	nonce = hex.EncodeToString(b)

	now := s.now()
	claims := StateClaims{
		Provider: provider,
		Nonce:    nonce,
		ReturnTo: returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nonce, nil
}

// Verify はstateトークンを検証してクレームを返す。
func (s *StateSigner) Verify(token string) (*StateClaims, error) {
	claims := &StateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if !parsed.Valid || claims.Nonce == "" {
		return nil, ErrInvalidState
	}
	return claims, nil
}
