// Package token はHS256固定の署名付きトークン（JWT互換の3セグメント形式）の発行と検証を提供する。
//
// 検証時にヘッダーのalgフィールドは参照しない。署名は常にHMAC-SHA256で再計算されるため、
// 別アルゴリズムや "none" を主張する偽造ヘッダーは検証結果を変えられない。
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hitoshi/duniaauth/internal/security"
)

// ErrInvalid は検証に失敗したことを表す。
// 形式不正・署名不一致・期限切れを呼び出し側で区別できないよう、理由は含めない。
var ErrInvalid = errors.New("invalid token")

// Subject はトークンに埋め込む主体情報。
type Subject struct {
	ID    string
	Email string
}

// Payload はトークンのペイロード。
type Payload struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp,omitempty"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// encodedHeader は固定ヘッダー {"alg":"HS256","typ":"JWT"} のエンコード済み表現。
var encodedHeader = mustEncodeJSON(header{Alg: "HS256", Typ: "JWT"})

// Codec はトークンの発行と検証を行う。
// 状態を持たないため複数のゴルーチンから同時に使用できる。
type Codec struct {
	now func() time.Time
}

// NewCodec は現在時刻にtime.Nowを使うCodecを生成する。
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecWithClock は任意の時刻関数を使うCodecを生成する。テスト用。
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Issue は subject と有効期間 ttl からトークンを発行する。
func (c *Codec) Issue(secret string, subject Subject, ttl time.Duration) (string, error) {
	now := c.now().Unix()
	payload := Payload{
		Sub:   subject.ID,
		Email: subject.Email,
		Iat:   now,
		Exp:   now + int64(ttl/time.Second),
	}

	encodedPayload, err := encodeJSON(payload)
	if err != nil {
		return "", err
	}

	signingInput := encodedHeader + "." + encodedPayload
	sig := sign(secret, signingInput)
	return signingInput + "." + security.EncodeURLSafe(sig), nil
}

// Verify はトークンの署名と有効期限を検証し、ペイロードを返す。
// 失敗時は理由に関わらず ErrInvalid を返す。
func (c *Codec) Verify(secret, tok string) (*Payload, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil, ErrInvalid
	}

	expected := sign(secret, parts[0]+"."+parts[1])
	actual, err := security.DecodeURLSafe(parts[2])
	if err != nil {
		return nil, ErrInvalid
	}
	// hmac.Equal は長さ不一致でfalseを返し、同じ長さなら定数時間で比較する
	if !hmac.Equal(actual, expected) {
		return nil, ErrInvalid
	}

	raw, err := security.DecodeURLSafe(parts[1])
	if err != nil {
		return nil, ErrInvalid
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalid
	}

	if payload.Exp != 0 && c.now().Unix() > payload.Exp {
		return nil, ErrInvalid
	}

	return &payload, nil
}

// sign は HMAC-SHA256(secret, input) を計算する。
func sign(secret, input string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(input))
	return mac.Sum(nil)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return security.EncodeURLSafe(b), nil
}

func mustEncodeJSON(v any) string {
	s, err := encodeJSON(v)
	if err != nil {
		panic(err)
	}
	return s
}
