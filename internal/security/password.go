package security

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2パラメータ。反復回数は下限であり、設定で引き上げることはできても下げることはできない。
const (
	MinPasswordIterations = 120_000
	passwordKeyLen        = 32 // 256bit
)

// PasswordHasher はPBKDF2-HMAC-SHA256によるパスワードハッシュ計算を提供する。
// 状態を持たないため複数のゴルーチンから同時に使用できる。
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher はPasswordHasherを生成する。
// MinPasswordIterations 未満の値は MinPasswordIterations に引き上げる。
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations < MinPasswordIterations {
		iterations = MinPasswordIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Iterations は実際に使用する反復回数を返す。
func (h *PasswordHasher) Iterations() int {
	return h.iterations
}

// Hash はURL-safe Base64のソルトをデコードし、パスワードのUTF-8バイト列から
// 256bitの鍵を導出してURL-safe Base64で返す。同一入力に対して常に同一出力を返す。
func (h *PasswordHasher) Hash(password, salt string) (string, error) {
	saltBytes, err := DecodeURLSafe(salt)
	if err != nil {
		return "", oops.Code("AUTH_INVALID_SALT").Wrap(err)
	}
	if len(saltBytes) == 0 {
		return "", oops.Code("AUTH_INVALID_SALT").Errorf("salt cannot be empty")
	}

	key := pbkdf2.Key([]byte(password), saltBytes, h.iterations, passwordKeyLen, sha256.New)
	return EncodeURLSafe(key), nil
}

// ConstantTimeEqual は2つの文字列をUTF-8バイト列として比較する。
// 長さが異なる場合は即座にfalseを返すが、同じ長さの場合は最初の不一致位置に関わらず
// 全バイトを走査する。
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
