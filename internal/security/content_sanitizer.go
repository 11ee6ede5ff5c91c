package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizer はプロフィールの表示名に含まれるHTMLマークアップを除去する。
// 表示名はフロントエンドでテキストとして描画される前提で、タグは一切許可しない。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はタグを全て除去するStrictPolicyでProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エスケープを剥がす回数の上限。
const maxSanitizePasses = 8

// SanitizeDisplayName はタグを除去し、エスケープされたエンティティを戻したうえで前後の空白を取り除く。
// エンティティを戻した結果に再びタグが現れるため、出力が変化しなくなるまで繰り返す。
// 上限回数で収束しない入力には空文字列を返す。
func (s *ProfileSanitizer) SanitizeDisplayName(name string) string {
	current := name
	for i := 0; i < maxSanitizePasses; i++ {
		if current == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(current)))
		if next == current {
			return current
		}
		current = next
	}
	return ""
}
