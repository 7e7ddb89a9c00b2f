// Package security は入力値の無害化を提供する。
//
// 選手データのテキスト項目はプレーンテキストとして保存する。
// bluemondayのStrictPolicyでマークアップを除去し、
// 出力時のエスケープはテンプレートに任せる。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のテキストを無害化するインターフェース。
type TextSanitizer interface {
	// Clean はHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	Clean(raw string) string
	// CleanImageURL は画像URLとして許可できる値ならそれを返す。
	// 許可するのはサイト内の絶対パスとhttp/httpsのURLのみ。
	CleanImageURL(raw string) (string, bool)
}

// plainTextSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type plainTextSanitizer struct {
	policy *bluemonday.Policy
}

var _ TextSanitizer = (*plainTextSanitizer)(nil)

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
// script、styleなどは中身ごと除去され、それ以外のタグは中のテキストだけが残る。
func NewTextSanitizer() *plainTextSanitizer {
	return &plainTextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はマークアップを除去したプレーンテキストを返す。
// StrictPolicyがエスケープした実体参照は元の文字に戻す。
func (s *plainTextSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// CleanImageURL は画像URLを検証する。空文字は (""、true) を返す。
func (s *plainTextSanitizer) CleanImageURL(raw string) (string, bool) {
	v := s.Clean(raw)
	if v == "" {
		return "", true
	}
	if strings.ContainsAny(v, " \t\r\n\"'<>\\") {
		return "", false
	}

	if strings.HasPrefix(v, "/") {
		if strings.HasPrefix(v, "//") {
			return "", false
		}
		return v, true
	}

	u, err := url.Parse(v)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.User != nil {
		return "", false
	}
	return u.String(), true
}
