package server

import goaway "github.com/TwiN/go-away"

//go:generate go tool mockgen -destination=mock_deps_test.go -package=server . Sanitizer,CoinStore

// Sanitizer 文本过滤：昵称与聊天内容在入库前经过它处理
type Sanitizer interface {
	// Clean 返回将脏词替换为 * 后的文本
	Clean(text string) string
	// IsProfane 判断文本是否包含脏词
	IsProfane(text string) bool
}

// ProfanitySanitizer 基于 go-away 的实现
type ProfanitySanitizer struct {
	detector *goaway.ProfanityDetector
}

func NewProfanitySanitizer() *ProfanitySanitizer {
	return &ProfanitySanitizer{
		detector: goaway.NewProfanityDetector().WithSanitizeLeetSpeak(true).WithSanitizeSpecialCharacters(true),
	}
}

func (s *ProfanitySanitizer) Clean(text string) string {
	if text == "" {
		return text
	}
	return s.detector.Censor(text)
}

func (s *ProfanitySanitizer) IsProfane(text string) bool {
	if text == "" {
		return false
	}
	return s.detector.IsProfane(text)
}
