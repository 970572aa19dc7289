package provider

import (
	"github.com/fansqz/debug-adapter/session"
)

const (
	EvaluationName     = "evaluation"
	HotCodeReplaceName = "hotCodeReplace"
	CompletionsName    = "completions"
)

// EvaluationProvider 表达式求值，求值引擎不在adapter内实现，这里只保存会话参数
type EvaluationProvider struct {
	optionsHolder
}

func NewEvaluationProvider() *EvaluationProvider {
	return &EvaluationProvider{}
}

func (p *EvaluationProvider) Name() string {
	return EvaluationName
}

func (p *EvaluationProvider) DefaultOptions() map[string]interface{} {
	return map[string]interface{}{}
}

func (p *EvaluationProvider) Initialize(sctx *session.Context, options map[string]interface{}) error {
	p.store(options)
	return nil
}

// HotCodeReplaceProvider 热替换
type HotCodeReplaceProvider struct {
	optionsHolder
}

func NewHotCodeReplaceProvider() *HotCodeReplaceProvider {
	return &HotCodeReplaceProvider{}
}

func (p *HotCodeReplaceProvider) Name() string {
	return HotCodeReplaceName
}

func (p *HotCodeReplaceProvider) DefaultOptions() map[string]interface{} {
	return map[string]interface{}{
		"hotCodeReplace": "manual",
	}
}

func (p *HotCodeReplaceProvider) Initialize(sctx *session.Context, options map[string]interface{}) error {
	p.store(options)
	return nil
}

// CompletionsProvider 调试控制台的自动补全
type CompletionsProvider struct {
	optionsHolder
}

func NewCompletionsProvider() *CompletionsProvider {
	return &CompletionsProvider{}
}

func (p *CompletionsProvider) Name() string {
	return CompletionsName
}

func (p *CompletionsProvider) DefaultOptions() map[string]interface{} {
	return map[string]interface{}{}
}

func (p *CompletionsProvider) Initialize(sctx *session.Context, options map[string]interface{}) error {
	p.store(options)
	return nil
}
