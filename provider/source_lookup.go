package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils"
	lru "github.com/hashicorp/golang-lru"
)

const (
	SourceLookupName = "sourceLookup"
	// sourceCacheSize 缓存已经找到的源文件
	sourceCacheSize = 512
)

// SourceLookupProvider 根据类名在源码目录中查找源文件
type SourceLookupProvider struct {
	optionsHolder
	sourcePaths []string
	cache       *lru.Cache
}

func NewSourceLookupProvider() *SourceLookupProvider {
	// 只有size<=0时才会返回错误
	cache, _ := lru.New(sourceCacheSize)
	return &SourceLookupProvider{cache: cache}
}

func (p *SourceLookupProvider) Name() string {
	return SourceLookupName
}

func (p *SourceLookupProvider) DefaultOptions() map[string]interface{} {
	return map[string]interface{}{
		"sourceFileExtension": ".java",
	}
}

func (p *SourceLookupProvider) Initialize(sctx *session.Context, options map[string]interface{}) error {
	p.store(options)
	p.mu.Lock()
	p.sourcePaths = utils.Distinct(sctx.SourcePaths())
	p.mu.Unlock()
	p.cache.Purge()
	return nil
}

// SourceFile 返回类对应的源文件路径，找不到返回空字符串
// 内部类（Outer$Inner）对应外部类的源文件；找不到的结果不缓存，源文件可能稍后才出现
func (p *SourceLookupProvider) SourceFile(className string) string {
	if className == "" {
		return ""
	}
	if cached, ok := p.cache.Get(className); ok {
		return cached.(string)
	}
	key := className
	if i := strings.LastIndex(className, "/"); i >= 0 {
		className = className[i+1:]
	}
	if i := strings.Index(className, "$"); i >= 0 {
		className = className[:i]
	}
	ext := ".java"
	if value, ok := p.Option("sourceFileExtension"); ok {
		if s, ok := value.(string); ok && s != "" {
			ext = s
		}
	}
	relative := filepath.FromSlash(strings.ReplaceAll(className, ".", "/")) + ext

	p.mu.RLock()
	paths := p.sourcePaths
	p.mu.RUnlock()
	for _, root := range paths {
		candidate := filepath.Join(root, relative)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			p.cache.Add(key, candidate)
			return candidate
		}
	}
	return ""
}
